// Package inventory holds the authoritative supply counts, the disaster report log and
// the requester registry, and is the only writer of persisted state.
package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
	"github.com/mr1hm/go-aid-dispatch/internal/repository"
)

// Supply is one category and its current quantity.
type Supply struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

type Ledger struct {
	mu    sync.Mutex
	store repository.SnapshotStore

	// supplies is keyed by the category's stored spelling; index maps the
	// lower-cased form to that spelling.
	supplies map[string]int
	index    map[string]string
	order    []string

	reports    []models.Report
	requesters []string

	now func() time.Time
}

// NewLedger loads state from store. A nil store keeps the ledger in memory only.
// Load failures are logged and leave the ledger empty.
func NewLedger(store repository.SnapshotStore) *Ledger {
	l := &Ledger{
		store:    store,
		supplies: make(map[string]int),
		index:    make(map[string]string),
		now:      time.Now,
	}
	if store == nil {
		return l
	}

	snap, err := store.Load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("no inventory document found, starting empty")
	case err != nil:
		slog.Warn("failed to load inventory, starting empty", "error", err)
	default:
		l.restore(snap)
		slog.Info("inventory loaded",
			"categories", len(l.order), "reports", len(l.reports), "requesters", len(l.requesters))
	}
	return l
}

func (l *Ledger) restore(snap *repository.Snapshot) {
	// Map order is lost in the document; sort so case collisions resolve the same way every load.
	keys := make([]string, 0, len(snap.Supplies))
	for k := range snap.Supplies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if key, ok := l.index[strings.ToLower(k)]; ok {
			l.supplies[key] = min(l.supplies[key]+snap.Supplies[k], models.MaxQuantity)
			continue
		}
		l.setKey(k, snap.Supplies[k])
	}

	l.reports = append(l.reports, snap.Reports...)
	for _, name := range snap.Requesters {
		if !l.hasRequester(name) {
			l.requesters = append(l.requesters, name)
		}
	}
}

func (l *Ledger) setKey(key string, quantity int) {
	l.supplies[key] = quantity
	l.index[strings.ToLower(key)] = key
	l.order = append(l.order, key)
}

func (l *Ledger) deleteKey(key string) {
	delete(l.supplies, key)
	delete(l.index, strings.ToLower(key))
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// lookup returns the stored spelling of category.
func (l *Ledger) lookup(category string) (string, bool) {
	key, ok := l.index[strings.ToLower(category)]
	return key, ok
}

// AddSupplies increments category by quantity, creating it if needed.
func (l *Ledger) AddSupplies(category string, quantity int) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("%w: category is required", models.ErrValidation)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", models.ErrValidation, quantity)
	}
	if quantity > models.MaxQuantity {
		return fmt.Errorf("%w: quantity %d exceeds limit %d", models.ErrValidation, quantity, models.MaxQuantity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if key, ok := l.lookup(category); ok {
		if have := l.supplies[key]; quantity > models.MaxQuantity-have {
			return fmt.Errorf("%w: %s holds %d, adding %d exceeds limit %d",
				models.ErrValidation, key, have, quantity, models.MaxQuantity)
		}
		l.supplies[key] += quantity
	} else {
		l.setKey(category, quantity)
	}
	l.persist()

	slog.Debug("supplies added", "category", category, "quantity", quantity)
	return nil
}

// CheckInventory returns the quantity held for category, 0 when unknown.
func (l *Ledger) CheckInventory(category string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	key, ok := l.lookup(category)
	if !ok {
		return 0
	}
	return l.supplies[key]
}

// RemoveSupplies decrements category by quantity. It fails with ErrInsufficientStock
// when the category is absent or short, leaving the count untouched. A category that
// reaches zero is removed.
func (l *Ledger) RemoveSupplies(category string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", models.ErrValidation, quantity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key, ok := l.lookup(category)
	if !ok {
		return fmt.Errorf("%w: %q not found in storage", models.ErrInsufficientStock, category)
	}
	if have := l.supplies[key]; have < quantity {
		return fmt.Errorf("%w: %d of %q requested, %d held", models.ErrInsufficientStock, quantity, category, have)
	}

	l.supplies[key] -= quantity
	if l.supplies[key] == 0 {
		l.deleteKey(key)
	}
	l.persist()

	slog.Debug("supplies removed", "category", key, "quantity", quantity)
	return nil
}

// Supplies lists every category in insertion order.
func (l *Ledger) Supplies() []Supply {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Supply, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, Supply{Category: k, Quantity: l.supplies[k]})
	}
	return out
}

// AddReport appends a report stamped with the current UTC time and registers the
// reporter as a requester.
func (l *Ledger) AddReport(name, disasterType, details string) (models.Report, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Report{}, fmt.Errorf("%w: reporter name is required", models.ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	r := models.NewReport(name, disasterType, details, l.now())
	l.reports = append(l.reports, r)
	if !l.hasRequester(name) {
		l.requesters = append(l.requesters, name)
	}
	l.persist()

	slog.Info("report filed", "name", name, "disaster_type", disasterType)
	return r.Clone(), nil
}

// HasReport reports whether an identical report is already on file.
func (l *Ledger) HasReport(name, disasterType, details string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.reports {
		if r.Name == name && r.DisasterType == disasterType && r.Details == details {
			return true
		}
	}
	return false
}

// Reports returns a copy of the report log, oldest first.
func (l *Ledger) Reports() []models.Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Report, len(l.reports))
	for i, r := range l.reports {
		out[i] = r.Clone()
	}
	return out
}

// DeleteReport removes the report at 1-based index. Later reports shift down by one.
func (l *Ledger) DeleteReport(index int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 1 || index > len(l.reports) {
		return false
	}
	l.reports = append(l.reports[:index-1], l.reports[index:]...)
	l.persist()
	return true
}

// AddRequester registers name. Blank and already known names are ignored.
func (l *Ledger) AddRequester(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hasRequester(name) {
		return
	}
	l.requesters = append(l.requesters, name)
	l.persist()
}

func (l *Ledger) Requesters() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.requesters))
	copy(out, l.requesters)
	return out
}

func (l *Ledger) hasRequester(name string) bool {
	for _, r := range l.requesters {
		if r == name {
			return true
		}
	}
	return false
}

// persist writes the current state. Failures are logged; the in-memory state stays
// authoritative. Callers hold l.mu.
func (l *Ledger) persist() {
	if l.store == nil {
		return
	}

	snap := &repository.Snapshot{
		Supplies:   make(map[string]int, len(l.supplies)),
		Reports:    make([]models.Report, len(l.reports)),
		Requesters: make([]string, len(l.requesters)),
	}
	for k, v := range l.supplies {
		snap.Supplies[k] = v
	}
	copy(snap.Reports, l.reports)
	copy(snap.Requesters, l.requesters)

	if err := l.store.Save(snap); err != nil {
		slog.Warn("failed to persist inventory, continuing in memory", "error", err)
	}
}
