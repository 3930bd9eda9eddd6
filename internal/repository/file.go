package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

// FileStore keeps the ledger as a single JSON document on disk.
type FileStore struct {
	path string
}

var _ SnapshotStore = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

type document struct {
	Supplies   map[string]int  `json:"supplies"`
	Reports    []models.Report `json:"reports"`
	Requesters []string        `json:"requesters"`
}

// Load reads the document. Both the structured layout and the legacy flat
// category -> quantity mapping are accepted.
func (s *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("error decoding document: %w", err)
	}
	if top == nil {
		return nil, fmt.Errorf("document is not an object")
	}

	snap := &Snapshot{Supplies: map[string]int{}}

	rawSupplies, structured := top["supplies"]
	if !structured {
		// Legacy flat mapping: every key is a category.
		for k, v := range top {
			q, err := decodeQuantity(v)
			if err != nil {
				return nil, fmt.Errorf("error decoding quantity for %q: %w", k, err)
			}
			snap.Supplies[k] = q
		}
		return snap, nil
	}

	var supplies map[string]json.RawMessage
	if err := json.Unmarshal(rawSupplies, &supplies); err != nil {
		return nil, fmt.Errorf("error decoding supplies: %w", err)
	}
	for k, v := range supplies {
		q, err := decodeQuantity(v)
		if err != nil {
			return nil, fmt.Errorf("error decoding quantity for %q: %w", k, err)
		}
		snap.Supplies[k] = q
	}

	if raw, ok := top["reports"]; ok {
		if err := json.Unmarshal(raw, &snap.Reports); err != nil {
			return nil, fmt.Errorf("error decoding reports: %w", err)
		}
	}
	if raw, ok := top["requesters"]; ok {
		if err := json.Unmarshal(raw, &snap.Requesters); err != nil {
			return nil, fmt.Errorf("error decoding requesters: %w", err)
		}
	}
	return snap, nil
}

// decodeQuantity accepts integral JSON numbers in [0, models.MaxQuantity].
func decodeQuantity(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 0 || f > models.MaxQuantity {
		return 0, fmt.Errorf("invalid quantity %s", bytes.TrimSpace(raw))
	}
	return int(f), nil
}

// Save writes the document atomically: a temp file in the same directory is renamed
// over the target.
func (s *FileStore) Save(snap *Snapshot) error {
	doc := document{
		Supplies:   snap.Supplies,
		Reports:    snap.Reports,
		Requesters: snap.Requesters,
	}
	if doc.Supplies == nil {
		doc.Supplies = map[string]int{}
	}
	if doc.Reports == nil {
		doc.Reports = []models.Report{}
	}
	if doc.Requesters == nil {
		doc.Requesters = []string{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".storage-*.json")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("error replacing document: %w", err)
	}
	return nil
}
