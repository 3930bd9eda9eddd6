package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

var _ DispatchRepository = (*SQLiteDB)(nil)

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS dispatches (
			id TEXT PRIMARY KEY,
			vehicle TEXT NOT NULL,
			category TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			requester TEXT NOT NULL,
			station TEXT,
			created_at DATETIME NOT NULL,
			returned_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_dispatches_created_at ON dispatches(created_at);
		CREATE INDEX IF NOT EXISTS idx_dispatches_vehicle ON dispatches(vehicle);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) Record(ctx context.Context, d *models.DispatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatches (id, vehicle, category, quantity, requester, station, created_at, returned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Vehicle, d.Category, d.Quantity, d.Requester, nullString(d.Station),
		d.CreatedAt.UTC(), nullTime(d.ReturnedAt))
	if err != nil {
		return fmt.Errorf("error inserting dispatch: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.DispatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, vehicle, category, quantity, requester, station, created_at, returned_at
		FROM dispatches WHERE id = ?`, id)

	d, err := scanDispatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning dispatch: %w", err)
	}
	return d, nil
}

func (s *SQLiteDB) ListDispatches(ctx context.Context, opts Filter) ([]models.DispatchRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, opts.Since.UTC())
	}
	if opts.Category != "" {
		where = append(where, "category = ? COLLATE NOCASE")
		args = append(args, opts.Category)
	}
	if opts.Vehicle != "" {
		where = append(where, "vehicle = ?")
		args = append(args, opts.Vehicle)
	}
	if opts.OpenOnly {
		where = append(where, "returned_at IS NULL")
	}

	query := `SELECT id, vehicle, category, quantity, requester, station, created_at, returned_at FROM dispatches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying dispatches: %w", err)
	}
	defer rows.Close()

	var out []models.DispatchRecord
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning dispatch: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// MarkReturned closes every open dispatch of vehicle.
func (s *SQLiteDB) MarkReturned(ctx context.Context, vehicle string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dispatches SET returned_at = ? WHERE vehicle = ? AND returned_at IS NULL`,
		at.UTC(), vehicle)
	if err != nil {
		return 0, fmt.Errorf("error marking dispatches returned: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDispatch(sc scanner) (*models.DispatchRecord, error) {
	var (
		d        models.DispatchRecord
		station  sql.NullString
		returned sql.NullTime
	)
	if err := sc.Scan(&d.ID, &d.Vehicle, &d.Category, &d.Quantity, &d.Requester,
		&station, &d.CreatedAt, &returned); err != nil {
		return nil, err
	}
	d.Station = station.String
	d.CreatedAt = d.CreatedAt.UTC()
	if returned.Valid {
		t := returned.Time.UTC()
		d.ReturnedAt = &t
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
