package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/grievance-desk/internal/model"
)

// complaintColumns is the projection scanned into model.Complaint.
const complaintColumns = `id, title, description, status,
	employee_name, department_name, manager_remarks,
	created_at, resolved_at, fetched_at`

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertComplaints inserts or replaces a batch of complaints. FetchedAt
// is stamped with the current time when unset.
func (s *SQLiteStore) UpsertComplaints(ctx context.Context, complaints []model.Complaint) error {
	if len(complaints) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertComplaints(ctx, tx, complaints); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceComplaints atomically swaps the cached set for complaints, so
// complaints no longer visible to the session disappear.
func (s *SQLiteStore) ReplaceComplaints(ctx context.Context, complaints []model.Complaint) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM complaints"); err != nil {
		return fmt.Errorf("clearing complaints: %w", err)
	}
	if err := s.insertComplaints(ctx, tx, complaints); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) insertComplaints(ctx context.Context, tx *sqlx.Tx, complaints []model.Complaint) error {
	if len(complaints) == 0 {
		return nil
	}

	const query = `
		INSERT OR REPLACE INTO complaints (
			id, title, description, status, status_key,
			employee_name, department_name, manager_remarks,
			created_at, resolved_at, fetched_at
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for _, c := range complaints {
		fetchedAt := c.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}

		var resolvedAt any
		if c.ResolvedAt != nil {
			resolvedAt = c.ResolvedAt.UTC()
		}

		_, err = stmt.ExecContext(ctx,
			c.ID, c.Title, c.Description, c.Status, model.NormalizeStatus(c.Status),
			c.EmployeeName, c.DepartmentName, c.ManagerRemarks,
			c.CreatedAt.UTC(), resolvedAt, fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting complaint %d: %w", c.ID, err)
		}
	}
	return nil
}

// GetComplaints retrieves complaints matching the provided filter.
func (s *SQLiteStore) GetComplaints(ctx context.Context, opts ComplaintFilter) ([]model.Complaint, error) {
	var conditions []string
	var args []interface{}

	if opts.Status != "" {
		conditions = append(conditions, "status_key = ?")
		args = append(args, model.NormalizeStatus(opts.Status))
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		conditions = append(conditions,
			"(title LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\' OR CAST(id AS TEXT) LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := "SELECT " + complaintColumns + " FROM complaints"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "created_at"
	if opts.SortBy != "" {
		allowedSorts := map[string]string{
			"id":         "id",
			"title":      "title COLLATE NOCASE",
			"status":     "status_key",
			"created_at": "created_at",
		}
		if col, ok := allowedSorts[opts.SortBy]; ok {
			sortBy = col
		}
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", sortBy, direction, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	var complaints []model.Complaint
	if err := s.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, fmt.Errorf("querying complaints: %w", err)
	}
	return complaints, nil
}

// GetComplaintByID retrieves a single complaint by its ID.
func (s *SQLiteStore) GetComplaintByID(ctx context.Context, id int64) (*model.Complaint, error) {
	var c model.Complaint
	err := s.db.GetContext(ctx, &c, "SELECT "+complaintColumns+" FROM complaints WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting complaint %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting complaint %d: %w", id, err)
	}
	return &c, nil
}

// CountByStatus returns the number of cached complaints per status. Known
// statuses are keyed by their canonical spelling ("In Progress"); unknown
// ones by the first spelling seen.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Key    string `db:"status_key"`
		Status string `db:"status"`
		Count  int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status_key, MIN(status) AS status, COUNT(*) AS n FROM complaints GROUP BY status_key")
	if err != nil {
		return nil, fmt.Errorf("counting complaints by status: %w", err)
	}

	canonical := make(map[string]string, len(model.Statuses))
	for _, st := range model.Statuses {
		canonical[model.NormalizeStatus(st)] = st
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		name, ok := canonical[r.Key]
		if !ok {
			name = r.Status
		}
		counts[name] += r.Count
	}
	return counts, nil
}

// Purge deletes every cached complaint. Called on logout.
func (s *SQLiteStore) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM complaints"); err != nil {
		return fmt.Errorf("purging complaints: %w", err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
