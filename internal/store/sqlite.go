package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jmaddaus/issuetrack/internal/model"
)

const issueColumns = `id, title, description, status, priority, created_at, updated_at`

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs
// migrations. Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite has a single writer, and every connection to ":memory:" is a
	// separate database, so keep exactly one connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateIssue(ctx context.Context, issue *model.Issue) (*model.Issue, error) {
	now := time.Now().UTC()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = issue.CreatedAt
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO issues (title, description, status, priority, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		issue.Title, issue.Description, issue.Status, issue.Priority,
		formatTime(issue.CreatedAt), formatTime(issue.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}
	return s.GetIssue(ctx, int(id))
}

func (s *SQLiteStore) GetIssue(ctx context.Context, id int) (*model.Issue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	iss, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return iss, err
}

func (s *SQLiteStore) ListIssues(ctx context.Context, filter IssueFilter) ([]*model.Issue, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + issueColumns + ` FROM issues` + where + ` ORDER BY id ASC`

	switch {
	case filter.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	case filter.Offset > 0:
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []*model.Issue
	for rows.Next() {
		iss, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, iss)
	}
	return issues, rows.Err()
}

func (s *SQLiteStore) ListIssueIDs(ctx context.Context, filter IssueFilter) ([]int, error) {
	where, args := buildWhere(filter)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM issues`+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) UpdateIssue(ctx context.Context, issue *model.Issue) error {
	issue.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE issues SET title=?, description=?, status=?, priority=?, updated_at=?
		 WHERE id=?`,
		issue.Title, issue.Description, issue.Status, issue.Priority,
		formatTime(issue.UpdatedAt), issue.ID)
	if err != nil {
		return err
	}
	return expectOne(res, issue.ID)
}

func (s *SQLiteStore) DeleteIssue(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, id)
}

func (s *SQLiteStore) UpdateIssues(ctx context.Context, ids []int, changes model.Changeset) (int64, error) {
	if len(ids) == 0 || changes.IsEmpty() {
		return 0, nil
	}

	var sets []string
	var args []interface{}
	if changes.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *changes.Priority)
	}
	if changes.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *changes.Status)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now().UTC()))
	args = append(args, idList(ids))

	res, err := s.db.ExecContext(ctx,
		`UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id IN `+idSet,
		args...)
	if err != nil {
		return 0, fmt.Errorf("update issues: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteIssues(ctx context.Context, ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM issues WHERE id IN `+idSet, idList(ids))
	if err != nil {
		return 0, fmt.Errorf("delete issues: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) AdjacentIssueID(ctx context.Context, id int, dir Direction) (int, error) {
	step, wrap := `SELECT id FROM issues WHERE id > ? ORDER BY id ASC LIMIT 1`, `SELECT MIN(id) FROM issues`
	if dir == Prev {
		step, wrap = `SELECT id FROM issues WHERE id < ? ORDER BY id DESC LIMIT 1`, `SELECT MAX(id) FROM issues`
	}

	var next int
	err := s.db.QueryRowContext(ctx, step, id).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var wrapped sql.NullInt64
	if err := s.db.QueryRowContext(ctx, wrap).Scan(&wrapped); err != nil {
		return 0, err
	}
	if !wrapped.Valid {
		return 0, ErrNotFound
	}
	return int(wrapped.Int64), nil
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

func buildWhere(filter IssueFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.Title != "" {
		conds = append(conds, `title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Title)+"%")
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, filter.Priority)
	}
	if len(filter.IncludeIDs) > 0 {
		conds = append(conds, "id IN "+idSet)
		args = append(args, idList(filter.IncludeIDs))
	}
	if len(filter.ExcludeIDs) > 0 {
		conds = append(conds, "id NOT IN "+idSet)
		args = append(args, idList(filter.ExcludeIDs))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// idSet expands a single JSON array parameter into a set of ids, so a
// selection of any size binds one variable rather than one per id.
const idSet = `(SELECT value FROM json_each(?))`

func idList(ids []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	b.WriteByte(']')
	return b.String()
}

func expectOne(res sql.Result, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("issue %d: %w", id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ---------------------------------------------------------------------------
// Scan helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row scanner) (*model.Issue, error) {
	var iss model.Issue
	var createdAt, updatedAt string

	err := row.Scan(&iss.ID, &iss.Title, &iss.Description, &iss.Status,
		&iss.Priority, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	iss.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	iss.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &iss, nil
}
