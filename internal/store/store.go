package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// Store provides SQLite-backed persistence for approval requests, pipeline
// control state, and candidate history. Records survive process restarts, so
// approval deadlines hold across them.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// PutApproval inserts a new approval request
func (s *Store) PutApproval(req *domain.ApprovalRequest) error {
	contentJSON, err := json.Marshal(req.Content)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO approvals (id, platform, content, score, status, created_at, expires_at, decided_by, decided_at, edited_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.ID,
		req.Platform,
		string(contentJSON),
		req.Score,
		string(req.Status),
		req.CreatedAt,
		req.ExpiresAt,
		req.DecidedBy,
		req.DecidedAt,
		req.EditedText,
	)
	return err
}

// GetApproval retrieves an approval request by ID
func (s *Store) GetApproval(id string) (*domain.ApprovalRequest, error) {
	row := s.db.QueryRow(`
		SELECT id, platform, content, score, status, created_at, expires_at, decided_by, decided_at, edited_text
		FROM approvals WHERE id = ?
	`, id)

	req, err := scanApproval(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approval %s: %w", id, ErrNotFound)
	}
	return req, err
}

// ListOptions specifies filters for listing approval requests
type ListOptions struct {
	Status   domain.ApprovalStatus
	Platform string
}

// ListApprovals returns approval requests matching the given options,
// newest first
func (s *Store) ListApprovals(opts ListOptions) ([]*domain.ApprovalRequest, error) {
	query := `SELECT id, platform, content, score, status, created_at, expires_at, decided_by, decided_at, edited_text FROM approvals WHERE 1=1`
	var args []interface{}

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	if opts.Platform != "" {
		query += " AND platform = ?"
		args = append(args, opts.Platform)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*domain.ApprovalRequest
	for rows.Next() {
		req, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}

	return reqs, rows.Err()
}

// ResolveApproval writes the next status iff the request still holds the
// expected one. This conditional write is the only path to a terminal
// status; it returns false when another writer got there first.
func (s *Store) ResolveApproval(id string, expected, next domain.ApprovalStatus, actor, editedText string, at time.Time) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE approvals
		SET status = ?, decided_by = ?, decided_at = ?, edited_text = ?
		WHERE id = ? AND status = ?
	`, string(next), actor, at, editedText, id, string(expected))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountApprovalsByStatus returns approval counts keyed by status
func (s *Store) CountApprovalsByStatus() (map[domain.ApprovalStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM approvals GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ApprovalStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.ApprovalStatus(status)] = count
	}
	return counts, rows.Err()
}

func scanApproval(scan func(dest ...interface{}) error) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	var contentJSON, status string
	var decidedBy, editedText sql.NullString
	var decidedAt sql.NullTime

	err := scan(&req.ID, &req.Platform, &contentJSON, &req.Score, &status,
		&req.CreatedAt, &req.ExpiresAt, &decidedBy, &decidedAt, &editedText)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(contentJSON), &req.Content); err != nil {
		return nil, fmt.Errorf("decoding content snapshot: %w", err)
	}
	req.Status = domain.ApprovalStatus(status)
	if decidedBy.Valid {
		req.DecidedBy = decidedBy.String
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	if editedText.Valid {
		req.EditedText = editedText.String
	}

	return &req, nil
}
