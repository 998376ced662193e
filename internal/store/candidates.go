package store

import (
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// CandidateRecord is one shipped (or rejected) candidate kept for history
type CandidateRecord struct {
	ID             int
	RunID          string
	Topic          string
	Platform       string
	Text           string
	Score          float64
	Improved       bool
	ApprovalStatus domain.ApprovalStatus
	CreatedAt      time.Time
}

// SaveCandidate appends a candidate record to the run history
func (s *Store) SaveCandidate(rec CandidateRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO candidates (run_id, topic, platform, text, score, improved, approval_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Topic, rec.Platform, rec.Text, rec.Score, rec.Improved, string(rec.ApprovalStatus), createdAt)
	return err
}

// ListCandidates returns the most recent candidate records, newest first
func (s *Store) ListCandidates(limit int) ([]CandidateRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, run_id, topic, platform, text, score, improved, approval_status, created_at
		FROM candidates ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []CandidateRecord
	for rows.Next() {
		var rec CandidateRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Topic, &rec.Platform, &rec.Text,
			&rec.Score, &rec.Improved, &status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ApprovalStatus = domain.ApprovalStatus(status)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
