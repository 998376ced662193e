package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// GetControlState returns the persisted pipeline control state, defaulting
// to active when none has been written yet
func (s *Store) GetControlState() (domain.PipelineControlState, error) {
	row := s.db.QueryRow(`SELECT state, updated_at, updated_by FROM pipeline_control WHERE id = 1`)

	var state string
	var updatedAt sql.NullTime
	var updatedBy sql.NullString

	err := row.Scan(&state, &updatedAt, &updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PipelineControlState{State: domain.PipelineActive}, nil
	}
	if err != nil {
		return domain.PipelineControlState{}, err
	}

	control := domain.PipelineControlState{State: domain.PipelineState(state)}
	if updatedAt.Valid {
		control.UpdatedAt = updatedAt.Time
	}
	if updatedBy.Valid {
		control.UpdatedBy = updatedBy.String
	}
	return control, nil
}

// SetControlState persists the pipeline pause switch
func (s *Store) SetControlState(state domain.PipelineState, updatedBy string) error {
	_, err := s.db.Exec(`
		INSERT INTO pipeline_control (id, state, updated_at, updated_by)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by
	`, string(state), time.Now(), updatedBy)
	return err
}
