package domain

import "time"

// PipelineState gates whether the coordinator accepts new runs
type PipelineState string

const (
	PipelineActive PipelineState = "active"
	PipelinePaused PipelineState = "paused"
)

// PipelineControlState is the persisted pause switch, read at invocation time
type PipelineControlState struct {
	State     PipelineState
	UpdatedAt time.Time
	UpdatedBy string
}

// Paused reports whether new pipeline runs should be refused
func (c PipelineControlState) Paused() bool {
	return c.State == PipelinePaused
}
