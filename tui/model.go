package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/store"
)

// DataSource supplies the review dashboard's data
type DataSource interface {
	ListApprovals(opts store.ListOptions) ([]*domain.ApprovalRequest, error)
	CountApprovalsByStatus() (map[domain.ApprovalStatus]int, error)
	GetControlState() (domain.PipelineControlState, error)
	ListCandidates(limit int) ([]store.CandidateRecord, error)
}

// Resolver applies reviewer decisions from the dashboard
type Resolver interface {
	Resolve(id string, status domain.ApprovalStatus, actor, editedText string) error
}

// Model is the review dashboard model
type Model struct {
	source   DataSource
	resolver Resolver
	reviewer string

	// Data
	pending    []*domain.ApprovalRequest
	candidates []store.CandidateRecord
	counts     map[domain.ApprovalStatus]int
	paused     bool
	pausedBy   string

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int
	notice      string

	lastRefresh time.Time
}

// NewModel creates the dashboard model
func NewModel(source DataSource, resolver Resolver, reviewer string) Model {
	if reviewer == "" {
		reviewer = "tui"
	}
	return Model{
		source:   source,
		resolver: resolver,
		reviewer: reviewer,
		counts:   make(map[domain.ApprovalStatus]int),
	}
}

// Init starts the refresh loop
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), tickCmd())
}

// TickMsg triggers a periodic refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// DataMsg carries freshly loaded dashboard data
type DataMsg struct {
	Pending    []*domain.ApprovalRequest
	Candidates []store.CandidateRecord
	Counts     map[domain.ApprovalStatus]int
	Control    domain.PipelineControlState
	Err        error
}

func (m Model) refreshCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		var msg DataMsg

		msg.Pending, msg.Err = source.ListApprovals(store.ListOptions{Status: domain.ApprovalPending})
		if msg.Err != nil {
			return msg
		}
		if msg.Counts, msg.Err = source.CountApprovalsByStatus(); msg.Err != nil {
			return msg
		}
		if msg.Control, msg.Err = source.GetControlState(); msg.Err != nil {
			return msg
		}
		msg.Candidates, msg.Err = source.ListCandidates(20)
		return msg
	}
}

// ResolvedMsg reports the outcome of a reviewer decision
type ResolvedMsg struct {
	ID     string
	Status domain.ApprovalStatus
	Err    error
}

func (m Model) resolveCmd(id string, status domain.ApprovalStatus) tea.Cmd {
	resolver := m.resolver
	reviewer := m.reviewer
	return func() tea.Msg {
		err := resolver.Resolve(id, status, reviewer, "")
		return ResolvedMsg{ID: id, Status: status, Err: err}
	}
}
