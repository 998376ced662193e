package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		case "j", "down":
			if m.activeTab == 0 && m.selectedRow < len(m.pending)-1 {
				m.selectedRow++
			}
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % 2
			m.selectedRow = 0
		case "a":
			if req := m.selectedRequest(); req != nil {
				return m, m.resolveCmd(req.ID, domain.ApprovalApproved)
			}
		case "x":
			if req := m.selectedRequest(); req != nil {
				return m, m.resolveCmd(req.ID, domain.ApprovalRejected)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tea.Batch(m.refreshCmd(), tickCmd())

	case DataMsg:
		if msg.Err != nil {
			m.notice = "refresh failed: " + msg.Err.Error()
			return m, nil
		}
		m.pending = msg.Pending
		m.candidates = msg.Candidates
		m.counts = msg.Counts
		m.paused = msg.Control.Paused()
		m.pausedBy = msg.Control.UpdatedBy
		if m.selectedRow >= len(m.pending) && len(m.pending) > 0 {
			m.selectedRow = len(m.pending) - 1
		}

	case ResolvedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("%s: %v", msg.ID, msg.Err)
		} else {
			m.notice = fmt.Sprintf("%s %s", msg.ID, msg.Status)
		}
		return m, m.refreshCmd()
	}

	return m, nil
}

func (m Model) selectedRequest() *domain.ApprovalRequest {
	if m.activeTab != 0 {
		return nil
	}
	if m.selectedRow < 0 || m.selectedRow >= len(m.pending) {
		return nil
	}
	return m.pending[m.selectedRow]
}
