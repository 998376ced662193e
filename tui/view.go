package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	approvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	rejectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))
)

// View renders the dashboard
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" Content Pipeline │ Pending: %d │ Approved: %d │ Rejected: %d │ Timed out: %d ",
		m.counts[domain.ApprovalPending], m.counts[domain.ApprovalApproved],
		m.counts[domain.ApprovalRejected], m.counts[domain.ApprovalTimeout])
	if m.paused {
		header += warningStyle.Render(fmt.Sprintf("│ PAUSED by %s ", m.pausedBy))
	}
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.activeTab {
	case 0:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderPending()))
	case 1:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderHistory()))
	}
	b.WriteString("\n")

	bar := " j/k: move │ a: approve │ x: reject │ tab: switch │ r: refresh │ q: quit "
	if m.notice != "" {
		bar += "│ " + m.notice + " "
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(bar))

	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Pending", "History"}
	parts := make([]string, len(tabs))
	for i, tab := range tabs {
		if i == m.activeTab {
			parts[i] = tabActiveStyle.Render(tab)
		} else {
			parts[i] = tabInactiveStyle.Render(tab)
		}
	}
	return " " + strings.Join(parts, "  ")
}

func (m Model) renderPending() string {
	if len(m.pending) == 0 {
		return dimmedStyle.Render("No approvals waiting")
	}

	var b strings.Builder
	for i, req := range m.pending {
		remaining := time.Until(req.ExpiresAt).Round(time.Second)
		line := fmt.Sprintf("%-28s %-10s %.2f  expires in %s", req.ID, req.Platform, req.Score, remaining)
		if i == m.selectedRow {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if req := m.selectedRequest(); req != nil {
		b.WriteString("\n")
		b.WriteString(dimmedStyle.Render(truncate(req.Content.Text, 3*m.width)))
	}

	return b.String()
}

func (m Model) renderHistory() string {
	if len(m.candidates) == 0 {
		return dimmedStyle.Render("No runs recorded yet")
	}

	var b strings.Builder
	for _, rec := range m.candidates {
		status := string(rec.ApprovalStatus)
		switch rec.ApprovalStatus {
		case domain.ApprovalApproved, domain.ApprovalEdited:
			status = approvedStyle.Render(status)
		case domain.ApprovalRejected:
			status = rejectedStyle.Render(status)
		case domain.ApprovalTimeout:
			status = warningStyle.Render(status)
		}
		fmt.Fprintf(&b, "%-10s %-20s %.2f  %s\n", rec.Platform, truncate(rec.Topic, 20), rec.Score, status)
	}
	return b.String()
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
