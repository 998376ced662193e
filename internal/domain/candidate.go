package domain

// HistoryEntry records one evaluation of a candidate revision
type HistoryEntry struct {
	Iteration   int     `json:"iteration"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// ContentCandidate is a single generated text artifact for one platform.
// The regenerator is the only component that produces new revisions; once a
// candidate is handed to the approval machine it is treated as immutable.
type ContentCandidate struct {
	Platform  string         `json:"platform"`
	Text      string         `json:"text"`
	Iteration int            `json:"iteration"`
	History   []HistoryEntry `json:"history,omitempty"`
}

// WithRevision returns a new candidate carrying the improved text at the next
// iteration, preserving the accumulated history
func (c ContentCandidate) WithRevision(text string) ContentCandidate {
	next := c.Clone()
	next.Text = text
	next.Iteration = c.Iteration + 1
	return next
}

// Clone returns a deep copy so the approval machine can snapshot candidates
func (c ContentCandidate) Clone() ContentCandidate {
	out := c
	if len(c.History) > 0 {
		out.History = make([]HistoryEntry, len(c.History))
		copy(out.History, c.History)
	}
	return out
}

// RecordEvaluation appends an evaluation to the candidate's history
func (c *ContentCandidate) RecordEvaluation(iteration int, score float64, explanation string) {
	c.History = append(c.History, HistoryEntry{
		Iteration:   iteration,
		Score:       score,
		Explanation: explanation,
	})
}
