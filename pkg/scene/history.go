package scene

// DefaultHistoryLimit bounds dialogue history to the most recent
// entries; the oldest are evicted first.
const DefaultHistoryLimit = 50

// History is a bounded, append-only log of {speaker, text} pairs.
type History struct {
	limit   int
	entries []DialogLine
}

// NewHistory creates a history bounded to limit entries. A limit <= 0
// uses DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append records a line, evicting the oldest entry when full.
func (h *History) Append(speaker, text string) {
	h.entries = append(h.entries, DialogLine{Speaker: speaker, Text: text})
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Entries returns a copy of the recorded lines, oldest first.
func (h *History) Entries() []DialogLine {
	out := make([]DialogLine, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded lines.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear drops all entries. Used only by an explicit reset.
func (h *History) Clear() {
	h.entries = nil
}
