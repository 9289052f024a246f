package resume

import (
	"fmt"
	"sort"
	"strings"
)

// QAPair is one completed question/answer turn
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QAHistory is the append-only per-stage list of turns
type QAHistory struct {
	stages map[string][]QAPair
}

// NewQAHistory creates an empty history
func NewQAHistory() *QAHistory {
	return &QAHistory{stages: make(map[string][]QAPair)}
}

// Append records one turn for stage
func (h *QAHistory) Append(stage, question, answer string) {
	if h.stages == nil {
		h.stages = make(map[string][]QAPair)
	}
	h.stages[stage] = append(h.stages[stage], QAPair{
		Question: strings.TrimSpace(question),
		Answer:   strings.TrimSpace(answer),
	})
}

// Get returns a copy of the turns of stage
func (h *QAHistory) Get(stage string) []QAPair {
	if h == nil {
		return nil
	}
	return append([]QAPair(nil), h.stages[stage]...)
}

// Len returns the number of turns of stage
func (h *QAHistory) Len(stage string) int {
	if h == nil {
		return 0
	}
	return len(h.stages[stage])
}

// Clear drops the turns of stage
func (h *QAHistory) Clear(stage string) {
	if h != nil {
		delete(h.stages, stage)
	}
}

// Stages lists the stages with at least one turn, sorted
func (h *QAHistory) Stages() []string {
	if h == nil {
		return nil
	}
	names := make([]string, 0, len(h.stages))
	for name, pairs := range h.stages {
		if len(pairs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Answers concatenates the answers of stage, one per line
func (h *QAHistory) Answers(stage string) string {
	pairs := h.Get(stage)
	answers := make([]string, len(pairs))
	for i, p := range pairs {
		answers[i] = p.Answer
	}
	return strings.Join(answers, "\n")
}

// Format renders the turns of stage as "Pn: ... / Rn: ..." lines
func (h *QAHistory) Format(stage string) string {
	return FormatPairs(h.Get(stage))
}

// FormatPairs renders turns as "Pn: ... / Rn: ..." lines
func FormatPairs(pairs []QAPair) string {
	var b strings.Builder
	for i, p := range pairs {
		fmt.Fprintf(&b, "P%d: %s\nR%d: %s\n", i+1, p.Question, i+1, p.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Snapshot copies every stage for serialization
func (h *QAHistory) Snapshot() map[string][]QAPair {
	out := make(map[string][]QAPair)
	if h == nil {
		return out
	}
	for stage, pairs := range h.stages {
		out[stage] = append([]QAPair(nil), pairs...)
	}
	return out
}
