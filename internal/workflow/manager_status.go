package workflow

import (
	"relay/internal/control"
	"relay/internal/fetch"
	"relay/internal/pipeline"
	"relay/internal/queue"
)

// StatusSummary is a point-in-time view of the orchestrator.
type StatusSummary struct {
	Running     bool              `json:"running"`
	Stage       string            `json:"stage,omitempty"`
	Current     *queue.Descriptor `json:"current,omitempty"`
	Index       int               `json:"index,omitempty"`
	Total       int               `json:"total,omitempty"`
	Progress    *fetch.Progress   `json:"progress,omitempty"`
	Control     control.Snapshot  `json:"control"`
	LastError   string            `json:"last_error,omitempty"`
	LastBatch   BatchSummary      `json:"last_batch"`
	LastReports []Report          `json:"last_reports,omitempty"`
}

// Status returns the latest orchestrator state with up to the last n
// reports (n <= 0 means none).
func (m *Manager) Status(n int) StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := StatusSummary{
		Running:   m.running,
		Stage:     m.stage,
		Index:     m.index,
		Total:     m.total,
		LastBatch: m.summary,
	}
	if m.control != nil {
		summary.Control = m.control.Snapshot()
	}
	if m.current != nil {
		cp := *m.current
		summary.Current = &cp
	}
	if m.progress != nil {
		cp := *m.progress
		summary.Progress = &cp
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if n > 0 && len(m.reports) > 0 {
		start := len(m.reports) - n
		if start < 0 {
			start = 0
		}
		summary.LastReports = append([]Report(nil), m.reports[start:]...)
	}
	return summary
}

func (m *Manager) setStage(stage string) {
	m.mu.Lock()
	m.stage = stage
	if stage != "" && stage != pipeline.StageFetch {
		m.progress = nil
	}
	m.mu.Unlock()
}

func (m *Manager) setCurrent(index int, d *queue.Descriptor) {
	m.mu.Lock()
	m.index = index
	if d == nil {
		m.current = nil
	} else {
		cp := *d
		m.current = &cp
	}
	m.progress = nil
	m.mu.Unlock()
}

func (m *Manager) setTotals(index, total int) {
	m.mu.Lock()
	m.index = index
	m.total = total
	m.mu.Unlock()
}
