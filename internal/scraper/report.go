package scraper

import "time"

// State is a run's position in Idle → SessionActive → SessionClosed → Persisted
type State string

const (
	StateIdle          State = "idle"
	StateSessionActive State = "session_active"
	StateSessionClosed State = "session_closed"
	StatePersisted     State = "persisted"
	StatePersistFailed State = "persist_failed"
	StateNoData        State = "no_data"
	StateSessionError  State = "session_error"
)

// RunReport summarizes one run
type RunReport struct {
	RunID      string        `json:"run_id"`
	State      State         `json:"state"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Pages      int           `json:"pages"`
	Records    int           `json:"records"`
	Skipped    int           `json:"skipped"`
	OutputPath string        `json:"output_path,omitempty"`
	LatestPath string        `json:"latest_path,omitempty"`
}

// Succeeded reports whether records were persisted
func (r *RunReport) Succeeded() bool {
	return r.State == StatePersisted
}
