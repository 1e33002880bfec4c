package types

import "time"

// Pipeline states
const (
	StatePending   = "pending"
	StateValidated = "validated"
	StateResolved  = "resolved"
	StateRendered  = "rendered"
	StateFinalized = "finalized"
	StateFailed    = "failed"
)

// Pipeline events
const (
	EventValidate = "validate"
	EventResolve  = "resolve"
	EventRender   = "render"
	EventFinalize = "finalize"
	EventFail     = "fail"
)

// GenerationManifest is written to the output tree after every run, including
// failed ones, so that partially generated trees can be identified.
type GenerationManifest struct {
	RunID        string    `json:"run_id"`
	State        string    `json:"state"`
	ProjectName  string    `json:"project_name"`
	Region       string    `json:"region"`
	Environments []string  `json:"environments"`
	Components   []string  `json:"components"`
	Added        []string  `json:"added,omitempty"`
	Forfeited    []string  `json:"forfeited,omitempty"`
	CIProvider   string    `json:"ci_provider"`
	Files        []string  `json:"files"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
