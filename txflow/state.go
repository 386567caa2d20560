package txflow

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproving  Status = "approving"
	StatusConfirming Status = "confirming"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Hash   string     `json:"hash,omitempty"`
}

// State is the progress of one request. Values handed out by the
// orchestrator are copies.
type State struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       Status     `json:"status"`
	Steps        []Step     `json:"steps"`
	TxHash       string     `json:"tx_hash,omitempty"`
	ApprovalHash string     `json:"approval_hash,omitempty"`
	Error        string     `json:"error,omitempty"`
	FeeEstimate  string     `json:"fee_estimate,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func newState(req Request) State {
	names := req.Steps()
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Name: name, Status: StepPending}
	}
	return State{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusPending,
		Steps:       steps,
		StartedAt:   time.Now(),
	}
}

// Terminal reports whether the run has finished.
func (s State) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusError
}

func (s State) clone() State {
	out := s
	out.Steps = append([]Step(nil), s.Steps...)
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
