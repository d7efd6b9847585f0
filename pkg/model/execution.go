package model

import "time"

// ExecutionRecord is one submitted workflow as kept in the history ledger.
// Namespace and Name identify it on the engine.
type ExecutionRecord struct {
	Name        string     `json:"name"`
	Namespace   string     `json:"namespace"`
	Entrypoint  string     `json:"entrypoint"`
	Label       string     `json:"label,omitempty"`
	Phase       string     `json:"phase"`
	Progress    string     `json:"progress,omitempty"`
	Message     string     `json:"message,omitempty"`
	Completed   bool       `json:"completed"`
	Successful  bool       `json:"successful"`
	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
