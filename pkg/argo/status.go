package argo

// Phase is the lifecycle phase reported for a workflow or node.
type Phase string

const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
	PhaseError     Phase = "Error"
	PhaseUnknown   Phase = "Unknown"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true once the workflow can no longer change phase.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseSucceeded, PhaseFailed, PhaseError:
		return true
	}
	return false
}

// NormalizePhase maps an absent phase to PhaseUnknown.
func NormalizePhase(s string) Phase {
	if s == "" {
		return PhaseUnknown
	}
	return Phase(s)
}

// WorkflowStatus is the observed state of a Workflow.
type WorkflowStatus struct {
	Phase      string                `json:"phase,omitempty" yaml:"phase,omitempty"`
	Progress   string                `json:"progress,omitempty" yaml:"progress,omitempty"`
	Message    string                `json:"message,omitempty" yaml:"message,omitempty"`
	StartedAt  string                `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	FinishedAt string                `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
	Nodes      map[string]NodeStatus `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// NodeStatus is the observed state of one node of the workflow graph.
// The root node is keyed by the workflow name.
type NodeStatus struct {
	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	DisplayName  string   `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	TemplateName string   `json:"templateName,omitempty" yaml:"templateName,omitempty"`
	Phase        string   `json:"phase,omitempty" yaml:"phase,omitempty"`
	Message      string   `json:"message,omitempty" yaml:"message,omitempty"`
	Children     []string `json:"children,omitempty" yaml:"children,omitempty"`
	Outputs      *Outputs `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Phase returns the normalized workflow phase, PhaseUnknown when no status
// has been reported yet.
func (w *Workflow) Phase() Phase {
	if w.Status == nil {
		return PhaseUnknown
	}
	return NormalizePhase(w.Status.Phase)
}

// Progress returns the "completed/total" progress string, or "".
func (w *Workflow) Progress() string {
	if w.Status == nil {
		return ""
	}
	return w.Status.Progress
}

// Node returns the status of the named node.
func (w *Workflow) Node(id string) (NodeStatus, bool) {
	if w.Status == nil {
		return NodeStatus{}, false
	}
	n, ok := w.Status.Nodes[id]
	return n, ok
}

// OutputParameter returns the value of an output parameter of a node.
// A parameter with no value reports ok=true and "".
func (n NodeStatus) OutputParameter(name string) (string, bool) {
	if n.Outputs == nil {
		return "", false
	}
	for _, p := range n.Outputs.Parameters {
		if p.Name != name {
			continue
		}
		if p.Value == nil {
			return "", true
		}
		return *p.Value, true
	}
	return "", false
}
