package template

import (
	"errors"
	"fmt"

	"github.com/me/argowf/pkg/argo"
)

// Target is the template a step invokes: a template of the same workflow,
// or one registered externally in a WorkflowTemplate.
type Target struct {
	local string
	ref   *argo.TemplateRef
}

// Local targets a template declared in the same workflow.
func Local(templateName string) Target {
	return Target{local: templateName}
}

// External targets template inside the WorkflowTemplate named ref.
func External(ref, template string) Target {
	return Target{ref: &argo.TemplateRef{Name: ref, Template: template}}
}

// IsZero reports whether no template was chosen.
func (t Target) IsZero() bool {
	return t.local == "" && t.ref == nil
}

// ErrNoTarget is returned when a step names no template to invoke.
var ErrNoTarget = errors.New("step has no template or templateRef")

// NewStep builds one step invocation. Arguments are omitted entirely when
// neither parameters nor artifacts are bound.
func NewStep(name string, target Target, parameters []argo.Parameter, artifacts []argo.Artifact) (argo.WorkflowStep, error) {
	if target.IsZero() {
		return argo.WorkflowStep{}, fmt.Errorf("step %q: %w", name, ErrNoTarget)
	}

	step := argo.WorkflowStep{Name: name}
	if target.ref != nil {
		ref := *target.ref
		step.TemplateRef = &ref
	} else {
		step.Template = target.local
	}

	if len(parameters) > 0 || len(artifacts) > 0 {
		step.Arguments = &argo.Arguments{Parameters: parameters, Artifacts: artifacts}
	}
	return step, nil
}

// Literal returns a parameter bound to a fixed value.
func Literal(name, value string) argo.Parameter {
	return argo.Parameter{Name: name, Value: argo.StringPtr(value)}
}
