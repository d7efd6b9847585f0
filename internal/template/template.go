// Package template provides the building blocks of an Argo workflow graph:
// steps, Steps and Script templates, synchronization and the top-level
// Workflow, plus structural validation of the assembled graph.
package template

import (
	"errors"
	"fmt"

	"github.com/me/argowf/pkg/argo"
)

var (
	// ErrMixedOutputSources is returned when one template's output
	// parameters combine expression and file-path sources.
	ErrMixedOutputSources = errors.New("output parameters mix expression and path sources")

	// ErrNoBody is returned when a template has neither steps nor a script,
	// or has both.
	ErrNoBody = errors.New("template must have exactly one of steps or script")
)

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceExpression
	sourcePath
)

// OutputSource says where an output parameter's value comes from.
type OutputSource struct {
	kind  sourceKind
	value string
}

// Expression derives the value from an expression over step outputs,
// e.g. steps['run'].outputs.parameters['results'].
func Expression(expr string) OutputSource {
	return OutputSource{kind: sourceExpression, value: expr}
}

// FilePath reads the value from a file in the container once the script
// has run.
func FilePath(path string) OutputSource {
	return OutputSource{kind: sourcePath, value: path}
}

// OutputParameter is a named output parameter and its source.
type OutputParameter struct {
	Name   string
	Source OutputSource
}

// ArtifactRef is a named artifact taken from an expression over step
// artifacts.
type ArtifactRef struct {
	Name           string
	FromExpression string
}

// Options describes a template. Steps and Script are mutually exclusive.
type Options struct {
	Name             string
	Steps            []argo.WorkflowStep
	InputParameters  []string
	InputArtifacts   []ArtifactRef
	OutputParameters []OutputParameter
	OutputArtifacts  []ArtifactRef
	Script           *argo.ScriptTemplate
}

// New builds a Steps template when opts.Steps is set, each step running as
// its own sequential stage, or a Script template when opts.Script is set.
func New(opts Options) (argo.Template, error) {
	if (len(opts.Steps) > 0) == (opts.Script != nil) {
		return argo.Template{}, fmt.Errorf("template %q: %w", opts.Name, ErrNoBody)
	}

	outParams, err := outputParameters(opts.OutputParameters)
	if err != nil {
		return argo.Template{}, fmt.Errorf("template %q: %w", opts.Name, err)
	}

	tmpl := argo.Template{Name: opts.Name, Script: opts.Script}
	for _, s := range opts.Steps {
		tmpl.Steps = append(tmpl.Steps, argo.ParallelSteps{s})
	}

	inParams := make([]argo.Parameter, 0, len(opts.InputParameters))
	for _, name := range opts.InputParameters {
		inParams = append(inParams, argo.Parameter{Name: name})
	}
	if params, artifacts, ok := section(inParams, artifactList(opts.InputArtifacts)); ok {
		tmpl.Inputs = &argo.Inputs{Parameters: params, Artifacts: artifacts}
	}
	if params, artifacts, ok := section(outParams, artifactList(opts.OutputArtifacts)); ok {
		tmpl.Outputs = &argo.Outputs{Parameters: params, Artifacts: artifacts}
	}
	return tmpl, nil
}

// section reports whether an inputs/outputs section should be emitted.
// Argo rejects an explicitly empty section, so empty ones must be left out
// rather than serialized as {}.
func section(params []argo.Parameter, artifacts []argo.Artifact) ([]argo.Parameter, []argo.Artifact, bool) {
	if len(params) == 0 && len(artifacts) == 0 {
		return nil, nil, false
	}
	if len(params) == 0 {
		params = nil
	}
	if len(artifacts) == 0 {
		artifacts = nil
	}
	return params, artifacts, true
}

func outputParameters(outputs []OutputParameter) ([]argo.Parameter, error) {
	params := make([]argo.Parameter, 0, len(outputs))
	kind := sourceNone
	for _, o := range outputs {
		if o.Source.kind == sourceNone {
			return nil, fmt.Errorf("output parameter %q has no source", o.Name)
		}
		if kind != sourceNone && o.Source.kind != kind {
			return nil, ErrMixedOutputSources
		}
		kind = o.Source.kind

		vf := &argo.ValueFrom{}
		if o.Source.kind == sourceExpression {
			vf.Expression = o.Source.value
		} else {
			vf.Path = o.Source.value
		}
		params = append(params, argo.Parameter{Name: o.Name, ValueFrom: vf})
	}
	return params, nil
}

func artifactList(refs []ArtifactRef) []argo.Artifact {
	artifacts := make([]argo.Artifact, 0, len(refs))
	for _, r := range refs {
		artifacts = append(artifacts, argo.Artifact{Name: r.Name, FromExpression: r.FromExpression})
	}
	return artifacts
}
