package template

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dop251/goja"
	"github.com/me/argowf/pkg/argo"
)

// ValidationError describes one structural problem in a workflow graph.
type ValidationError struct {
	Template string
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("template %q: %s: %s", e.Template, e.Field, e.Message)
}

// stepRefPattern matches {{steps.<name>. ...}} in argument values.
var stepRefPattern = regexp.MustCompile(`\{\{\s*steps\.([A-Za-z0-9_-]+)\.`)

// Validate checks that the entrypoint names a template, that every step
// resolves to exactly one template, that step arguments only reference
// earlier steps, and that every output expression of a Steps template
// references a step of that template. All problems are reported together.
func Validate(wf *argo.Workflow) error {
	var errs []error

	names := make(map[string]bool, len(wf.Spec.Templates))
	for _, t := range wf.Spec.Templates {
		if names[t.Name] {
			errs = append(errs, &ValidationError{Template: t.Name, Field: "name", Message: "duplicate template name"})
		}
		names[t.Name] = true
	}
	if !names[wf.Spec.Entrypoint] {
		errs = append(errs, &ValidationError{Field: "entrypoint", Message: fmt.Sprintf("no template named %q", wf.Spec.Entrypoint)})
	}

	for _, t := range wf.Spec.Templates {
		if !t.IsSteps() {
			continue
		}
		errs = append(errs, validateSteps(t, names)...)
		errs = append(errs, validateOutputExpressions(t)...)
	}
	return errors.Join(errs...)
}

func validateSteps(t argo.Template, templates map[string]bool) []error {
	var errs []error
	seen := make(map[string]bool)
	for _, stage := range t.Steps {
		for _, s := range stage {
			field := "steps." + s.Name
			if seen[s.Name] {
				errs = append(errs, &ValidationError{Template: t.Name, Field: field, Message: "duplicate step name"})
			}
			switch {
			case s.Template != "" && s.TemplateRef != nil:
				errs = append(errs, &ValidationError{Template: t.Name, Field: field, Message: "both template and templateRef set"})
			case s.Template == "" && s.TemplateRef == nil:
				errs = append(errs, &ValidationError{Template: t.Name, Field: field, Message: "no template or templateRef"})
			case s.Template != "" && !templates[s.Template]:
				errs = append(errs, &ValidationError{Template: t.Name, Field: field, Message: fmt.Sprintf("unknown template %q", s.Template)})
			case s.TemplateRef != nil && (s.TemplateRef.Name == "" || s.TemplateRef.Template == ""):
				errs = append(errs, &ValidationError{Template: t.Name, Field: field, Message: "incomplete templateRef"})
			}
			if s.Arguments != nil {
				for _, p := range s.Arguments.Parameters {
					if p.Value == nil {
						continue
					}
					for _, m := range stepRefPattern.FindAllStringSubmatch(*p.Value, -1) {
						if !seen[m[1]] {
							errs = append(errs, &ValidationError{
								Template: t.Name,
								Field:    field + ".arguments." + p.Name,
								Message:  fmt.Sprintf("references step %q which does not run earlier", m[1]),
							})
						}
					}
				}
			}
		}
		// Steps in the same stage run in parallel and cannot see each other.
		for _, s := range stage {
			seen[s.Name] = true
		}
	}
	return errs
}

// validateOutputExpressions evaluates each output expression with goja
// against a steps object holding only the template's step names. Argo's
// expression syntax for step outputs is valid JavaScript, so a reference
// to an unknown step fails with a TypeError.
func validateOutputExpressions(t argo.Template) []error {
	if t.Outputs == nil {
		return nil
	}

	vm := goja.New()
	steps := make(map[string]any)
	for _, stage := range t.Steps {
		for _, s := range stage {
			steps[s.Name] = map[string]any{
				"outputs": map[string]any{
					"parameters": map[string]any{},
					"artifacts":  map[string]any{},
				},
			}
		}
	}
	if err := vm.Set("steps", steps); err != nil {
		return []error{fmt.Errorf("template %q: set steps: %w", t.Name, err)}
	}

	var errs []error
	check := func(field, expr string) {
		if expr == "" {
			return
		}
		if _, err := vm.RunString(expr); err != nil {
			errs = append(errs, &ValidationError{
				Template: t.Name,
				Field:    field,
				Message:  fmt.Sprintf("expression %q: %v", expr, err),
			})
		}
	}
	for _, p := range t.Outputs.Parameters {
		if p.ValueFrom != nil {
			check("outputs.parameters."+p.Name, p.ValueFrom.Expression)
		}
	}
	for _, a := range t.Outputs.Artifacts {
		check("outputs.artifacts."+a.Name, a.FromExpression)
	}
	return errs
}
