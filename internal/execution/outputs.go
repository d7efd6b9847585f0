package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	wfv1 "github.com/me/argowf/pkg/argo"
)

// Output parameter names exported by the workflow root node.
const (
	ParamResults           = "results"
	ParamLog               = "log"
	ParamUsageReport       = "usage-report"
	ParamStacCatalog       = "stac-catalog"
	ParamFeatureCollection = "feature-collection"
)

// ToolLogsArtifact is the root node artifact holding one log file per
// CWL step.
const ToolLogsArtifact = "tool-logs"

// FindOutputParameter looks up an output parameter of a node in a status
// document. The root node id is the workflow name.
func FindOutputParameter(wf *wfv1.Workflow, node, name string) (string, bool) {
	if wf == nil {
		return "", false
	}
	n, ok := wf.Node(node)
	if !ok {
		return "", false
	}
	return n.OutputParameter(name)
}

// OutputParameter fetches the status and returns the named output of the
// root node. A missing output returns ok=false with a nil error.
func (e *Execution) OutputParameter(ctx context.Context, name string) (string, bool, error) {
	e.logger.Info("getting output parameter", "workflow", e.req.WorkflowName, "name", name)
	snap, err := e.PollStatus(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := FindOutputParameter(snap.Workflow, e.req.WorkflowName, name)
	return v, ok, nil
}

// Output returns the CWL results document.
func (e *Execution) Output(ctx context.Context) (string, bool, error) {
	return e.OutputParameter(ctx, ParamResults)
}

// Log returns the runner log.
func (e *Execution) Log(ctx context.Context) (string, bool, error) {
	return e.OutputParameter(ctx, ParamLog)
}

// UsageReport returns the resource usage report.
func (e *Execution) UsageReport(ctx context.Context) (string, bool, error) {
	return e.OutputParameter(ctx, ParamUsageReport)
}

// StacCatalog returns the STAC catalog produced by the run.
func (e *Execution) StacCatalog(ctx context.Context) (string, bool, error) {
	return e.OutputParameter(ctx, ParamStacCatalog)
}

// FeatureCollection returns the feature collection produced by the run.
func (e *Execution) FeatureCollection(ctx context.Context) (string, bool, error) {
	return e.OutputParameter(ctx, ParamFeatureCollection)
}

// usageReport is the part of the usage report naming the executed steps.
type usageReport struct {
	Children []struct {
		Name string `json:"name"`
	} `json:"children"`
}

// ToolLogs downloads the log of every step listed in the usage report to
// <dir>/<step>.log. Steps that fail to download are skipped; the returned
// error joins their failures and the paths written so far are returned.
func (e *Execution) ToolLogs(ctx context.Context, dir string) ([]string, error) {
	raw, ok, err := e.UsageReport(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("workflow %s: no %s output", e.req.WorkflowName, ParamUsageReport)
	}

	var report usageReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ParamUsageReport, err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tool logs dir: %w", err)
	}

	var written []string
	var errs []error
	for _, child := range report.Children {
		if child.Name == "" || filepath.Base(child.Name) != child.Name {
			errs = append(errs, fmt.Errorf("step %q: invalid step name", child.Name))
			continue
		}
		e.logger.Info("getting tool logs", "workflow", e.req.WorkflowName, "step", child.Name)

		file := child.Name + ".log"
		data, err := e.engine.ArtifactFile(ctx, e.req.Namespace, e.req.WorkflowName, e.req.WorkflowName, ToolLogsArtifact, file)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %s: %w", child.Name, err))
			continue
		}

		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("step %s: %w", child.Name, err))
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}
