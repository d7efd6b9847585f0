package execution

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/me/argowf/internal/argo"
	wfv1 "github.com/me/argowf/pkg/argo"
	"github.com/me/argowf/pkg/model"
)

// Snapshot is one observation of a workflow.
type Snapshot struct {
	Phase    wfv1.Phase
	Progress string
	Workflow *wfv1.Workflow
}

// PollStatus fetches the current status of a workflow once. Any transport
// or HTTP failure is a *model.TransientFetchError.
func PollStatus(ctx context.Context, engine argo.Engine, namespace, name string) (Snapshot, error) {
	wf, err := engine.GetWorkflow(ctx, namespace, name)
	if err != nil {
		return Snapshot{}, &model.TransientFetchError{Workflow: name, Err: err}
	}
	return Snapshot{Phase: wf.Phase(), Progress: wf.Progress(), Workflow: wf}, nil
}

// PollStatus fetches the current status of this execution's workflow.
func (e *Execution) PollStatus(ctx context.Context) (Snapshot, error) {
	return PollStatus(ctx, e.engine, e.req.Namespace, e.req.WorkflowName)
}

// ProgressToPercentage converts "<completed>/<total>" to a percentage.
func ProgressToPercentage(s string) (float64, error) {
	done, total, ok := strings.Cut(s, "/")
	if !ok {
		return 0, &model.MalformedProgressError{Progress: s}
	}
	completed, err := strconv.Atoi(done)
	if err != nil || completed < 0 || strings.HasPrefix(done, "+") {
		return 0, &model.MalformedProgressError{Progress: s}
	}
	n, err := strconv.Atoi(total)
	if err != nil || n <= 0 || strings.HasPrefix(total, "+") {
		return 0, &model.MalformedProgressError{Progress: s}
	}
	return float64(completed) / float64(n) * 100, nil
}

// Monitor polls the workflow until it reaches a terminal phase. Running
// phases are reported to update (or the WithUpdateFunc callback) as an
// integer percentage. A terminal failure is not an error: it shows in
// Completed and Successful.
//
// Transient fetch failures and malformed progress strings are logged and
// the loop continues. With FailOnClientError, a non-retryable HTTP rejection
// of the status fetch is returned instead. Monitor returns ctx.Err() when ctx is cancelled and
// ErrDeadlineExceeded once the configured deadline passes.
func (e *Execution) Monitor(ctx context.Context, update UpdateFunc) error {
	if update == nil {
		update = e.update
	}

	var deadline <-chan time.Time
	if e.settings.Deadline > 0 {
		timer := time.NewTimer(e.settings.Deadline)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		done, err := e.pollOnce(ctx, update)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			e.logger.Info("monitor stopping (context cancelled)", "workflow", e.req.WorkflowName)
			return ctx.Err()
		case <-deadline:
			e.logger.Warn("monitor deadline exceeded", "workflow", e.req.WorkflowName, "deadline", e.settings.Deadline)
			return ErrDeadlineExceeded
		case <-ticker.C:
		}
	}
}

// pollOnce runs one monitor cycle and reports whether the workflow ended.
// It only returns an error when a fetch failure must stop the loop.
func (e *Execution) pollOnce(ctx context.Context, update UpdateFunc) (bool, error) {
	snap, err := e.PollStatus(ctx)
	if err != nil {
		var httpErr *argo.HTTPError
		if errors.As(err, &httpErr) && !httpErr.IsRetryable() {
			e.logger.Error("status fetch rejected", "workflow", e.req.WorkflowName, "status", httpErr.StatusCode, "not_found", argo.IsNotFound(err))
			if e.failFast {
				return false, err
			}
			return false, nil
		}
		e.logger.Warn("status fetch failed, retrying", "workflow", e.req.WorkflowName, "error", err)
		return false, nil
	}

	e.logger.Info("workflow status", "workflow", e.req.WorkflowName, "phase", snap.Phase, "progress", snap.Progress)
	e.observe(ctx, snap)

	switch snap.Phase {
	case wfv1.PhaseSucceeded:
		e.completed = true
		e.successful = true
		return true, nil
	case wfv1.PhaseFailed, wfv1.PhaseError:
		e.completed = true
		e.successful = false
		e.logger.Info("workflow has completed", "workflow", e.req.WorkflowName, "phase", snap.Phase)
		return true, nil
	case wfv1.PhaseUnknown:
		return false, nil
	}

	if update == nil {
		return false, nil
	}
	pct, err := ProgressToPercentage(snap.Progress)
	if err != nil {
		e.logger.Warn("skipping progress update", "workflow", e.req.WorkflowName, "error", err)
		return false, nil
	}
	update(int(pct), ProgressMessage)
	return false, nil
}
