// Package execution drives one compiled workflow on an Argo server: it
// submits the workflow, follows its phase until it ends and reads back
// its outputs.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/argowf/internal/argo"
	"github.com/me/argowf/internal/compiler"
	"github.com/me/argowf/internal/config"
	"github.com/me/argowf/internal/logging"
	wfv1 "github.com/me/argowf/pkg/argo"
	"github.com/me/argowf/pkg/cwl"
	"github.com/me/argowf/pkg/model"
)

// ProgressMessage accompanies every progress update.
const ProgressMessage = "Argo Workflows is handling the execution"

// ErrDeadlineExceeded is returned by Monitor when the configured deadline
// passes before the workflow reaches a terminal phase.
var ErrDeadlineExceeded = errors.New("monitor deadline exceeded")

// UpdateFunc receives the integer completion percentage of a running
// workflow.
type UpdateFunc func(percent int, message string)

// Recorder persists execution history. *store.SQLiteStore implements it.
type Recorder interface {
	CreateExecution(ctx context.Context, rec *model.ExecutionRecord) error
	UpdateExecution(ctx context.Context, rec *model.ExecutionRecord) error
}

// Request describes the workflow to run.
type Request struct {
	Namespace    string
	Workflow     cwl.Workflow
	Entrypoint   string
	WorkflowName string
	Parameters   map[string]any
	VolumeSize   string
	MaxCores     int
	MaxRAM       string
	StorageClass string
}

// Option configures an Execution.
type Option func(*Execution)

// WithClient replaces the HTTP client built from the settings.
func WithClient(engine argo.Engine) Option {
	return func(e *Execution) { e.engine = engine }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Execution) { e.logger = logging.Component(logger, "execution") }
}

// WithRecorder writes submissions and observed phases to r.
func WithRecorder(r Recorder) Option {
	return func(e *Execution) { e.recorder = r }
}

// WithUpdateFunc sets the progress callback used when Monitor is given none.
func WithUpdateFunc(fn UpdateFunc) Option {
	return func(e *Execution) { e.update = fn }
}

// FailOnClientError makes Monitor return when a status fetch is rejected
// with a non-retryable HTTP status (a 4xx other than 429). By default every
// fetch failure is retried.
func FailOnClientError() Option {
	return func(e *Execution) { e.failFast = true }
}

// MonitorInterval overrides the settings poll interval.
func MonitorInterval(d time.Duration) Option {
	return func(e *Execution) {
		if d > 0 {
			e.interval = d
		}
	}
}

// Execution is one workflow run. It is not safe for concurrent use.
type Execution struct {
	settings config.Engine
	req      Request
	engine   argo.Engine
	logger   *slog.Logger
	recorder Recorder
	update   UpdateFunc
	interval time.Duration
	failFast bool

	record     *model.ExecutionRecord
	completed  bool
	successful bool
}

// New prepares an execution. Nothing is sent to the server until Submit.
func New(settings config.Engine, req Request, opts ...Option) (*Execution, error) {
	if settings.Token == "" {
		return nil, &model.ConfigurationError{Key: config.EnvPrefix + "_TOKEN"}
	}
	if settings.Endpoint == "" {
		settings.Endpoint = config.DefaultEndpoint
	}
	if req.Namespace == "" {
		req.Namespace = settings.Namespace
	}
	if req.Entrypoint == "" {
		req.Entrypoint = req.Workflow.Entrypoint
	}
	if req.WorkflowName == "" {
		return nil, errors.New("execution: workflow name is required")
	}

	e := &Execution{
		settings: settings,
		req:      req,
		logger:   logging.Discard(),
		interval: settings.PollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.interval <= 0 {
		e.interval = config.DefaultEngine().PollInterval
	}
	if e.engine == nil {
		e.engine = argo.NewClient(argo.ClientConfig{
			BaseURL:            settings.Endpoint,
			Token:              settings.Token,
			InsecureSkipVerify: settings.InsecureSkipVerify,
			Timeout:            settings.Timeout,
		}, e.logger)
	}
	return e, nil
}

// Name returns the workflow name on the server.
func (e *Execution) Name() string { return e.req.WorkflowName }

// Namespace returns the namespace the workflow runs in.
func (e *Execution) Namespace() string { return e.req.Namespace }

// Completed reports whether Monitor observed a terminal phase.
func (e *Execution) Completed() bool { return e.completed }

// Successful reports whether the terminal phase was Succeeded.
func (e *Execution) Successful() bool { return e.successful }

// Compile builds the Workflow resource Submit would send.
func (e *Execution) Compile() (*wfv1.Workflow, error) {
	return compiler.Compile(e.req.Workflow, compiler.Options{
		Name:               e.req.WorkflowName,
		Namespace:          e.req.Namespace,
		Entrypoint:         e.req.Entrypoint,
		Parameters:         e.req.Parameters,
		VolumeSize:         e.req.VolumeSize,
		MaxCores:           e.req.MaxCores,
		MaxRAM:             e.req.MaxRAM,
		StorageClass:       e.req.StorageClass,
		SemaphoreConfigMap: e.settings.SemaphoreConfigMap,
	})
}

// Submit compiles the workflow and creates it on the server. A rejected
// submission is returned as *model.SubmissionError and is not retried.
func (e *Execution) Submit(ctx context.Context) error {
	wf, err := e.Compile()
	if err != nil {
		return fmt.Errorf("submit %s: %w", e.req.WorkflowName, err)
	}

	e.logger.Info("submitting workflow",
		"workflow", e.req.WorkflowName,
		"namespace", e.req.Namespace,
		"entrypoint", wf.Spec.Entrypoint,
	)
	if _, err := e.engine.CreateWorkflow(ctx, e.req.Namespace, wf); err != nil {
		return &model.SubmissionError{Workflow: e.req.WorkflowName, Err: err}
	}

	now := time.Now().UTC()
	e.record = &model.ExecutionRecord{
		Name:        e.req.WorkflowName,
		Namespace:   e.req.Namespace,
		Entrypoint:  wf.Spec.Entrypoint,
		Label:       e.req.Workflow.Label,
		Phase:       string(wfv1.PhasePending),
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if e.recorder != nil {
		if err := e.recorder.CreateExecution(ctx, e.record); err != nil {
			e.logger.Warn("record submission", "workflow", e.req.WorkflowName, "error", err)
		}
	}
	return nil
}

// observe writes a changed phase or progress to the recorder.
func (e *Execution) observe(ctx context.Context, snap Snapshot) {
	if e.recorder == nil || e.record == nil {
		return
	}
	if e.record.Phase == string(snap.Phase) && e.record.Progress == snap.Progress {
		return
	}

	now := time.Now().UTC()
	e.record.Phase = string(snap.Phase)
	e.record.Progress = snap.Progress
	if snap.Workflow != nil && snap.Workflow.Status != nil {
		e.record.Message = snap.Workflow.Status.Message
	}
	e.record.UpdatedAt = now
	if snap.Phase.IsTerminal() {
		e.record.Completed = true
		e.record.Successful = snap.Phase == wfv1.PhaseSucceeded
		e.record.CompletedAt = &now
	}
	if err := e.recorder.UpdateExecution(ctx, e.record); err != nil {
		e.logger.Warn("record phase", "workflow", e.req.WorkflowName, "error", err)
	}
}
