// Package service runs a CWL workflow on behalf of a job-orchestration host
// such as ZOO-Project. The host hands over its configuration sections, the
// job inputs and an outputs map, and receives a service status code.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/me/argowf/internal/config"
	"github.com/me/argowf/internal/execution"
	"github.com/me/argowf/internal/logging"
	"github.com/me/argowf/pkg/cwl"
)

// Code is the status returned to the host.
type Code int

// Status codes understood by the host.
const (
	ServiceSucceeded Code = 3
	ServiceFailed    Code = 4
)

func (c Code) String() string {
	switch c {
	case ServiceSucceeded:
		return "SERVICE_SUCCEEDED"
	case ServiceFailed:
		return "SERVICE_FAILED"
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Configuration is the host configuration, section then key.
type Configuration map[string]map[string]string

// Get returns conf[section][key], or "" when unset.
func (c Configuration) Get(section, key string) string {
	return c[section][key]
}

// Set assigns conf[section][key], creating the section when needed.
func (c Configuration) Set(section, key, value string) {
	if c[section] == nil {
		c[section] = make(map[string]string)
	}
	c[section][key] = value
}

// Inputs are the job inputs. Each input carries its value under "value".
type Inputs map[string]map[string]any

// Outputs receive the job results. The workflow results document is
// stored under Outputs["Result"]["value"].
type Outputs map[string]map[string]any

// StatusUpdater receives progress updates for the running job.
type StatusUpdater interface {
	UpdateStatus(conf Configuration, percent int)
}

// UpdaterFunc adapts a function to StatusUpdater.
type UpdaterFunc func(conf Configuration, percent int)

// UpdateStatus calls f(conf, percent).
func (f UpdaterFunc) UpdateStatus(conf Configuration, percent int) {
	f(conf, percent)
}

// Resources are the per-run resource settings passed to the compiler.
type Resources struct {
	VolumeSize   string
	MaxCores     int
	MaxRAM       string
	StorageClass string
}

// Runner executes one CWL workflow for the host.
type Runner struct {
	Workflow cwl.Workflow
	Settings config.Engine
	Defaults Resources

	Logger   *slog.Logger
	Recorder execution.Recorder
}

// Run submits the workflow, follows it to the end and fills outputs.
// Failures are reported in conf["lenv"]["message"] and yield ServiceFailed.
func (r *Runner) Run(ctx context.Context, conf Configuration, inputs Inputs, outputs Outputs, updater StatusUpdater) Code {
	logger := logging.Component(r.Logger, "service")

	identifier := conf.Get("lenv", "Identifier")
	if identifier == "" {
		return r.fail(logger, conf, errors.New("lenv.Identifier is not set"))
	}

	usid := conf.Get("lenv", "usid")
	if usid == "" {
		usid = uuid.New().String()
	}
	name := WorkflowName(identifier, usid)

	namespace := conf.Get("main", "namespace")
	if namespace == "" {
		namespace = r.Settings.Namespace
	}

	params := make(map[string]any, len(inputs))
	for k, v := range inputs {
		params[k] = v["value"]
	}

	opts := []execution.Option{execution.WithLogger(r.Logger)}
	if r.Recorder != nil {
		opts = append(opts, execution.WithRecorder(r.Recorder))
	}
	if updater != nil {
		opts = append(opts, execution.WithUpdateFunc(func(percent int, _ string) {
			updater.UpdateStatus(conf, percent)
		}))
	}

	exec, err := execution.New(r.Settings, execution.Request{
		Namespace:    namespace,
		Workflow:     r.Workflow,
		Entrypoint:   identifier,
		WorkflowName: name,
		Parameters:   params,
		VolumeSize:   r.Defaults.VolumeSize,
		MaxCores:     r.Defaults.MaxCores,
		MaxRAM:       r.Defaults.MaxRAM,
		StorageClass: r.Defaults.StorageClass,
	}, opts...)
	if err != nil {
		return r.fail(logger, conf, err)
	}

	if err := exec.Submit(ctx); err != nil {
		return r.fail(logger, conf, err)
	}
	if err := exec.Monitor(ctx, nil); err != nil {
		return r.fail(logger, conf, err)
	}

	if dir := conf.Get("main", "tmpPath"); dir != "" {
		files, err := exec.ToolLogs(ctx, filepath.Join(dir, name))
		if err != nil {
			logger.Warn("tool logs incomplete", "workflow", name, "error", err)
		}
		logger.Info("tool logs downloaded", "workflow", name, "files", len(files))
	}

	if !exec.Successful() {
		return r.fail(logger, conf, fmt.Errorf("workflow %s did not succeed", name))
	}

	results, ok, err := exec.Output(ctx)
	if err != nil {
		return r.fail(logger, conf, err)
	}
	if !ok {
		return r.fail(logger, conf, fmt.Errorf("workflow %s has no %s output", name, execution.ParamResults))
	}

	if outputs["Result"] == nil {
		outputs["Result"] = make(map[string]any)
	}
	outputs["Result"]["value"] = results
	logger.Info("execution succeeded", "workflow", name)
	return ServiceSucceeded
}

func (r *Runner) fail(logger *slog.Logger, conf Configuration, err error) Code {
	logger.Error("execution failed", "error", err)
	conf.Set("lenv", "message", err.Error())
	return ServiceFailed
}

// WorkflowName derives a Kubernetes object name from the process
// identifier and the job id: lower case, with every character outside
// [a-z0-9-.] replaced by "-".
func WorkflowName(identifier, usid string) string {
	name := strings.ToLower(identifier + "-" + usid)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return '-'
	}, name)
}
