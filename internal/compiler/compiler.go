// Package compiler translates a CWL workflow and its invocation parameters
// into an Argo Workflow. The graph always has the same two-stage shape: a
// "prepare" script that materializes the CWL document and parameters as
// files, followed by a step delegating execution to a pre-registered CWL
// runner template.
package compiler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/me/argowf/internal/template"
	"github.com/me/argowf/internal/volume"
	"github.com/me/argowf/pkg/argo"
	"github.com/me/argowf/pkg/cwl"
)

// Stage, template and file names shared with the runner template.
const (
	PrepareStep    = "prepare"
	RunnerStep     = "argo-cwl"
	InputsParam    = "inputs"
	WorkflowParam  = "workflow"
	ParametersPath = "/tmp/cwl_parameters.json"
	WorkflowPath   = "/tmp/cwl_workflow.json"
	InputsEnv      = "INPUTS"

	WorkdirClaim     = "calrissian-wdir"
	UserSettingsVol  = "usersettings-vol"
	UserSettingsName = "user-settings"
)

// Annotation keys copied from the CWL metadata.
const (
	AnnotationVersion          = "workflows.argoproj.io/version"
	AnnotationTitle            = "workflows.argoproj.io/title"
	AnnotationDescription      = "workflows.argoproj.io/description"
	AnnotationEOAPVersion      = "eoap.ogc.org/version"
	AnnotationEOAPTitle        = "eoap.ogc.org/title"
	AnnotationEOAPAbstract     = "eoap.ogc.org/abstract"
	minimumArgoVersionRequired = ">= v3.3.0"
)

// Outputs re-exported by the entrypoint template from the runner step.
var (
	OutputParameters = []string{"results", "log", "usage-report", "stac-catalog"}
	OutputArtifacts  = []string{"tool-logs", "calrissian-output", "calrissian-stderr", "calrissian-report"}
)

// ErrNoSemaphore is returned when no semaphore ConfigMap is configured.
// Every compiled workflow is bound by the cluster-wide semaphore.
var ErrNoSemaphore = errors.New("semaphore config map name is required")

// RunnerRef names the externally registered CWL runner template.
type RunnerRef struct {
	Name     string
	Template string
}

// Options controls one compilation.
type Options struct {
	Name       string
	Namespace  string
	Entrypoint string

	// Parameters are the CWL job inputs handed to the runner.
	Parameters map[string]any

	VolumeSize   string
	MaxCores     int
	MaxRAM       string
	StorageClass string

	SemaphoreConfigMap string
	SemaphoreKey       string

	PrepareImage       string
	Runner             RunnerRef
	ServiceAccountName string
}

// DefaultOptions returns the resource and template defaults.
func DefaultOptions() Options {
	return Options{
		Namespace:    "default",
		VolumeSize:   "10Gi",
		MaxCores:     4,
		MaxRAM:       "4Gi",
		StorageClass: "standard",
		SemaphoreKey: "workflow",
		PrepareImage: "docker.io/library/prepare:0.1",
		Runner:       RunnerRef{Name: "argo-cwl-runner", Template: "calrissian-runner"},
	}
}

// withDefaults fills zero fields of opts from DefaultOptions.
func (opts Options) withDefaults() Options {
	d := DefaultOptions()
	if opts.Namespace == "" {
		opts.Namespace = d.Namespace
	}
	if opts.VolumeSize == "" {
		opts.VolumeSize = d.VolumeSize
	}
	if opts.MaxCores <= 0 {
		opts.MaxCores = d.MaxCores
	}
	if opts.MaxRAM == "" {
		opts.MaxRAM = d.MaxRAM
	}
	if opts.StorageClass == "" {
		opts.StorageClass = d.StorageClass
	}
	if opts.SemaphoreKey == "" {
		opts.SemaphoreKey = d.SemaphoreKey
	}
	if opts.PrepareImage == "" {
		opts.PrepareImage = d.PrepareImage
	}
	if opts.Runner.Name == "" || opts.Runner.Template == "" {
		opts.Runner = d.Runner
	}
	return opts
}

// Compile builds the Workflow for wf. The CWL document is embedded as-is;
// it is not parsed here.
func Compile(wf cwl.Workflow, opts Options) (*argo.Workflow, error) {
	opts = opts.withDefaults()
	if opts.Entrypoint == "" {
		opts.Entrypoint = wf.Entrypoint
	}
	if opts.Entrypoint == "" {
		return nil, errors.New("compile: entrypoint is required")
	}
	if opts.SemaphoreConfigMap == "" {
		return nil, ErrNoSemaphore
	}

	entry, err := entrypointTemplate(opts)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	prepare, err := prepareTemplate(wf, opts)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	sync, err := template.NewSynchronization(template.KindSemaphore, opts.SemaphoreKey, opts.SemaphoreConfigMap, nil)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	parameters := opts.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}

	out := template.NewWorkflow(template.WorkflowOptions{
		Name:               opts.Name,
		Namespace:          opts.Namespace,
		Entrypoint:         opts.Entrypoint,
		ServiceAccountName: opts.ServiceAccountName,
		Annotations:        Annotations(wf),
		Inputs:             map[string]any{InputsParam: map[string]any{InputsParam: parameters}},
		Synchronization:    sync,
		ClaimTemplates: []argo.PersistentVolumeClaim{
			volume.ClaimTemplate(WorkdirClaim, opts.StorageClass, opts.VolumeSize, []string{volume.ReadWriteMany}),
		},
		SecretVolumes: []argo.Volume{volume.Secret(UserSettingsVol, UserSettingsName)},
		Templates:     []argo.Template{entry, prepare},
	})

	if err := template.Validate(out); err != nil {
		return nil, fmt.Errorf("compile: invalid workflow graph: %w", err)
	}
	return out, nil
}

// Annotations returns the metadata annotations for wf, duplicated under the
// Argo and EOAP namespaces.
func Annotations(wf cwl.Workflow) map[string]string {
	return map[string]string{
		AnnotationVersion:      minimumArgoVersionRequired,
		AnnotationTitle:        wf.Label,
		AnnotationDescription:  wf.Doc,
		AnnotationEOAPVersion:  wf.Version,
		AnnotationEOAPTitle:    wf.Label,
		AnnotationEOAPAbstract: wf.Doc,
	}
}

func entrypointTemplate(opts Options) (argo.Template, error) {
	prepare, err := template.NewStep(PrepareStep, template.Local(PrepareStep), []argo.Parameter{
		template.Literal(InputsParam, "{{inputs.parameters."+InputsParam+"}}"),
	}, nil)
	if err != nil {
		return argo.Template{}, err
	}

	runner, err := template.NewStep(RunnerStep, template.External(opts.Runner.Name, opts.Runner.Template), []argo.Parameter{
		template.Literal("entry_point", opts.Entrypoint),
		template.Literal("max_ram", opts.MaxRAM),
		template.Literal("max_cores", strconv.Itoa(opts.MaxCores)),
		template.Literal("parameters", "{{ steps."+PrepareStep+".outputs.parameters."+InputsParam+" }}"),
		template.Literal("cwl", "{{ steps."+PrepareStep+".outputs.parameters."+WorkflowParam+" }}"),
	}, nil)
	if err != nil {
		return argo.Template{}, err
	}

	var outParams []template.OutputParameter
	for _, name := range OutputParameters {
		outParams = append(outParams, template.OutputParameter{
			Name:   name,
			Source: template.Expression(StepOutputExpression(RunnerStep, "parameters", name)),
		})
	}
	var outArtifacts []template.ArtifactRef
	for _, name := range OutputArtifacts {
		outArtifacts = append(outArtifacts, template.ArtifactRef{
			Name:           name,
			FromExpression: StepOutputExpression(RunnerStep, "artifacts", name),
		})
	}

	return template.New(template.Options{
		Name:             opts.Entrypoint,
		Steps:            []argo.WorkflowStep{prepare, runner},
		InputParameters:  []string{InputsParam},
		OutputParameters: outParams,
		OutputArtifacts:  outArtifacts,
	})
}

func prepareTemplate(wf cwl.Workflow, opts Options) (argo.Template, error) {
	return template.New(template.Options{
		Name:            PrepareStep,
		InputParameters: []string{InputsParam},
		OutputParameters: []template.OutputParameter{
			{Name: InputsParam, Source: template.FilePath(ParametersPath)},
			{Name: WorkflowParam, Source: template.FilePath(WorkflowPath)},
		},
		Script: &argo.ScriptTemplate{
			Image:   opts.PrepareImage,
			Command: []string{"python"},
			Source:  PrepareScript(wf.Raw),
			Env: []argo.EnvVar{
				{Name: InputsEnv, Value: "{{inputs.parameters." + InputsParam + "}}"},
			},
			Resources: argo.ResourceRequirements{
				Requests: map[string]string{"memory": "1Gi", "cpu": "1"},
			},
		},
	})
}

// StepOutputExpression references output kind ("parameters" or
// "artifacts") name of step.
func StepOutputExpression(step, kind, name string) string {
	return fmt.Sprintf("steps['%s'].outputs.%s['%s']", step, kind, name)
}

// PrepareScript returns the python source of the prepare stage. The CWL
// document is embedded base64-encoded and the inputs parameter is read from
// the InputsEnv environment variable, so neither is ever pasted into python
// source.
func PrepareScript(rawCWL string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(rawCWL))

	var b strings.Builder
	b.WriteString("import base64\nimport json\nimport os\n\n")
	fmt.Fprintf(&b, "content = json.loads(base64.b64decode(%q).decode(\"utf-8\"))\n\n", encoded)
	fmt.Fprintf(&b, "parameters = json.loads(os.environ[%q])\n\n", InputsEnv)
	fmt.Fprintf(&b, "with open(%q, \"w\") as f:\n    json.dump(content, f)\n\n", WorkflowPath)
	fmt.Fprintf(&b, "with open(%q, \"w\") as f:\n    json.dump(parameters.get(%q), f)\n", ParametersPath, InputsParam)
	return b.String()
}
