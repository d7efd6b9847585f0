// Package argo defines the subset of the Argo Workflows v1alpha1 resource
// model used to describe, submit and observe a Workflow. Field names and
// JSON tags follow the argoproj.io/v1alpha1 schema.
package argo

// API group and kind for Workflow resources.
const (
	APIVersion   = "argoproj.io/v1alpha1"
	KindWorkflow = "Workflow"
)

// Workflow is a single Argo Workflow resource, either as submitted (Spec)
// or as reported back by the server (Status).
type Workflow struct {
	APIVersion string          `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Kind       string          `json:"kind,omitempty" yaml:"kind,omitempty"`
	Metadata   ObjectMeta      `json:"metadata" yaml:"metadata"`
	Spec       WorkflowSpec    `json:"spec" yaml:"spec"`
	Status     *WorkflowStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// ObjectMeta is the Kubernetes object metadata carried by a Workflow.
type ObjectMeta struct {
	Name         string            `json:"name,omitempty" yaml:"name,omitempty"`
	GenerateName string            `json:"generateName,omitempty" yaml:"generateName,omitempty"`
	Namespace    string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// WorkflowSpec is the executable description of a Workflow.
type WorkflowSpec struct {
	Entrypoint           string                  `json:"entrypoint" yaml:"entrypoint"`
	Arguments            *Arguments              `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Templates            []Template              `json:"templates,omitempty" yaml:"templates,omitempty"`
	ServiceAccountName   string                  `json:"serviceAccountName,omitempty" yaml:"serviceAccountName,omitempty"`
	Synchronization      *Synchronization        `json:"synchronization,omitempty" yaml:"synchronization,omitempty"`
	VolumeClaimTemplates []PersistentVolumeClaim `json:"volumeClaimTemplates,omitempty" yaml:"volumeClaimTemplates,omitempty"`
	Volumes              []Volume                `json:"volumes,omitempty" yaml:"volumes,omitempty"`
}

// Template is a reusable unit of work. Exactly one of Steps or Script
// carries the body.
type Template struct {
	Name    string          `json:"name" yaml:"name"`
	Inputs  *Inputs         `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs *Outputs        `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Steps   []ParallelSteps `json:"steps,omitempty" yaml:"steps,omitempty"`
	Script  *ScriptTemplate `json:"script,omitempty" yaml:"script,omitempty"`
}

// IsSteps reports whether the template body is a sequence of step stages.
func (t *Template) IsSteps() bool {
	return len(t.Steps) > 0
}

// ParallelSteps is one stage of a Steps template. All steps in a stage run
// in parallel; stages run in order.
type ParallelSteps []WorkflowStep

// WorkflowStep invokes a template, either local (Template) or external
// (TemplateRef).
type WorkflowStep struct {
	Name        string       `json:"name" yaml:"name"`
	Template    string       `json:"template,omitempty" yaml:"template,omitempty"`
	TemplateRef *TemplateRef `json:"templateRef,omitempty" yaml:"templateRef,omitempty"`
	Arguments   *Arguments   `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// TemplateRef points at a template inside a WorkflowTemplate.
type TemplateRef struct {
	Name         string `json:"name" yaml:"name"`
	Template     string `json:"template" yaml:"template"`
	ClusterScope bool   `json:"clusterScope,omitempty" yaml:"clusterScope,omitempty"`
}

// Arguments are the parameters and artifacts bound to an invocation.
type Arguments struct {
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Artifacts  []Artifact  `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Inputs declares what a template expects.
type Inputs struct {
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Artifacts  []Artifact  `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Outputs declares what a template produces.
type Outputs struct {
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Artifacts  []Artifact  `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Parameter is a named scalar. At most one of Value and ValueFrom is set.
type Parameter struct {
	Name      string     `json:"name" yaml:"name"`
	Value     *string    `json:"value,omitempty" yaml:"value,omitempty"`
	ValueFrom *ValueFrom `json:"valueFrom,omitempty" yaml:"valueFrom,omitempty"`
}

// ValueFrom describes where a parameter's value comes from.
type ValueFrom struct {
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Parameter  string `json:"parameter,omitempty" yaml:"parameter,omitempty"`
}

// Artifact is a named file passed between steps.
type Artifact struct {
	Name           string `json:"name" yaml:"name"`
	From           string `json:"from,omitempty" yaml:"from,omitempty"`
	FromExpression string `json:"fromExpression,omitempty" yaml:"fromExpression,omitempty"`
	Path           string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ScriptTemplate runs Source through Command inside Image.
type ScriptTemplate struct {
	Image        string               `json:"image" yaml:"image"`
	Command      []string             `json:"command,omitempty" yaml:"command,omitempty"`
	Source       string               `json:"source" yaml:"source"`
	Env          []EnvVar             `json:"env,omitempty" yaml:"env,omitempty"`
	Resources    ResourceRequirements `json:"resources,omitempty" yaml:"resources,omitempty"`
	VolumeMounts []VolumeMount        `json:"volumeMounts,omitempty" yaml:"volumeMounts,omitempty"`
}

// EnvVar is an environment variable set in a container. Template
// placeholders in Value are substituted by the workflow controller.
type EnvVar struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// ResourceRequirements holds Kubernetes quantity strings keyed by resource
// name ("cpu", "memory", "storage").
type ResourceRequirements struct {
	Requests map[string]string `json:"requests,omitempty" yaml:"requests,omitempty"`
	Limits   map[string]string `json:"limits,omitempty" yaml:"limits,omitempty"`
}

// VolumeMount mounts a declared volume into a container.
type VolumeMount struct {
	Name      string `json:"name" yaml:"name"`
	MountPath string `json:"mountPath" yaml:"mountPath"`
	ReadOnly  bool   `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
}

// Synchronization limits concurrent execution of workflows sharing a lock.
type Synchronization struct {
	Semaphore *SemaphoreRef `json:"semaphore,omitempty" yaml:"semaphore,omitempty"`
}

// SemaphoreRef names the ConfigMap key holding the semaphore limit.
type SemaphoreRef struct {
	ConfigMapKeyRef *ConfigMapKeySelector `json:"configMapKeyRef,omitempty" yaml:"configMapKeyRef,omitempty"`
}

// ConfigMapKeySelector selects a key of a ConfigMap.
type ConfigMapKeySelector struct {
	Name     string `json:"name" yaml:"name"`
	Key      string `json:"key" yaml:"key"`
	Optional *bool  `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// StringPtr returns a pointer to s, for literal parameter values.
func StringPtr(s string) *string {
	return &s
}
