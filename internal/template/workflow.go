package template

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/me/argowf/pkg/argo"
)

// WorkflowOptions holds everything assembled into a top-level Workflow.
type WorkflowOptions struct {
	Name               string
	Namespace          string
	Entrypoint         string
	ServiceAccountName string
	Annotations        map[string]string
	Inputs             map[string]any
	Synchronization    *argo.Synchronization
	ClaimTemplates     []argo.PersistentVolumeClaim
	SecretVolumes      []argo.Volume
	ConfigMapVolumes   []argo.Volume
	Templates          []argo.Template
}

// NewWorkflow assembles the top-level Workflow. Each input becomes one
// argument parameter, in name order. Claim templates are declared on their
// own; Volumes holds the secret volumes followed by the config map volumes.
func NewWorkflow(opts WorkflowOptions) *argo.Workflow {
	wf := &argo.Workflow{
		APIVersion: argo.APIVersion,
		Kind:       argo.KindWorkflow,
		Metadata: argo.ObjectMeta{
			Name:        opts.Name,
			Namespace:   opts.Namespace,
			Annotations: opts.Annotations,
		},
		Spec: argo.WorkflowSpec{
			Entrypoint:           opts.Entrypoint,
			ServiceAccountName:   opts.ServiceAccountName,
			Synchronization:      opts.Synchronization,
			VolumeClaimTemplates: opts.ClaimTemplates,
			Templates:            opts.Templates,
		},
	}

	if len(opts.Inputs) > 0 {
		names := make([]string, 0, len(opts.Inputs))
		for name := range opts.Inputs {
			names = append(names, name)
		}
		sort.Strings(names)

		args := &argo.Arguments{}
		for _, name := range names {
			args.Parameters = append(args.Parameters, Literal(name, Stringify(opts.Inputs[name])))
		}
		wf.Spec.Arguments = args
	}

	volumes := make([]argo.Volume, 0, len(opts.SecretVolumes)+len(opts.ConfigMapVolumes))
	volumes = append(volumes, opts.SecretVolumes...)
	volumes = append(volumes, opts.ConfigMapVolumes...)
	if len(volumes) > 0 {
		wf.Spec.Volumes = volumes
	}
	return wf
}

// Stringify renders an input value as a parameter string. Strings pass
// through; everything else is JSON-encoded so the consuming script can
// decode it.
func Stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
