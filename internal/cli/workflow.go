package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/me/argowf/internal/compiler"
	"github.com/me/argowf/internal/execution"
	"github.com/me/argowf/internal/service"
	"github.com/me/argowf/pkg/cwl"
)

// workflowFlags are shared by the commands that compile a CWL workflow.
type workflowFlags struct {
	entrypoint   string
	params       string
	name         string
	semaphoreCM  string
	volumeSize   string
	maxCores     int
	maxRAM       string
	storageClass string
}

func (f *workflowFlags) register(cmd *cobra.Command) {
	d := compiler.DefaultOptions()
	cmd.Flags().StringVar(&f.entrypoint, "entrypoint", "", "Workflow id to run (default: first Workflow in the document)")
	cmd.Flags().StringVarP(&f.params, "params", "p", "", "Job parameters file (YAML or JSON)")
	cmd.Flags().StringVar(&f.name, "name", "", "Workflow name (default: <entrypoint>-<random>)")
	cmd.Flags().StringVar(&f.semaphoreCM, "synchronization-cm", "", "Semaphore ConfigMap (or ARGO_WF_SYNCHRONIZATION_CM env)")
	cmd.Flags().StringVar(&f.volumeSize, "volume-size", d.VolumeSize, "Size of the shared working volume")
	cmd.Flags().IntVar(&f.maxCores, "max-cores", d.MaxCores, "Cores available to the CWL runner")
	cmd.Flags().StringVar(&f.maxRAM, "max-ram", d.MaxRAM, "Memory available to the CWL runner")
	cmd.Flags().StringVar(&f.storageClass, "storage-class", d.StorageClass, "Storage class of the working volume")
}

// request loads the CWL document and parameters into an execution request.
func (f *workflowFlags) request(path string) (execution.Request, error) {
	wf, err := cwl.LoadFile(path, f.entrypoint)
	if err != nil {
		return execution.Request{}, err
	}

	params := map[string]any{}
	if f.params != "" {
		data, err := os.ReadFile(f.params)
		if err != nil {
			return execution.Request{}, fmt.Errorf("read params: %w", err)
		}
		if err := yaml.Unmarshal(data, &params); err != nil {
			return execution.Request{}, fmt.Errorf("parse params %s: %w", f.params, err)
		}
	}

	name := f.name
	if name == "" {
		name = service.WorkflowName(wf.Entrypoint, uuid.New().String()[:8])
	}

	if f.semaphoreCM != "" {
		cfg.Engine.SemaphoreConfigMap = f.semaphoreCM
	}

	return execution.Request{
		Namespace:    cfg.Engine.Namespace,
		Workflow:     wf,
		Entrypoint:   wf.Entrypoint,
		WorkflowName: name,
		Parameters:   params,
		VolumeSize:   f.volumeSize,
		MaxCores:     f.maxCores,
		MaxRAM:       f.maxRAM,
		StorageClass: f.storageClass,
	}, nil
}
