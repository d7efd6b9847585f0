package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/me/argowf/internal/compiler"
)

func newCompileCmd() *cobra.Command {
	var wf workflowFlags
	var output string

	cmd := &cobra.Command{
		Use:   "compile <workflow.cwl>",
		Short: "Print the Argo Workflow for a CWL workflow without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := wf.request(args[0])
			if err != nil {
				return err
			}

			compiled, err := compiler.Compile(req.Workflow, compiler.Options{
				Name:               req.WorkflowName,
				Namespace:          req.Namespace,
				Entrypoint:         req.Entrypoint,
				Parameters:         req.Parameters,
				VolumeSize:         req.VolumeSize,
				MaxCores:           req.MaxCores,
				MaxRAM:             req.MaxRAM,
				StorageClass:       req.StorageClass,
				SemaphoreConfigMap: cfg.Engine.SemaphoreConfigMap,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(compiled); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(compiled)
			default:
				return fmt.Errorf("unknown output format %q (want yaml or json)", output)
			}
		},
	}

	wf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")
	return cmd
}
