package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/argowf/internal/argo"
	"github.com/me/argowf/internal/execution"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <workflow_name>",
		Short: "Show the phase and progress of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			snap, err := execution.PollStatus(cmd.Context(), client, cfg.Engine.Namespace, args[0])
			if argo.IsNotFound(err) {
				return fmt.Errorf("workflow %s not found in namespace %s", args[0], cfg.Engine.Namespace)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workflow: %s\n", args[0])
			fmt.Fprintf(out, "  Phase:    %s\n", snap.Phase)
			if snap.Progress != "" {
				fmt.Fprintf(out, "  Progress: %s\n", snap.Progress)
			}
			if st := snap.Workflow.Status; st != nil {
				if st.Message != "" {
					fmt.Fprintf(out, "  Message:  %s\n", st.Message)
				}
				if st.StartedAt != "" {
					fmt.Fprintf(out, "  Started:  %s\n", st.StartedAt)
				}
				if st.FinishedAt != "" {
					fmt.Fprintf(out, "  Finished: %s\n", st.FinishedAt)
				}
			}
			return nil
		},
	}
}

func newOutputsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outputs <workflow_name> [parameter...]",
		Short: "Print output parameters of a workflow",
		Long:  "Prints the named output parameters of the workflow root node, or all of them when none are named.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			name := args[0]
			snap, err := execution.PollStatus(cmd.Context(), client, cfg.Engine.Namespace, name)
			if err != nil {
				return err
			}

			names := args[1:]
			if len(names) == 0 {
				if node, ok := snap.Workflow.Node(name); ok && node.Outputs != nil {
					for _, p := range node.Outputs.Parameters {
						names = append(names, p.Name)
					}
				}
			}

			out := cmd.OutOrStdout()
			var missing []string
			for _, param := range names {
				v, ok := execution.FindOutputParameter(snap.Workflow, name, param)
				if !ok {
					missing = append(missing, param)
					continue
				}
				if len(names) == 1 {
					fmt.Fprintln(out, v)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", param, v)
			}
			if len(missing) > 0 {
				return fmt.Errorf("workflow %s has no output %v", name, missing)
			}
			return nil
		},
	}
}

func newToolLogsCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "tool-logs <workflow_name>",
		Short: "Download the per-step logs of a finished workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exec, err := execution.New(cfg.Engine, execution.Request{WorkflowName: args[0]}, execution.WithLogger(logger))
			if err != nil {
				return err
			}

			files, err := exec.ToolLogs(cmd.Context(), dir)
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write <step>.log files into")
	return cmd
}
