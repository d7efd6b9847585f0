package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/argowf/internal/execution"
)

func newRunCmd() *cobra.Command {
	var wf workflowFlags
	var interval, deadline time.Duration
	var toolLogsDir string
	var quiet, failFast bool

	cmd := &cobra.Command{
		Use:   "run <workflow.cwl>",
		Short: "Submit a CWL workflow and wait for it to finish",
		Long: `Compiles and submits the workflow, reports progress until it reaches a
terminal phase, then prints the results document to stdout. Exits with an
error when the workflow does not succeed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req, err := wf.request(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("deadline") {
				cfg.Engine.Deadline = deadline
			}

			opts := []execution.Option{execution.WithLogger(logger), execution.MonitorInterval(interval)}
			if failFast {
				opts = append(opts, execution.FailOnClientError())
			}
			history, err := openHistory(ctx)
			if err != nil {
				return err
			}
			if history != nil {
				defer history.Close()
				opts = append(opts, execution.WithRecorder(history))
			}

			exec, err := execution.New(cfg.Engine, req, opts...)
			if err != nil {
				return err
			}
			if err := exec.Submit(ctx); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "Submitted %s/%s\n", exec.Namespace(), exec.Name())
			}

			progress := func(percent int, message string) {
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %3d%%  %s\n", percent, message)
				}
			}
			if err := exec.Monitor(ctx, progress); err != nil {
				return err
			}

			if toolLogsDir != "" {
				files, err := exec.ToolLogs(ctx, toolLogsDir)
				for _, f := range files {
					fmt.Fprintf(cmd.ErrOrStderr(), "Tool log: %s\n", f)
				}
				if err != nil {
					logger.Warn("tool logs incomplete", "error", err)
				}
			}

			if !exec.Successful() {
				return fmt.Errorf("workflow %s did not succeed", exec.Name())
			}

			results, ok, err := exec.Output(ctx)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), results)
			}
			return nil
		},
	}

	wf.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 0, "Delay between status polls (default: ARGO_WF_POLL_INTERVAL)")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "Give up monitoring after this long (0 = never)")
	cmd.Flags().StringVar(&toolLogsDir, "tool-logs-dir", "", "Download per-step logs into this directory")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")
	cmd.Flags().BoolVar(&failFast, "fail-on-client-error", false, "Stop monitoring when a status poll is rejected with a 4xx other than 429")
	return cmd
}
