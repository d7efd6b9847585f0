package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/argowf/pkg/model"
)

func newHistoryCmd() *cobra.Command {
	var phase string
	var limit int
	var all bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openHistory(cmd.Context())
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("no history database configured (use --history-db or ARGO_WF_HISTORY_DB)")
			}
			defer st.Close()

			opts := model.ListOptions{Limit: limit, Phase: phase}
			if !all {
				opts.Namespace = cfg.Engine.Namespace
			}
			recs, total, err := st.ListExecutions(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list executions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No executions found.")
				return nil
			}

			fmt.Fprintf(out, "%-40s  %-12s  %-10s  %-8s  %s\n", "NAME", "NAMESPACE", "PHASE", "PROGRESS", "SUBMITTED")
			fmt.Fprintf(out, "%-40s  %-12s  %-10s  %-8s  %s\n", "----", "---------", "-----", "--------", "---------")
			for _, rec := range recs {
				fmt.Fprintf(out, "%-40s  %-12s  %-10s  %-8s  %s\n",
					rec.Name, rec.Namespace, rec.Phase, rec.Progress, rec.SubmittedAt.Format("2006-01-02 15:04:05"))
			}
			if total > len(recs) {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(recs), total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "Only list executions in this phase")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of executions to list")
	cmd.Flags().BoolVarP(&all, "all-namespaces", "A", false, "List executions of every namespace")
	return cmd
}
