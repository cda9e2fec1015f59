package cli

import (
	"github.com/duynguyendang/gapagent/pkg/ingest"
	"github.com/duynguyendang/gapagent/pkg/repl"
	"github.com/duynguyendang/gapagent/pkg/session"
	"github.com/spf13/cobra"
)

func newAskCommand(a *app) *cobra.Command {
	var history string

	cmd := &cobra.Command{
		Use:   "ask <file>...",
		Short: "Ask questions about PDF/DOCX papers interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := ingest.ReadFiles(args)
			if err != nil {
				return err
			}
			analysis, err := a.analysisService()
			if err != nil {
				return err
			}

			sess := session.New()
			results, err := analysis.Ingest(cmd.Context(), sess, docs)
			printResults(cmd.OutOrStdout(), results)
			if err != nil {
				return err
			}

			r := repl.New(analysis, sess, a.cfg.APIKey(), cmd.OutOrStdout())
			if history != "" {
				r.Load(history)
			}
			return r.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&history, "history", "", "chat history JSON to resume from")
	return cmd
}
