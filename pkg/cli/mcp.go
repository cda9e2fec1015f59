package cli

import (
	gapmcp "github.com/duynguyendang/gapagent/pkg/mcp"
	"github.com/duynguyendang/gapagent/pkg/session"
	"github.com/spf13/cobra"
)

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, err := a.analysisService()
			if err != nil {
				return err
			}
			ms := gapmcp.NewMCPServer(analysis, session.New(), a.cfg.APIKey())
			return gapmcp.Run(cmd.Context(), ms, a.version)
		},
	}
}
