package cli

import (
	"fmt"

	"github.com/duynguyendang/gapagent/pkg/server"
	"github.com/duynguyendang/gapagent/pkg/session"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var port, pageSize string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			if cmd.Flags().Changed("page-size") {
				a.cfg.PageSize = pageSize
			}
			analysis, err := a.analysisService()
			if err != nil {
				return err
			}

			srv := server.NewServer(analysis, session.New(), server.Options{
				APIKey:   a.cfg.APIKey(),
				PageSize: a.cfg.PageSize,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Starting REST API Server on :%s (provider %s)\n", a.cfg.Port, a.cfg.Provider)
			return srv.Run(":" + a.cfg.Port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "8080", "listen port")
	cmd.Flags().StringVar(&pageSize, "page-size", "A3", "PDF page size, always landscape")
	return cmd
}
