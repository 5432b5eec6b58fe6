package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"llm-client/internal/client"
	"llm-client/internal/display"
	"llm-client/internal/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP relay",
		Long: `serve exposes POST /v1/chat, which forwards a single prompt to the
configured endpoint, and GET /health.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}

			if port != 0 {
				if port < 0 || port > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", port)
				}
				sess.cfg.Server.Port = port
			}

			c, err := client.NewFromSettings(sess.settings)
			if err != nil {
				return err
			}

			srv, err := server.New(sess.cfg.Server.Port, c)
			if err != nil {
				return err
			}

			printStartupBanner(display.New(cmd.OutOrStdout()), sess)
			slog.Info("relay configured", "profile", sess.profileName, "endpoint", sess.settings.Endpoint, "model", sess.settings.Model)

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port from configuration")
	return cmd
}

func printStartupBanner(p *display.Printer, sess *session) {
	p.Banner("llm-client relay")
	p.Printf("  Listen:   http://localhost:%d\n", sess.cfg.Server.Port)
	p.Printf("  Profile:  %s\n", sess.profileName)
	p.Printf("  Endpoint: %s\n", sess.settings.Endpoint)
	p.Printf("  Model:    %s\n", sess.settings.Model)
	for _, d := range sess.diagnostics {
		p.Warn(d.Message)
	}
	p.Rule()
}
