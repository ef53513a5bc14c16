package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/jobfile"
	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/server"
	"github.com/spf13/cobra"
)

// Domain: HTTP Host Adapter
// This file contains the serve command

func (a *App) createServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve parameter values over HTTP",
		Long: `Serve parameter values over HTTP.

The job file is re-read whenever it changes. The caller identity is taken from
the X-Remote-User header, so the server must sit behind a host that sets it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			if addr == "" {
				addr = rt.cfg.ListenAddr
			}

			srv := server.New(server.Options{
				Service:  rt.service,
				Jobs:     func() (*jobfile.Job, error) { return rt.loader.Load(rt.job.Path) },
				Roles:    rt.roles,
				Gatherer: rt.registry,
				Logger:   rt.logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt.logger.WithField("job", rt.job.Path).Info("serving choice parameters")
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "listen", "", "Listen address (default: CHOICES_LISTEN_ADDR)")
	return cmd
}
