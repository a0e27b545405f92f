package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/engrave/internal/server"
)

const defaultAddr = "localhost:8080"

// serveCommand creates the serve command for the HTTP layout endpoint.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve score layouts over HTTP",
		Long: `Serve score layouts over HTTP.

POST a YAML score to /v1/layout to receive its layout document. Query
parameters select the output (format=json|svg|png) and the layout settings
(width, tune, align_rests, scale, guides, title).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			printInfo("Listening on %s", StyleHighlight.Render("http://"+addr))
			printDetail("cache backend: %s", cacheBackend(cfg.Cache.Backend, noCache))
			if err := server.New(runner, cfg, c.Logger).ListenAndServe(ctx, addr); err != nil {
				return err
			}
			printSuccess("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func cacheBackend(backend string, noCache bool) string {
	if noCache {
		return "none"
	}
	return backend
}
