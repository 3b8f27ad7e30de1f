// Command orchestra runs multi-agent orchestration demos with scripted
// agents: hub conversations, pipelines, streamed printing and plan
// notebooks with persistent archives and sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "orchestra",
		Short:         "Multi-agent orchestration demos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.shutdown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", envOr("ORCHESTRA_CONFIG", ""), "JSON or YAML config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging to stderr")
	flags.BoolVar(&opts.trace, "trace", os.Getenv("ORCHESTRA_TRACE") != "", "export spans and observer events to stdout")

	root.AddCommand(
		newHubCmd(opts),
		newPipelineCmd(opts),
		newStreamCmd(opts),
		newPlanCmd(opts),
	)
	return root
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
