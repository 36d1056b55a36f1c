// launchpad issues fixed supply tokens on Solana and distributes the fees
// pooled in their community vaults.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/spf13/cobra"

	"github.com/code-payments/code-launchpad/pkg/app"
	"github.com/code-payments/code-launchpad/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

var (
	configPath string
	envPath    string

	baseConfig      app.BaseConfig
	metricsProvider *newrelic.Application
	conf            *launchpadConfig

	rootCmd = &cobra.Command{
		Use:           "launchpad",
		Short:         "Fixed supply token launchpad",
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(*cobra.Command, []string) error {
			var err error
			baseConfig, err = app.Load(configPath, envPath)
			if err != nil {
				return err
			}

			metricsProvider, err = app.Setup(baseConfig)
			if err != nil {
				return err
			}

			conf, err = decodeLaunchpadConfig(baseConfig.AppConfig)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if metricsProvider != nil {
				metricsProvider.Shutdown(shutdownTimeout)
			}
		},
	}
)

func init() {
	cobra.EnablePrefixMatching = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "configuration file path")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "optional dotenv file path")

	rootCmd.AddCommand(
		issueCmd,
		distributeCmd,
		deriveVaultCmd,
		confirmCmd,
		workerCmd,
	)
}

// commandContext carries the metrics provider to the operations a command
// runs.
func commandContext(cmd *cobra.Command) context.Context {
	return metrics.NewContext(cmd.Context(), metricsProvider)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "launchpad failed: %v\n", err)
		os.Exit(1)
	}
}
