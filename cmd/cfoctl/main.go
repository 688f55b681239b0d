// Command cfoctl runs the analytics and ledger jobs from a scheduler and
// prints the result as JSON.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/app"
	"github.com/boddenberg/cfo-assistant-go/internal/config"
)

// cli carries the settings shared by every command.
type cli struct {
	v   *viper.Viper
	out io.Writer

	// newApp is replaced in tests.
	newApp func(cfg *config.Config, logger *zap.Logger) (*app.App, error)
}

func newCLI(out io.Writer) *cli {
	return &cli{v: viper.New(), out: out, newApp: app.New}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cfoctl",
		Short: "Run CFO assistant jobs against one tenant",
		Long: `cfoctl runs the same operations as the HTTP API for job schedulers:
connecting tenants, syncing bank transactions, applying categorization
rules and producing forecasts, anomaly scans and health scores.

Every flag can also be set through the environment, e.g. CFO_TENANT.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.initConfig,
	}

	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().String("tenant", "", "provider tenant id")
	root.PersistentFlags().String("user", "", "user the command acts for")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	_ = c.v.BindPFlag("env_file", root.PersistentFlags().Lookup("env-file"))
	_ = c.v.BindPFlag("tenant", root.PersistentFlags().Lookup("tenant"))
	_ = c.v.BindPFlag("user", root.PersistentFlags().Lookup("user"))
	_ = c.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		c.connectCmd(),
		c.syncCmd(),
		c.applyRulesCmd(),
		c.forecastCmd(),
		c.issuesCmd(),
		c.anomaliesCmd(),
		c.healthCmd(),
	)
	root.SetOut(c.out)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCLI(os.Stdout).rootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (c *cli) initConfig(_ *cobra.Command, _ []string) error {
	c.v.SetEnvPrefix("CFO")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.v.AutomaticEnv()

	if err := config.LoadDotEnv(c.v.GetString("env_file")); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
