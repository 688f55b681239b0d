package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/cfo-assistant-go/internal/app"
	"github.com/boddenberg/cfo-assistant-go/internal/config"
	"github.com/boddenberg/cfo-assistant-go/internal/domain"
	"github.com/boddenberg/cfo-assistant-go/internal/infra/observability"
	"github.com/boddenberg/cfo-assistant-go/internal/service"
)

// owner is the tenant and user a command acts for.
type owner struct {
	tenant string
	user   string
}

// resolve reads the target from flags or environment. Every command acts
// for a user on a tenant that user has connected.
func (c *cli) resolve() (owner, error) {
	o := owner{tenant: c.v.GetString("tenant"), user: c.v.GetString("user")}
	if o.tenant == "" {
		return o, errors.New("tenant is required (--tenant or CFO_TENANT)")
	}
	if o.user == "" {
		return o, errors.New("user is required (--user or CFO_USER)")
	}
	return o, nil
}

// run builds the application, calls fn and prints its result. A batch cut
// short still prints the outcomes recorded before the error.
func (c *cli) run(ctx context.Context, fn func(ctx context.Context, a *app.App) (any, error)) error {
	cfg := config.Load()
	logger := observability.NewLogger(c.v.GetString("log_level"))
	defer logger.Sync()

	a, err := c.newApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer a.Close()

	result, err := fn(ctx, a)
	if err != nil {
		logger.Error("command failed", zap.Error(err))
		if partial, ok := result.(*domain.BatchResult); ok && partial != nil {
			_ = c.print(partial)
		}
		return err
	}
	return c.print(result)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// bindInt binds a command-local flag to the key "<command>.<flag>", so it
// can also be set as CFO_<COMMAND>_<FLAG>.
func (c *cli) bindInt(cmd *cobra.Command, name string, def int, usage string) {
	cmd.Flags().Int(name, def, usage)
	_ = c.v.BindPFlag(cmd.Name()+"."+name, cmd.Flags().Lookup(name))
}

func (c *cli) bindFloat(cmd *cobra.Command, name string, def float64, usage string) {
	cmd.Flags().Float64(name, def, usage)
	_ = c.v.BindPFlag(cmd.Name()+"."+name, cmd.Flags().Lookup(name))
}

func (c *cli) connectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect the user to a provider organisation",
	}
	cmd.Flags().String("name", "", "organisation name (defaults to the tenant id)")
	cmd.Flags().String("token", "", "access token for the organisation (empty uses XERO_ACCESS_TOKEN)")
	_ = c.v.BindPFlag("connect.name", cmd.Flags().Lookup("name"))
	_ = c.v.BindPFlag("connect.token", cmd.Flags().Lookup("token"))
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o, err := c.resolve()
		if err != nil {
			return err
		}
		req := domain.ConnectTenantRequest{
			TenantID:    o.tenant,
			TenantName:  c.v.GetString("connect.name"),
			AccessToken: c.v.GetString("connect.token"),
		}
		return c.run(cmd.Context(), func(ctx context.Context, a *app.App) (any, error) {
			return a.Services.Tenants.Connect(ctx, o.user, req)
		})
	}
	return cmd
}

func (c *cli) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy recent bank transactions into the local store",
	}
	c.bindInt(cmd, "days", 0, "look-back in days (0 uses SYNC_DAYS)")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o, err := c.resolve()
		if err != nil {
			return err
		}
		return c.run(cmd.Context(), func(ctx context.Context, a *app.App) (any, error) {
			return a.Services.Sync.SyncBankTransactions(ctx, o.user, o.tenant, c.v.GetInt("sync.days"))
		})
	}
	return cmd
}

func (c *cli) applyRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply-rules",
		Short: "Categorize uncategorized records with the automatic rules",
	}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o, err := c.resolve()
		if err != nil {
			return err
		}
		return c.run(cmd.Context(), func(ctx context.Context, a *app.App) (any, error) {
			return a.Services.Categorization.ApplyRules(ctx, o.user, o.tenant)
		})
	}
	return cmd
}

func (c *cli) forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project the daily cash balance",
	}
	c.bindInt(cmd, "days", 0, "horizon in days (0 uses FORECAST_DAYS)")
	c.bindFloat(cmd, "balance", 0, "current cash balance")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o, err := c.resolve()
		if err != nil {
			return err
		}
		req := service.ForecastRequest{
			Days:           c.v.GetInt("forecast.days"),
			CurrentBalance: c.v.GetFloat64("forecast.balance"),
		}
		return c.run(cmd.Context(), func(ctx context.Context, a *app.App) (any, error) {
			return a.Services.CashFlow.Forecast(ctx, o.user, o.tenant, req)
		})
	}
	return cmd
}

func (c *cli) issuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Flag liquidity problems in the cash forecast",
	}
	c.bindInt(cmd, "days", 0, "horizon in days (0 uses FORECAST_DAYS)")
	c.bindFloat(cmd, "balance", 0, "current cash balance")
	c.bindFloat(cmd, "low-balance", 0, "low balance threshold (0 uses LOW_BALANCE_THRESHOLD)")
	c.bindFloat(cmd, "significant-outflow", 0, "daily outflow threshold (0 uses SIGNIFICANT_OUTFLOW_THRESHOLD)")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o, err := c.resolve()
		if err != nil {
			return err
		}
		req := service.IssueRequest{
			ForecastRequest: service.ForecastRequest{
				Days:           c.v.GetInt("issues.days"),
				CurrentBalance: c.v.GetFloat64("issues.balance"),
			},
			LowBalanceThreshold:         c.v.GetFloat64("issues.low-balance"),
			SignificantOutflowThreshold: c.v.GetFloat64("issues.significant-outflow"),
		}
		return c.run(cmd.Context(), func(ctx context.Context, a *app.App) (any, error) {
			return a.Services.CashFlow.DetectIssues(ctx, o.user, o.tenant, req)
		})
	}
	return cmd
}

func (c *cli) anomaliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Scan recent activity and print the anomaly report",
	}
	c.bindInt(cmd, "months", 0, "look-back in months (0 uses ANOMALY_MONTHS)")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o, err := c.resolve()
		if err != nil {
			return err
		}
		return c.run(cmd.Context(), func(ctx context.Context, a *app.App) (any, error) {
			return a.Services.Anomaly.Report(ctx, o.user, o.tenant, c.v.GetInt("anomalies.months"))
		})
	}
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Score business health from the provider reports",
	}
	c.bindInt(cmd, "months", 0, "reporting period in months (0 uses KPI_MONTHS)")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		o, err := c.resolve()
		if err != nil {
			return err
		}
		return c.run(cmd.Context(), func(ctx context.Context, a *app.App) (any, error) {
			return a.Services.KPI.HealthScore(ctx, o.user, o.tenant, c.v.GetInt("health.months"))
		})
	}
	return cmd
}
