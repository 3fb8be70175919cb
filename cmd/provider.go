package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"shepherd/internal/app"
	"shepherd/internal/cli"
	"shepherd/internal/config"
	"shepherd/internal/execx"
	"shepherd/internal/formatting"
	"shepherd/internal/provider"
	"shepherd/pkg/logging"
)

var providerStatusOutput string

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Control the provider daemon directly",
	Long: `Talks to the provider daemon without going through the API server.
Useful for operating the daemon while the service is down.`,
}

// withProviderController loads configuration and hands a wired controller
// plus a signal-aware context to fn.
func withProviderController(cmd *cobra.Command, level logging.LogLevel, fn func(ctx context.Context, ctl *provider.Controller) error) error {
	if rootDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stdout)

	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseDir := app.ResolveBaseDir(cfg.BaseDir)
	return fn(ctx, app.BuildProviderController(cfg, baseDir, execx.NewRunner()))
}

// reportResult turns a controller result into command output: a styled
// confirmation on success, an error for cobra to surface otherwise.
func reportResult(res provider.Result) error {
	if !res.Success() {
		return errors.New(res.Message)
	}
	fmt.Println(cli.FormatSuccess(res.Message))
	return nil
}

var providerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the provider daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProviderController(cmd, logging.LevelInfo, func(ctx context.Context, ctl *provider.Controller) error {
			return reportResult(ctl.Start(ctx))
		})
	},
}

var providerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the provider daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProviderController(cmd, logging.LevelInfo, func(ctx context.Context, ctl *provider.Controller) error {
			return reportResult(ctl.Stop(ctx))
		})
	},
}

var providerInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the provider if it is not present",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProviderController(cmd, logging.LevelInfo, func(ctx context.Context, ctl *provider.Controller) error {
			return reportResult(ctl.Install(ctx))
		})
	},
}

var providerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the provider daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatting.ParseFormat(providerStatusOutput)
		if err != nil {
			return err
		}

		return withProviderController(cmd, logging.LevelError, func(ctx context.Context, ctl *provider.Controller) error {
			st := ctl.Status(ctx)

			switch format {
			case formatting.FormatJSON:
				return formatting.JSON(os.Stdout, st)
			case formatting.FormatYAML:
				return formatting.YAML(os.Stdout, st)
			default:
				renderProviderStatus(st)
				return nil
			}
		})
	},
}

func renderProviderStatus(st provider.Status) {
	t := formatting.NewTable(os.Stdout, "KEY", "VALUE")

	t.AppendRow(table.Row{"status", formatting.State(st.State)})
	if st.Message != "" {
		t.AppendRow(table.Row{"message", st.Message})
	}
	t.AppendRow(table.Row{"checked", st.Timestamp.Format("2006-01-02 15:04:05")})
	t.Render()

	if st.Output != "" {
		fmt.Println()
		fmt.Println(st.Output)
	}
}

func init() {
	providerStatusCmd.Flags().StringVarP(&providerStatusOutput, "output", "o", string(formatting.FormatTable), "Output format: table, json or yaml")

	providerCmd.AddCommand(providerStartCmd)
	providerCmd.AddCommand(providerStopCmd)
	providerCmd.AddCommand(providerStatusCmd)
	providerCmd.AddCommand(providerInstallCmd)

	rootCmd.AddCommand(providerCmd)
}
