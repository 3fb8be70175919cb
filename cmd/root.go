package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"shepherd/internal/app"
	"shepherd/internal/config"
)

// Persistent flags shared by all commands.
var (
	rootDebug      bool
	rootConfigPath string
)

// rootCmd is the base command. Called without a subcommand it runs the
// supervisor in the foreground.
var rootCmd = &cobra.Command{
	Use:   "shepherd [port]",
	Short: "Supervise the local automation stack",
	Long: `shepherd runs the local automation stack: it prepares the Python runtime
when needed, launches the API server, bootstraps its dependencies through the
server's own endpoints and keeps the provider daemon under control.

Without arguments the API server listens on port 8000. Pass a port number as
the only argument to override it; invalid values fall back to the default.`,
	Args: cobra.MaximumNArgs(1),
	// SilenceUsage keeps error output clean; usage on runtime failures
	// would only add noise.
	SilenceUsage: true,
	RunE:         runRoot,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI. It is called by main.main() and exits non-zero when
// a command fails.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "shepherd version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	application, err := app.NewApplication(&app.Config{
		Port:       parsePort(args),
		ConfigPath: rootConfigPath,
		Debug:      rootDebug,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

// parsePort interprets the optional positional argument. Invalid values fall
// back to the default port with a console warning instead of failing, so a
// sloppy invocation still brings the service up.
func parsePort(args []string) int {
	if len(args) == 0 {
		return 0
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port <= 0 || port > 65535 {
		fmt.Printf("Invalid port number, using default port %d\n", config.DefaultPort)
		return config.DefaultPort
	}
	return port
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Configuration file (default is $HOME/.config/shepherd/config.yaml)")

	rootCmd.AddCommand(newVersionCmd())
}
