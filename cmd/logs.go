package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shepherd/internal/config"
	"shepherd/internal/logtail"
	"shepherd/pkg/logging"
)

var (
	logsSource string
	logsLines  int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show logs from the managed processes",
	Long: `Prints the tail of one of the managed log files.

Sources:
  daemon    the provider daemon's own log
  provider  the provider agent log
  service   shepherd's service log

Unknown sources fall back to the daemon log. With --follow the command keeps
streaming new lines until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	level := logging.LevelError
	if rootDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}

	paths := logtail.Paths{
		Daemon:   cfg.Provider.DaemonLog,
		Provider: cfg.Provider.ProviderLog,
		Service:  cfg.LogFile,
	}
	path := paths.Resolve(logsSource)

	lines, err := logtail.Tail(path, logsLines)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("log file not found: %s", path)
		}
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}

	if !logsFollow {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logtail.NewFollower(path, time.Second).Run(ctx, os.Stdout); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	logsCmd.Flags().StringVarP(&logsSource, "source", "s", logtail.SourceDaemon, "Log source: daemon, provider or service")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", logtail.DefaultLines, "Number of lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep streaming new lines")

	rootCmd.AddCommand(logsCmd)
}
