package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"shepherd/internal/app"
	"shepherd/internal/cli"
	"shepherd/internal/config"
	"shepherd/internal/deploy"
	"shepherd/internal/environment"
	"shepherd/internal/execx"
	"shepherd/internal/formatting"
	"shepherd/internal/provider"
	"shepherd/pkg/logging"
	pkgstrings "shepherd/pkg/strings"
)

// serverProbeTimeout bounds the API server reachability check.
const serverProbeTimeout = 2 * time.Second

var (
	statusOutput string
	statusQuiet  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the environment, API server and provider daemon",
	Long: `Checks all three managed pieces from the outside: the runtime environment
on disk, the API server over HTTP and the provider daemon through its control
binary. Works whether or not a supervisor is currently running.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// serverStatus is the API server part of the status report.
type serverStatus struct {
	State string `json:"status" yaml:"status"`
	URL   string `json:"url" yaml:"url"`
}

// statusReport aggregates the state of everything shepherd manages.
type statusReport struct {
	Environment environment.Status `json:"environment" yaml:"environment"`
	Server      serverStatus       `json:"server" yaml:"server"`
	Provider    provider.Status    `json:"provider" yaml:"provider"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	level := logging.LevelError
	if rootDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	format, err := formatting.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var report statusReport
	quiet := statusQuiet || format != formatting.FormatTable
	cli.WithSpinner(quiet, " Gathering status...", func() {
		report = gatherStatus(ctx, cfg)
	})

	switch format {
	case formatting.FormatJSON:
		return formatting.JSON(os.Stdout, report)
	case formatting.FormatYAML:
		return formatting.YAML(os.Stdout, report)
	default:
		renderStatusTable(report)
		return nil
	}
}

// gatherStatus samples all components. Each probe is independent, so one
// broken piece never hides the state of the others.
func gatherStatus(ctx context.Context, cfg config.Config) statusReport {
	baseDir := app.ResolveBaseDir(cfg.BaseDir)
	runner := execx.NewRunner()

	deployment := deploy.New(cfg, baseDir, app.Embedded(), runner)
	serverURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Port)

	return statusReport{
		Environment: deployment.Probe(ctx),
		Server:      probeServer(ctx, serverURL),
		Provider:    app.BuildProviderController(cfg, baseDir, runner).Status(ctx),
	}
}

// probeServer checks whether the API server answers on its documentation
// endpoint, which FastAPI serves once the application is up.
func probeServer(ctx context.Context, baseURL string) serverStatus {
	status := serverStatus{State: "unreachable", URL: baseURL}

	reqCtx, cancel := context.WithTimeout(ctx, serverProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/docs", nil)
	if err != nil {
		return status
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		status.State = "running"
	}
	return status
}

func renderStatusTable(report statusReport) {
	t := formatting.NewTable(os.Stdout, "COMPONENT", "STATE", "DETAIL")

	t.AppendRow(table.Row{"environment", formatting.State(string(report.Environment.State)), pkgstrings.Truncate(report.Environment.Detail, pkgstrings.DefaultDetailMaxLen)})
	t.AppendRow(table.Row{"api server", formatting.State(report.Server.State), report.Server.URL})
	t.AppendRow(table.Row{"provider", formatting.State(report.Provider.State), providerDetail(report.Provider)})

	t.Render()
}

// providerDetail condenses a provider status into one table cell. The
// message wins when present, otherwise the raw daemon output is used.
func providerDetail(st provider.Status) string {
	detail := st.Message
	if detail == "" {
		detail = st.Output
	}
	return pkgstrings.Truncate(detail, pkgstrings.DefaultDetailMaxLen)
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", string(formatting.FormatTable), "Output format: table, json or yaml")
	statusCmd.Flags().BoolVarP(&statusQuiet, "quiet", "q", false, "Suppress the progress spinner")

	rootCmd.AddCommand(statusCmd)
}
