package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/kestrel/internal/bytesize"
	"github.com/marmos91/kestrel/internal/cli/output"
	"github.com/marmos91/kestrel/pkg/config"
	"github.com/marmos91/kestrel/pkg/diagnostics"
)

var (
	statusAddress string
	statusOutput  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running application",
	Long: `Query the diagnostics server of a running application and print its
bootstrap status: process role, initializer phase, wiring steps and
which subsystems have been constructed.

Examples:
  # Status of the application configured in the default config file
  kestrel status

  # Query an explicit address, as JSON
  kestrel status --address 127.0.0.1:9240 -o json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddress, "address", "", "Diagnostics address (default: from config)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// statusView renders a diagnostics status report as a table of steps.
type statusView struct {
	diagnostics.Status
}

func (v statusView) Headers() []string {
	return []string{"Step", "Optional", "Duration", "Result"}
}

func (v statusView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Steps))
	for _, s := range v.Steps {
		result := "ok"
		switch {
		case s.Skipped:
			result = "skipped"
		case s.Error != "":
			result = s.Error
		}
		rows = append(rows, []string{s.Step, strconv.FormatBool(s.Optional), s.Duration.String(), result})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	addr := statusAddress
	if addr == "" {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		addr = net.JoinHostPort(cfg.Diagnostics.Address, strconv.Itoa(cfg.Diagnostics.Port))
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/status")
	if err != nil {
		return fmt.Errorf("application unreachable at %s: %w", addr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Status string             `json:"status"`
		Data   diagnostics.Status `json:"data"`
		Error  string             `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to parse status response: %w", err)
	}
	if body.Error != "" {
		return fmt.Errorf("status request failed: %s", body.Error)
	}

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.Print(out, format, body.Data)
	}

	st := body.Data
	pairs := [][2]string{
		{"Address", addr},
		{"Version", st.Version},
		{"Role", st.Role},
		{"Phase", st.Phase},
		{"Ready", strconv.FormatBool(st.Ready)},
		{"Uptime", st.Uptime},
		{"Pending permissions", strconv.Itoa(st.PendingPermissions)},
	}
	if st.Sessions != nil {
		pairs = append(pairs, [2]string{"Sessions", strconv.Itoa(st.Sessions.Sessions)})
	}
	if st.Process != nil {
		pairs = append(pairs,
			[2]string{"PID", strconv.Itoa(int(st.Process.PID))},
			[2]string{"RSS", bytesize.ByteSize(st.Process.RSSBytes).String()},
			[2]string{"Goroutines", strconv.Itoa(st.Process.Goroutines)},
		)
	}
	output.PrintPairs(out, pairs)

	if len(st.Steps) > 0 {
		_, _ = fmt.Fprintln(out)
		output.PrintTable(out, statusView{st})
	}
	return nil
}
