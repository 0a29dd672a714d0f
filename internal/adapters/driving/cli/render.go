package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/intunesync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/intunesync/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// outputStyles returns coloured styles when the command writes to a terminal.
func outputStyles(cmd *cobra.Command) *styles.Styles {
	if isTerminal(cmd.OutOrStdout()) {
		return styles.DefaultStyles()
	}
	return styles.Plain()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// progressPrinter returns a progress callback that prints one line per device.
func progressPrinter(w io.Writer, st *styles.Styles) func(domain.ProgressEvent) {
	return func(ev domain.ProgressEvent) {
		width := len(strconv.Itoa(ev.Total))
		prefix := fmt.Sprintf("[%*d/%d]", width, ev.Index, ev.Total)
		fmt.Fprintf(w, "%s %s\n", st.Muted.Render(prefix), outcomeLine(st, ev.Outcome))
	}
}

func outcomeLine(st *styles.Styles, o domain.DeviceOutcome) string {
	line := fmt.Sprintf("%s %-24s %-10s %s", styles.OutcomeSymbol(o.Kind), o.Name, o.Platform, o.Kind.Description())
	if o.Reason != "" {
		line += ": " + o.Reason
	}
	return st.Outcome(o.Kind).Render(line)
}

// renderReport writes a report header, its outcomes and the summary.
func renderReport(w io.Writer, st *styles.Styles, r *domain.ResultReport) {
	title := fmt.Sprintf("Run %s", r.ID)
	if r.Platform != "" {
		title += " (" + r.Platform.String() + ")"
	} else {
		title += " (" + string(r.Mode) + ")"
	}
	fmt.Fprintln(w, st.Title.Render(title))
	fmt.Fprintln(w, st.Label.Render("Started")+r.StartedAt.Local().Format(timeLayout))
	fmt.Fprintln(w, st.Label.Render("Duration")+formatDuration(r.Duration()))
	if r.Principal != "" {
		fmt.Fprintln(w, st.Label.Render("Principal")+r.Principal)
	}
	fmt.Fprintln(w)

	for _, o := range r.Outcomes {
		fmt.Fprintln(w, outcomeLine(st, o))
	}
	if len(r.Outcomes) > 0 {
		fmt.Fprintln(w)
	}
	renderSummary(w, st, r)
}

// renderSummary writes the counts line and any run-level problems.
func renderSummary(w io.Writer, st *styles.Styles, r *domain.ResultReport) {
	if r.FetchError != "" {
		fmt.Fprintln(w, st.Error.Render(fmt.Sprintf("%s: could not fetch devices: %s", r.Platform, r.FetchError)))
		return
	}
	prefix := ""
	if r.Platform != "" {
		prefix = r.Platform.String() + ": "
	}
	fmt.Fprintln(w, prefix+countsLine(st, r.Counts))
	if r.Cancelled {
		fmt.Fprintln(w, st.Warning.Render("Cancelled. Counts cover the devices processed before the stop."))
	}
}

func renderAggregate(w io.Writer, st *styles.Styles, agg *domain.AggregateReport) {
	for i := range agg.Reports {
		renderSummary(w, st, &agg.Reports[i])
	}
	if len(agg.Reports) > 1 {
		fmt.Fprintln(w, st.Title.Render("Total: ")+countsLine(st, agg.Total))
	}
}

func countsLine(st *styles.Styles, c domain.Counts) string {
	parts := []string{
		fmt.Sprintf("%d requested", c.Requested),
		st.Success.Render(fmt.Sprintf("%d synced", c.Synced)),
		st.Error.Render(fmt.Sprintf("%d failed", c.Failed)),
		st.Warning.Render(fmt.Sprintf("%d not found", c.NotFound)),
	}
	return strings.Join(parts, " · ")
}

// newTable returns a borderless table with a styled header row.
func newTable(st *styles.Styles, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Subtitle.PaddingRight(2)
			}
			return st.Normal.PaddingRight(2)
		}).
		Headers(headers...)
}

func renderDevices(w io.Writer, st *styles.Styles, devices []domain.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices found.")
		return
	}
	t := newTable(st, "NAME", "PLATFORM", "OWNER", "LAST SYNC")
	for i := range devices {
		d := &devices[i]
		t.Row(d.Name, d.Platform, d.Owner, formatLastSync(d))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, st.Muted.Render(fmt.Sprintf("%d devices", len(devices))))
}

func renderReportList(w io.Writer, st *styles.Styles, reports []domain.ResultReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	t := newTable(st, "ID", "STARTED", "TARGET", "SYNCED", "FAILED", "NOT FOUND")
	for i := range reports {
		r := &reports[i]
		target := string(r.Mode)
		if r.Platform != "" {
			target = r.Platform.String()
		}
		if r.Cancelled {
			target += " (cancelled)"
		}
		t.Row(r.ID, r.StartedAt.Local().Format(timeLayout), target,
			strconv.Itoa(r.Synced), strconv.Itoa(r.Failed), strconv.Itoa(r.NotFound))
	}
	fmt.Fprintln(w, t.Render())
}

func formatLastSync(d *domain.Device) string {
	if d.NeverSynced() {
		return "never"
	}
	return d.LastSyncAt.Local().Format(timeLayout)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
