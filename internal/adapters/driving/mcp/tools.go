package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// ListDevicesInput is the input schema for the list_devices tool.
type ListDevicesInput struct {
	Platform string `json:"platform,omitempty" jsonschema:"only list devices of this platform (Windows, macOS, iOS, Android, Linux)"`
}

// ListDevicesOutput is the output schema for the list_devices tool.
type ListDevicesOutput struct {
	Devices []DeviceOutput `json:"devices"`
	Count   int            `json:"count"`
}

// DeviceOutput represents a single managed device.
type DeviceOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Platform   string `json:"platform"`
	Owner      string `json:"owner,omitempty"`
	LastSyncAt string `json:"last_sync_at"`
}

// SyncDevicesInput is the input schema for the sync_devices tool.
type SyncDevicesInput struct {
	Names []string `json:"names" jsonschema:"exact device names to sync, processed in order"`
}

// SyncPlatformInput is the input schema for the sync_platform tool.
type SyncPlatformInput struct {
	Platform string `json:"platform" jsonschema:"platform whose devices to sync (Windows, macOS, iOS, Android, Linux)"`
}

// SyncAllPlatformsInput is the input schema for the sync_all_platforms tool.
type SyncAllPlatformsInput struct {
	Platforms []string `json:"platforms,omitempty" jsonschema:"platforms to sync in order (default: the configured list)"`
}

// ListReportsInput is the input schema for the list_reports tool.
type ListReportsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of reports to return (default 20)"`
}

// ReportOutput summarises one run.
type ReportOutput struct {
	ID         string          `json:"id"`
	Mode       string          `json:"mode"`
	Platform   string          `json:"platform,omitempty"`
	StartedAt  string          `json:"started_at"`
	Duration   string          `json:"duration"`
	Counts     domain.Counts   `json:"counts"`
	Cancelled  bool            `json:"cancelled,omitempty"`
	FetchError string          `json:"fetch_error,omitempty"`
	Outcomes   []OutcomeOutput `json:"outcomes,omitempty"`
}

// OutcomeOutput is the result for one device.
type OutcomeOutput struct {
	Name     string `json:"name"`
	DeviceID string `json:"device_id,omitempty"`
	Platform string `json:"platform,omitempty"`
	Result   string `json:"result"`
	Reason   string `json:"reason,omitempty"`
}

// SyncAllPlatformsOutput is the output schema for the sync_all_platforms tool.
type SyncAllPlatformsOutput struct {
	Reports []ReportOutput `json:"reports"`
	Total   domain.Counts  `json:"total"`
}

// ListReportsOutput is the output schema for the list_reports tool.
type ListReportsOutput struct {
	Reports []ReportOutput `json:"reports"`
	Count   int            `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_devices",
		Description: "Trigger a sync on each named managed device",
	}, s.handleSyncDevices)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_platform",
		Description: "Trigger a sync on every managed device of one platform",
	}, s.handleSyncPlatform)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_all_platforms",
		Description: "Trigger a sync on every managed device, one platform at a time",
	}, s.handleSyncAllPlatforms)

	if s.ports.Devices != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_devices",
			Description: "List managed devices with their last check-in time",
		}, s.handleListDevices)
	}

	if s.ports.Reports != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_reports",
			Description: "List recent sync runs, newest first",
		}, s.handleListReports)
	}
}

// handleListDevices handles the list_devices tool invocation.
func (s *Server) handleListDevices(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDevicesInput,
) (*mcp.CallToolResult, ListDevicesOutput, error) {
	if s.ports.Devices == nil {
		return nil, ListDevicesOutput{}, errors.New("device listing is not available")
	}

	var platform domain.Platform
	if input.Platform != "" {
		p, err := domain.ParsePlatform(input.Platform)
		if err != nil {
			return nil, ListDevicesOutput{}, err
		}
		platform = p
	}

	devices, err := s.ports.Devices.List(ctx, platform)
	if err != nil {
		return nil, ListDevicesOutput{}, err
	}

	output := ListDevicesOutput{
		Devices: make([]DeviceOutput, len(devices)),
		Count:   len(devices),
	}
	for i := range devices {
		d := &devices[i]
		output.Devices[i] = DeviceOutput{
			ID:         d.ID,
			Name:       d.Name,
			Platform:   d.Platform,
			Owner:      d.Owner,
			LastSyncAt: formatLastSync(d),
		}
	}
	return nil, output, nil
}

// handleSyncDevices handles the sync_devices tool invocation.
func (s *Server) handleSyncDevices(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncDevicesInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	report, err := s.ports.Sync.SyncByNames(ctx, input.Names, driving.SyncOptions{})
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, toReportOutput(report, true), nil
}

// handleSyncPlatform handles the sync_platform tool invocation.
func (s *Server) handleSyncPlatform(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncPlatformInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	platform, err := domain.ParsePlatform(input.Platform)
	if err != nil {
		return nil, ReportOutput{}, err
	}

	report, err := s.ports.Sync.SyncByPlatform(ctx, platform, driving.SyncOptions{})
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, toReportOutput(report, true), nil
}

// handleSyncAllPlatforms handles the sync_all_platforms tool invocation.
func (s *Server) handleSyncAllPlatforms(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncAllPlatformsInput,
) (*mcp.CallToolResult, SyncAllPlatformsOutput, error) {
	platforms, err := s.platforms(input.Platforms)
	if err != nil {
		return nil, SyncAllPlatformsOutput{}, err
	}

	agg, err := s.ports.Sync.SyncAllPlatforms(ctx, platforms, driving.SyncOptions{})
	if err != nil {
		return nil, SyncAllPlatformsOutput{}, err
	}

	output := SyncAllPlatformsOutput{
		Reports: make([]ReportOutput, len(agg.Reports)),
		Total:   agg.Total,
	}
	for i := range agg.Reports {
		output.Reports[i] = toReportOutput(&agg.Reports[i], true)
	}
	return nil, output, nil
}

// handleListReports handles the list_reports tool invocation.
func (s *Server) handleListReports(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListReportsInput,
) (*mcp.CallToolResult, ListReportsOutput, error) {
	if s.ports.Reports == nil {
		return nil, ListReportsOutput{}, domain.ErrAuditUnavailable
	}

	reports, err := s.ports.Reports.List(ctx, input.Limit)
	if err != nil {
		return nil, ListReportsOutput{}, err
	}

	output := ListReportsOutput{
		Reports: make([]ReportOutput, len(reports)),
		Count:   len(reports),
	}
	for i := range reports {
		output.Reports[i] = toReportOutput(&reports[i], false)
	}
	return nil, output, nil
}

// platforms resolves the requested platform list, falling back to the
// configured one and then to the defaults.
func (s *Server) platforms(names []string) ([]domain.Platform, error) {
	if len(names) > 0 {
		return domain.ParsePlatforms(names)
	}
	if s.ports.Settings != nil {
		settings, err := s.ports.Settings.Get()
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		if len(settings.Sync.Platforms) > 0 {
			return settings.Sync.Platforms, nil
		}
	}
	return domain.DefaultPlatforms(), nil
}

func toReportOutput(r *domain.ResultReport, withOutcomes bool) ReportOutput {
	out := ReportOutput{
		ID:         r.ID,
		Mode:       string(r.Mode),
		Platform:   r.Platform.String(),
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		Duration:   r.Duration().Round(time.Millisecond).String(),
		Counts:     r.Counts,
		Cancelled:  r.Cancelled,
		FetchError: r.FetchError,
	}
	if !withOutcomes {
		return out
	}
	out.Outcomes = make([]OutcomeOutput, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out.Outcomes[i] = OutcomeOutput{
			Name:     o.Name,
			DeviceID: o.DeviceID,
			Platform: o.Platform,
			Result:   string(o.Kind),
			Reason:   o.Reason,
		}
	}
	return out
}

func formatLastSync(d *domain.Device) string {
	if d.NeverSynced() {
		return "never"
	}
	return d.LastSyncAt.UTC().Format(time.RFC3339)
}
