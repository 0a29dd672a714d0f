package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// mockSyncOrchestrator implements driving.BulkSyncOrchestrator for testing.
// It replays the outcomes of report through the progress callback.
type mockSyncOrchestrator struct {
	report    *domain.ResultReport
	aggregate *domain.AggregateReport
	err       error

	names     []string
	platform  domain.Platform
	platforms []domain.Platform
}

func (m *mockSyncOrchestrator) SyncByNames(
	_ context.Context, names []string, opts driving.SyncOptions,
) (*domain.ResultReport, error) {
	m.names = names
	m.replay(m.report, opts)
	return m.report, m.err
}

func (m *mockSyncOrchestrator) SyncByPlatform(
	_ context.Context, platform domain.Platform, opts driving.SyncOptions,
) (*domain.ResultReport, error) {
	m.platform = platform
	m.replay(m.report, opts)
	return m.report, m.err
}

func (m *mockSyncOrchestrator) SyncAllPlatforms(
	_ context.Context, platforms []domain.Platform, opts driving.SyncOptions,
) (*domain.AggregateReport, error) {
	m.platforms = platforms
	if m.aggregate != nil {
		for i := range m.aggregate.Reports {
			m.replay(&m.aggregate.Reports[i], opts)
		}
	}
	return m.aggregate, m.err
}

func (m *mockSyncOrchestrator) replay(r *domain.ResultReport, opts driving.SyncOptions) {
	if r == nil {
		return
	}
	for i, o := range r.Outcomes {
		opts.Emit(domain.ProgressEvent{Index: i + 1, Total: len(r.Outcomes), Outcome: o, Platform: r.Platform})
	}
}

// mockDeviceService implements driving.DeviceService for testing.
type mockDeviceService struct {
	devices  []domain.Device
	info     *driving.SessionInfo
	err      error
	platform domain.Platform
}

func (m *mockDeviceService) List(_ context.Context, platform domain.Platform) ([]domain.Device, error) {
	m.platform = platform
	return m.devices, m.err
}

func (m *mockDeviceService) Whoami(_ context.Context) (*driving.SessionInfo, error) {
	return m.info, m.err
}

// mockReportService implements driving.ReportService for testing.
type mockReportService struct {
	reports []domain.ResultReport
	report  *domain.ResultReport
	err     error
	limit   int
	id      string
}

func (m *mockReportService) List(_ context.Context, limit int) ([]domain.ResultReport, error) {
	m.limit = limit
	return m.reports, m.err
}

func (m *mockReportService) Get(_ context.Context, id string) (*domain.ResultReport, error) {
	m.id = id
	return m.report, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings domain.AppSettings
	err      error
	setErr   error

	setKey, setValue string
	secret           string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	m.setKey, m.setValue = key, value
	return m.setErr
}

func (m *mockSettingsService) SetClientSecret(secret string) error {
	m.secret = secret
	return m.setErr
}

func (m *mockSettingsService) Keys() []string {
	return []string{
		"graph.tenant_id", "graph.client_id", "graph.client_secret", "graph.access_token",
		"graph.base_url", "graph.authority_url", "sync.delay_ms", "sync.platforms",
		"audit.enabled", "watch.column",
	}
}

func (m *mockSettingsService) Path() string { return "/home/test/.intunesync/config.toml" }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

// setServices swaps in the given services and restores the previous ones
// and all flag variables when the test ends.
func setServices(t *testing.T, s Services) {
	t.Helper()
	old := Services{
		Sync:          syncOrchestrator,
		Devices:       deviceService,
		Reports:       reportService,
		Settings:      settingsService,
		EnvOverridden: envOverridden,
	}
	SetServices(s)
	t.Cleanup(func() {
		SetServices(old)
		resetFlags()
	})
}

func resetFlags() {
	verbose = false
	syncJSON, syncTUI, syncFailOnError = false, false, false
	syncFile, syncColumn = "", ""
	syncListColumns = false
	devicesPlatform, devicesJSON = "", false
	historyLimit, historyJSON = domain.DefaultHistoryListLimit, false
	watchColumn = ""
	mcpPort, mcpHost, mcpToken = 0, "127.0.0.1", ""
}

// execute runs the root command with args and returns everything written.
// Cobra only hands the root context to a subcommand whose own context is
// still unset, so ctx is pushed onto every command before each run.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	setContext(rootCmd, ctx)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, sub := range cmd.Commands() {
		setContext(sub, ctx)
	}
}

func nameReport() *domain.ResultReport {
	started := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	return &domain.ResultReport{
		ID:         "run-1",
		Mode:       domain.RunModeNames,
		Principal:  "app-1234@contoso",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Counts:     domain.Counts{Requested: 3, Found: 2, NotFound: 1, Synced: 1, Failed: 1},
		Outcomes: []domain.DeviceOutcome{
			{Name: "PC-001", DeviceID: "d-1", Platform: "Windows", Kind: domain.OutcomeSynced},
			{Name: "GHOST", Kind: domain.OutcomeNotFound},
			{Name: "MAC-01", DeviceID: "d-3", Platform: "macOS", Kind: domain.OutcomeFailed, Reason: "403 Forbidden"},
		},
	}
}

func cleanReport() *domain.ResultReport {
	r := nameReport()
	r.Counts = domain.Counts{Requested: 1, Found: 1, Synced: 1}
	r.Outcomes = r.Outcomes[:1]
	return r
}
