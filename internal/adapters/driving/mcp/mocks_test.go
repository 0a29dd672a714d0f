package mcp

import (
	"context"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

// mockSyncOrchestrator is a mock implementation of driving.BulkSyncOrchestrator.
type mockSyncOrchestrator struct {
	report    *domain.ResultReport
	aggregate *domain.AggregateReport
	err       error

	names     []string
	platform  domain.Platform
	platforms []domain.Platform
}

func (m *mockSyncOrchestrator) SyncByNames(
	_ context.Context,
	names []string,
	_ driving.SyncOptions,
) (*domain.ResultReport, error) {
	m.names = names
	return m.report, m.err
}

func (m *mockSyncOrchestrator) SyncByPlatform(
	_ context.Context,
	platform domain.Platform,
	_ driving.SyncOptions,
) (*domain.ResultReport, error) {
	m.platform = platform
	return m.report, m.err
}

func (m *mockSyncOrchestrator) SyncAllPlatforms(
	_ context.Context,
	platforms []domain.Platform,
	_ driving.SyncOptions,
) (*domain.AggregateReport, error) {
	m.platforms = platforms
	return m.aggregate, m.err
}

// mockDeviceService is a mock implementation of driving.DeviceService.
type mockDeviceService struct {
	devices  []domain.Device
	err      error
	platform domain.Platform
}

func (m *mockDeviceService) List(_ context.Context, platform domain.Platform) ([]domain.Device, error) {
	m.platform = platform
	return m.devices, m.err
}

func (m *mockDeviceService) Whoami(_ context.Context) (*driving.SessionInfo, error) {
	return &driving.SessionInfo{Principal: "app", Method: domain.AuthMethodStaticToken}, m.err
}

// mockReportService is a mock implementation of driving.ReportService.
type mockReportService struct {
	reports []domain.ResultReport
	report  *domain.ResultReport
	err     error
	limit   int
}

func (m *mockReportService) List(_ context.Context, limit int) ([]domain.ResultReport, error) {
	m.limit = limit
	return m.reports, m.err
}

func (m *mockReportService) Get(_ context.Context, _ string) (*domain.ResultReport, error) {
	return m.report, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(_, _ string) error { return m.err }
func (m *mockSettingsService) SetClientSecret(_ string) error { return m.err }
func (m *mockSettingsService) Keys() []string { return nil }
func (m *mockSettingsService) Path() string { return "" }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
