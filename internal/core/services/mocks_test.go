package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockDeviceClient implements driven.DeviceClient for testing.
type mockDeviceClient struct {
	mu sync.Mutex

	devices      []domain.Device
	listErr      error
	syncErrs     map[string]error
	filterable   bool
	onTrigger    func(deviceID string)
	listQueries  []domain.DeviceQuery
	triggerCalls []string
	triggerCtxs  []context.Context
}

func (m *mockDeviceClient) ListDevices(_ context.Context, query domain.DeviceQuery) ([]domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listQueries = append(m.listQueries, query)
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

func (m *mockDeviceClient) TriggerSync(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	m.triggerCalls = append(m.triggerCalls, deviceID)
	m.triggerCtxs = append(m.triggerCtxs, ctx)
	hook := m.onTrigger
	err := m.syncErrs[deviceID]
	m.mu.Unlock()

	if hook != nil {
		hook(deviceID)
	}
	return err
}

func (m *mockDeviceClient) Capabilities() driven.ClientCapabilities {
	return driven.ClientCapabilities{SupportsPlatformFilter: m.filterable}
}

func (m *mockDeviceClient) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.triggerCalls))
	copy(out, m.triggerCalls)
	return out
}

func (m *mockDeviceClient) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listQueries)
}

// mockSession implements driven.Session for testing.
type mockSession struct {
	client    driven.DeviceClient
	principal string
	roles     []string
	closed    int
}

func (s *mockSession) Client() driven.DeviceClient { return s.client }
func (s *mockSession) Principal() string           { return s.principal }
func (s *mockSession) Method() domain.AuthMethod   { return domain.AuthMethodClientCredentials }
func (s *mockSession) Roles() []string             { return s.roles }

func (s *mockSession) Close() error {
	s.closed++
	return nil
}

// mockSessionProvider implements driven.SessionProvider for testing.
type mockSessionProvider struct {
	session  *mockSession
	err      error
	acquired int
}

func newMockSessionProvider(client driven.DeviceClient) *mockSessionProvider {
	return &mockSessionProvider{
		session: &mockSession{client: client, principal: "app-1234"},
	}
}

func (p *mockSessionProvider) Acquire(_ context.Context) (driven.Session, error) {
	p.acquired++
	if p.err != nil {
		return nil, p.err
	}
	return p.session, nil
}

// mockPacer implements driven.Pacer and counts waits.
type mockPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *mockPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *mockPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// mockReportStore implements driven.ReportStore for testing.
type mockReportStore struct {
	mu      sync.Mutex
	reports []domain.ResultReport
	saveErr error
}

func (s *mockReportStore) Save(_ context.Context, report *domain.ResultReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.reports = append(s.reports, *report)
	return nil
}

func (s *mockReportStore) Get(_ context.Context, id string) (*domain.ResultReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].ID == id {
			r := s.reports[i]
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockReportStore) List(_ context.Context, limit int) ([]domain.ResultReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ResultReport
	for i := len(s.reports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.reports[i])
	}
	return out, nil
}

var errBoom = errors.New("boom")
