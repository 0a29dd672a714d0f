package services

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
)

func testDevices() []domain.Device {
	return []domain.Device{
		{ID: "id-pc1", Name: "PC-001", Platform: "Windows", Owner: "alice@contoso.com"},
		{ID: "id-pc2", Name: "PC-002", Platform: "Windows"},
		{ID: "id-mac", Name: "MAC-01", Platform: "macOS"},
		{ID: "id-ios1", Name: "IPHONE-1", Platform: "iOS"},
		{ID: "id-ios2", Name: "IPHONE-2", Platform: "iOS"},
		{ID: "id-ipad", Name: "IPAD-1", Platform: "iPadOS"},
	}
}

func newTestSyncService(client *mockDeviceClient) (*BulkSyncService, *mockSessionProvider, *mockPacer) {
	sessions := newMockSessionProvider(client)
	pacer := &mockPacer{}
	svc := NewBulkSyncService(sessions, pacer, nil)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return svc, sessions, pacer
}

func outcomeKinds(report *domain.ResultReport) []domain.OutcomeKind {
	kinds := make([]domain.OutcomeKind, len(report.Outcomes))
	for i, o := range report.Outcomes {
		kinds[i] = o.Kind
	}
	return kinds
}

// --- SyncByNames ---

func TestSyncByNames_MixedFoundAndMissing(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, sessions, pacer := newTestSyncService(client)

	report, err := svc.SyncByNames(context.Background(), []string{"PC-001", "PC-002", "GHOST-1"}, driving.SyncOptions{})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, domain.Counts{Requested: 3, Found: 2, NotFound: 1, Synced: 2, Failed: 0}, report.Counts)
	assert.Equal(t, []string{"id-pc1", "id-pc2"}, client.calls())
	assert.Equal(t, 2, pacer.count())
	assert.Equal(t, 1, client.listCount())
	assert.Equal(t, domain.RunModeNames, report.Mode)
	assert.Equal(t, "app-1234", report.Principal)
	assert.Equal(t, "run-1", report.ID)
	assert.False(t, report.Cancelled)
	assert.Equal(t, 1, sessions.session.closed)
}

func TestSyncByNames_NotFoundNamesAreNotPaced(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, pacer := newTestSyncService(client)

	report, err := svc.SyncByNames(context.Background(), []string{"GHOST-1", "GHOST-2", "PC-001", "GHOST-3"}, driving.SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.NotFound)
	assert.Equal(t, []string{"id-pc1"}, client.calls())
	assert.Equal(t, 1, pacer.count(), "only the sync call waits")
}

func TestSyncByNames_DuplicateNameSecondCallFails(t *testing.T) {
	base := &mockDeviceClient{devices: testDevices()}
	client := &flakyClient{mockDeviceClient: base, failOn: 2}
	svc, _, _ := newTestSyncService(base)
	svc.sessions = newMockSessionProvider(client)

	report, err := svc.SyncByNames(context.Background(), []string{"PC-001", "PC-001"}, driving.SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.Counts{Requested: 2, Found: 2, NotFound: 0, Synced: 1, Failed: 1}, report.Counts)
	assert.Equal(t, []domain.OutcomeKind{domain.OutcomeSynced, domain.OutcomeFailed}, outcomeKinds(report))
	assert.Contains(t, report.Outcomes[1].Reason, "503 service unavailable")
	assert.Equal(t, "id-pc1", report.Outcomes[1].DeviceID)
}

func TestSyncByNames_Properties(t *testing.T) {
	names := []string{"GHOST-1", "MAC-01", "PC-002", "GHOST-2", "PC-001", "pc-001"}
	client := &mockDeviceClient{
		devices:  testDevices(),
		syncErrs: map[string]error{"id-pc2": errBoom},
	}
	svc, _, _ := newTestSyncService(client)

	report, err := svc.SyncByNames(context.Background(), names, driving.SyncOptions{})
	require.NoError(t, err)

	// Completeness.
	require.Len(t, report.Outcomes, len(names))
	assert.Equal(t, report.Requested, report.Found+report.NotFound)
	assert.Equal(t, report.Found, report.Synced+report.Failed)

	// Order preservation and exclusivity.
	for i, o := range report.Outcomes {
		assert.Equal(t, names[i], o.Name)
		assert.True(t, o.Kind.IsValid())
	}
	assert.Equal(t, []domain.OutcomeKind{
		domain.OutcomeNotFound,
		domain.OutcomeSynced,
		domain.OutcomeFailed,
		domain.OutcomeNotFound,
		domain.OutcomeSynced,
		domain.OutcomeNotFound, // lookup is case-sensitive
	}, outcomeKinds(report))
}

func TestSyncByNames_FetchFailureAborts(t *testing.T) {
	client := &mockDeviceClient{
		devices: testDevices(),
		listErr: domain.NewTransportError("list devices", errors.New("401 unauthorized")),
	}
	svc, sessions, pacer := newTestSyncService(client)
	store := &mockReportStore{}
	svc.reports = store

	report, err := svc.SyncByNames(context.Background(), []string{"X"}, driving.SyncOptions{})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "401 unauthorized")
	assert.Empty(t, client.calls())
	assert.Zero(t, pacer.count())
	assert.Empty(t, store.reports)
	assert.Equal(t, 1, sessions.session.closed, "session released on early abort")
}

func TestSyncByNames_FetchFailureWrapsPlainErrors(t *testing.T) {
	client := &mockDeviceClient{listErr: errBoom}
	svc, _, _ := newTestSyncService(client)

	_, err := svc.SyncByNames(context.Background(), []string{"X"}, driving.SyncOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, errBoom)
}

func TestSyncByNames_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"nil list", nil},
		{"empty list", []string{}},
		{"blank entry", []string{"PC-001", "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockDeviceClient{devices: testDevices()}
			svc, sessions, _ := newTestSyncService(client)

			report, err := svc.SyncByNames(context.Background(), tt.names, driving.SyncOptions{})
			assert.Nil(t, report)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Zero(t, sessions.acquired, "no session before validation passes")
			assert.Zero(t, client.listCount())
		})
	}
}

func TestSyncByNames_SessionFailure(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, sessions, _ := newTestSyncService(client)
	sessions.err = domain.ErrAuthRequired

	report, err := svc.SyncByNames(context.Background(), []string{"PC-001"}, driving.SyncOptions{})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Contains(t, err.Error(), "acquire session")
	assert.Zero(t, client.listCount())
}

func TestSyncByNames_NilSessionProvider(t *testing.T) {
	svc := NewBulkSyncService(nil, &mockPacer{}, nil)

	_, err := svc.SyncByNames(context.Background(), []string{"PC-001"}, driving.SyncOptions{})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestSyncByNames_EmitsProgress(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, _ := newTestSyncService(client)

	var events []domain.ProgressEvent
	opts := driving.SyncOptions{Progress: func(ev domain.ProgressEvent) {
		events = append(events, ev)
	}}

	_, err := svc.SyncByNames(context.Background(), []string{"PC-001", "GHOST"}, opts)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Index)
	assert.Equal(t, 2, events[0].Total)
	assert.Equal(t, domain.OutcomeSynced, events[0].Outcome.Kind)
	assert.Equal(t, 1, events[0].Counts.Synced)
	assert.Equal(t, 2, events[1].Index)
	assert.Equal(t, domain.OutcomeNotFound, events[1].Outcome.Kind)
	assert.Equal(t, 1, events[1].Counts.NotFound)
}

func TestSyncByNames_OutcomeCarriesDeviceDetails(t *testing.T) {
	seen := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	devices := testDevices()
	devices[0].LastSyncAt = &seen
	client := &mockDeviceClient{devices: devices}
	svc, _, _ := newTestSyncService(client)

	report, err := svc.SyncByNames(context.Background(), []string{"PC-001"}, driving.SyncOptions{})
	require.NoError(t, err)

	o := report.Outcomes[0]
	assert.Equal(t, "id-pc1", o.DeviceID)
	assert.Equal(t, "Windows", o.Platform)
	assert.Equal(t, "alice@contoso.com", o.Owner)
	require.NotNil(t, o.LastSyncAt)
	assert.True(t, seen.Equal(*o.LastSyncAt))
}

func TestSyncByNames_CancelAtDeviceBoundary(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, sessions, _ := newTestSyncService(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onTrigger = func(string) { cancel() }

	report, err := svc.SyncByNames(ctx, []string{"PC-001", "PC-002", "MAC-01"}, driving.SyncOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report, "partial report is returned")

	assert.True(t, report.Cancelled)
	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, 1, report.Synced, "in-flight call completes")
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, []string{"id-pc1"}, client.calls())
	assert.Equal(t, 1, sessions.session.closed)
}

func TestSyncByNames_TriggerDetachedFromCancellation(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, _ := newTestSyncService(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onTrigger = func(string) { cancel() }

	_, _ = svc.SyncByNames(ctx, []string{"PC-001"}, driving.SyncOptions{})

	require.Len(t, client.triggerCtxs, 1)
	assert.NoError(t, client.triggerCtxs[0].Err())
}

func TestSyncByNames_SavesReport(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, _ := newTestSyncService(client)
	store := &mockReportStore{}
	svc.reports = store

	report, err := svc.SyncByNames(context.Background(), []string{"PC-001"}, driving.SyncOptions{})
	require.NoError(t, err)

	require.Len(t, store.reports, 1)
	assert.Equal(t, report.ID, store.reports[0].ID)
	assert.Equal(t, 1, store.reports[0].Synced)
}

func TestSyncByNames_SaveFailureIsNotFatal(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, _ := newTestSyncService(client)
	svc.reports = &mockReportStore{saveErr: errBoom}

	report, err := svc.SyncByNames(context.Background(), []string{"PC-001"}, driving.SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
}

func TestSyncByNames_RejectsConcurrentRun(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, _ := newTestSyncService(client)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once stdsync.Once
	client.onTrigger = func(string) {
		once.Do(func() { close(entered) })
		<-release
	}

	var wg stdsync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.SyncByNames(context.Background(), []string{"PC-001"}, driving.SyncOptions{})
	}()

	<-entered
	_, err := svc.SyncByPlatform(context.Background(), domain.PlatformWindows, driving.SyncOptions{})
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(release)
	wg.Wait()

	client.onTrigger = nil
	_, err = svc.SyncByNames(context.Background(), []string{"PC-001"}, driving.SyncOptions{})
	assert.NoError(t, err, "guard released after run")
}

// --- SyncByPlatform ---

func TestSyncByPlatform_EmptySetShortCircuits(t *testing.T) {
	client := &mockDeviceClient{devices: []domain.Device{
		{ID: "id-mac", Name: "MAC-01", Platform: "macOS"},
	}}
	svc, _, pacer := newTestSyncService(client)

	report, err := svc.SyncByPlatform(context.Background(), domain.PlatformWindows, driving.SyncOptions{})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, domain.Counts{}, report.Counts)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, client.calls())
	assert.Zero(t, pacer.count())
	assert.Equal(t, domain.PlatformWindows, report.Platform)
	assert.Equal(t, domain.RunModePlatform, report.Mode)
}

func TestSyncByPlatform_IOSIncludesIPadOS(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, pacer := newTestSyncService(client)

	report, err := svc.SyncByPlatform(context.Background(), domain.PlatformIOS, driving.SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 3, report.Synced)
	assert.Zero(t, report.NotFound)
	assert.ElementsMatch(t, []string{"id-ios1", "id-ios2", "id-ipad"}, client.calls())
	assert.Equal(t, 3, pacer.count())
}

func TestSyncByPlatform_UsesServerFilterWhenSupported(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices(), filterable: true}
	svc, _, _ := newTestSyncService(client)

	report, err := svc.SyncByPlatform(context.Background(), domain.PlatformIOS, driving.SyncOptions{})
	require.NoError(t, err)

	require.Len(t, client.listQueries, 1)
	assert.Equal(t, []string{"iOS", "iPadOS"}, client.listQueries[0].Tags)
	// Filtered locally as well, so a lax server filter is harmless.
	assert.Equal(t, 3, report.Requested)
}

func TestSyncByPlatform_FailuresRecorded(t *testing.T) {
	client := &mockDeviceClient{
		devices:  testDevices(),
		syncErrs: map[string]error{"id-pc1": errBoom},
	}
	svc, _, _ := newTestSyncService(client)

	var events []domain.ProgressEvent
	report, err := svc.SyncByPlatform(context.Background(), domain.PlatformWindows, driving.SyncOptions{
		Progress: func(ev domain.ProgressEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Counts{Requested: 2, Found: 2, Synced: 1, Failed: 1}, report.Counts)
	assert.Equal(t, []domain.OutcomeKind{domain.OutcomeFailed, domain.OutcomeSynced}, outcomeKinds(report))
	require.Len(t, events, 2)
	assert.Equal(t, domain.PlatformWindows, events[1].Platform)
}

func TestSyncByPlatform_FetchFailure(t *testing.T) {
	client := &mockDeviceClient{listErr: errBoom}
	svc, _, _ := newTestSyncService(client)

	report, err := svc.SyncByPlatform(context.Background(), domain.PlatformWindows, driving.SyncOptions{})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Empty(t, client.calls())
}

func TestSyncByPlatform_UnknownPlatform(t *testing.T) {
	client := &mockDeviceClient{}
	svc, sessions, _ := newTestSyncService(client)

	_, err := svc.SyncByPlatform(context.Background(), domain.Platform("BeOS"), driving.SyncOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, sessions.acquired)
}

// --- SyncAllPlatforms ---

func TestSyncAllPlatforms_AggregatesInOrder(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, sessions, _ := newTestSyncService(client)

	agg, err := svc.SyncAllPlatforms(context.Background(), domain.DefaultPlatforms(), driving.SyncOptions{})
	require.NoError(t, err)

	require.Len(t, agg.Reports, 4)
	assert.Equal(t, domain.PlatformWindows, agg.Reports[0].Platform)
	assert.Equal(t, domain.PlatformMacOS, agg.Reports[1].Platform)
	assert.Equal(t, domain.PlatformIOS, agg.Reports[2].Platform)
	assert.Equal(t, domain.PlatformAndroid, agg.Reports[3].Platform)

	assert.Equal(t, 2, agg.Reports[0].Synced)
	assert.Equal(t, 1, agg.Reports[1].Synced)
	assert.Equal(t, 3, agg.Reports[2].Synced)
	assert.Zero(t, agg.Reports[3].Requested)

	assert.Equal(t, domain.Counts{Requested: 6, Found: 6, Synced: 6}, agg.Total)
	assert.Equal(t, 1, sessions.acquired, "one session for the whole run")
	assert.Equal(t, 1, sessions.session.closed)
}

func TestSyncAllPlatforms_FetchFailureIsolated(t *testing.T) {
	base := &mockDeviceClient{devices: testDevices()}
	client := &platformFailClient{mockDeviceClient: base, failOnCall: 2}
	svc, _, _ := newTestSyncService(base)
	svc.sessions = newMockSessionProvider(client)

	platforms := []domain.Platform{domain.PlatformWindows, domain.PlatformMacOS, domain.PlatformIOS}
	agg, err := svc.SyncAllPlatforms(context.Background(), platforms, driving.SyncOptions{})
	require.NoError(t, err)

	require.Len(t, agg.Reports, 3)
	assert.Equal(t, 2, agg.Reports[0].Synced)

	failed := agg.Reports[1]
	assert.Equal(t, domain.PlatformMacOS, failed.Platform)
	assert.Equal(t, domain.Counts{}, failed.Counts)
	assert.Contains(t, failed.FetchError, "boom")
	assert.True(t, failed.HasProblems())

	assert.Equal(t, 3, agg.Reports[2].Synced)
	assert.Equal(t, 5, agg.Total.Synced)
	assert.True(t, agg.HasProblems())
}

func TestSyncAllPlatforms_SessionFailureAborts(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, sessions, _ := newTestSyncService(client)
	sessions.err = errBoom

	agg, err := svc.SyncAllPlatforms(context.Background(), domain.DefaultPlatforms(), driving.SyncOptions{})
	assert.Nil(t, agg)
	assert.ErrorIs(t, err, errBoom)
}

func TestSyncAllPlatforms_InvalidPlatforms(t *testing.T) {
	svc, _, _ := newTestSyncService(&mockDeviceClient{})

	_, err := svc.SyncAllPlatforms(context.Background(), nil, driving.SyncOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = svc.SyncAllPlatforms(context.Background(), []domain.Platform{"Amiga"}, driving.SyncOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSyncAllPlatforms_CancelStopsRemainingPlatforms(t *testing.T) {
	client := &mockDeviceClient{devices: testDevices()}
	svc, _, _ := newTestSyncService(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onTrigger = func(id string) {
		if id == "id-pc2" {
			cancel()
		}
	}

	agg, err := svc.SyncAllPlatforms(ctx, domain.DefaultPlatforms(), driving.SyncOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, agg)
	require.Len(t, agg.Reports, 1)
	assert.Equal(t, 2, agg.Reports[0].Synced)
	assert.Equal(t, []string{"id-pc1", "id-pc2"}, client.calls())
}

// --- helpers ---

// flakyClient fails the Nth trigger call.
type flakyClient struct {
	*mockDeviceClient
	failOn int
	n      int
}

func (c *flakyClient) TriggerSync(ctx context.Context, deviceID string) error {
	c.n++
	if err := c.mockDeviceClient.TriggerSync(ctx, deviceID); err != nil {
		return err
	}
	if c.n == c.failOn {
		return domain.NewTransportError("sync device", errors.New("503 service unavailable"))
	}
	return nil
}

// platformFailClient fails the Nth list call.
type platformFailClient struct {
	*mockDeviceClient
	failOnCall int
	n          int
}

func (c *platformFailClient) ListDevices(ctx context.Context, query domain.DeviceQuery) ([]domain.Device, error) {
	c.n++
	if c.n == c.failOnCall {
		return nil, errBoom
	}
	return c.mockDeviceClient.ListDevices(ctx, query)
}
