package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// Ensure BulkSyncService implements the interface.
var _ driving.BulkSyncOrchestrator = (*BulkSyncService)(nil)

// BulkSyncService resolves target devices and triggers sync on each,
// one at a time, accumulating a ResultReport.
type BulkSyncService struct {
	sessions driven.SessionProvider
	pacer    driven.Pacer
	reports  driven.ReportStore

	newID func() string
	now   func() time.Time

	mu      sync.Mutex
	running bool
}

// NewBulkSyncService creates a new bulk sync orchestrator.
// The reports store is optional - if nil, finished reports are not persisted.
func NewBulkSyncService(
	sessions driven.SessionProvider,
	pacer driven.Pacer,
	reports driven.ReportStore,
) *BulkSyncService {
	return &BulkSyncService{
		sessions: sessions,
		pacer:    pacer,
		reports:  reports,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// SyncByNames syncs each named device in input order.
//
// The device snapshot is fetched once; a fetch failure aborts the run
// without a report. Lookup misses and trigger failures are recorded as
// outcomes and never abort the loop.
func (s *BulkSyncService) SyncByNames(
	ctx context.Context,
	names []string,
	opts driving.SyncOptions,
) (*domain.ResultReport, error) {
	if err := validateNames(names); err != nil {
		return nil, err
	}

	release, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(session)

	started := s.now()
	directory := NewDeviceDirectory(session.Client())
	invoker := NewSyncInvoker(session.Client())

	logger.Info("Starting sync of %d device names", len(names))
	snapshot, err := directory.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch devices: %w", err)
	}

	tally := domain.NewTally(s.newID(), domain.RunModeNames, len(names), started)
	tally.SetPrincipal(session.Principal())

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return s.cancel(tally, err)
		}

		var outcome domain.DeviceOutcome
		device := directory.FindByName(snapshot, name)
		if device == nil {
			logger.Debug("Not found: %s", name)
			outcome = domain.DeviceOutcome{Name: name, Kind: domain.OutcomeNotFound}
		} else {
			outcome, err = s.syncDevice(ctx, invoker, name, device)
			if err != nil {
				return s.cancel(tally, err)
			}
		}

		counts := tally.Record(outcome)
		opts.Emit(domain.ProgressEvent{
			Index:   i + 1,
			Total:   len(names),
			Outcome: outcome,
			Counts:  counts,
		})
	}

	return s.finish(tally), nil
}

// SyncByPlatform syncs every device of platform.
// A platform with no devices yields an all-zero report without any sync call.
func (s *BulkSyncService) SyncByPlatform(
	ctx context.Context,
	platform domain.Platform,
	opts driving.SyncOptions,
) (*domain.ResultReport, error) {
	if !platform.IsValid() {
		return nil, fmt.Errorf("%w: unknown platform %q", domain.ErrConfiguration, platform)
	}

	release, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(session)

	return s.runPlatform(ctx, session, platform, opts)
}

// SyncAllPlatforms runs a platform sync for each platform in order using a
// single session. A fetch failure for one platform is recorded as an empty
// report carrying the error and the remaining platforms continue.
func (s *BulkSyncService) SyncAllPlatforms(
	ctx context.Context,
	platforms []domain.Platform,
	opts driving.SyncOptions,
) (*domain.AggregateReport, error) {
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: no platforms selected", domain.ErrConfiguration)
	}
	for _, p := range platforms {
		if !p.IsValid() {
			return nil, fmt.Errorf("%w: unknown platform %q", domain.ErrConfiguration, p)
		}
	}

	release, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(session)

	reports := make([]domain.ResultReport, 0, len(platforms))
	for _, platform := range platforms {
		if err := ctx.Err(); err != nil {
			return domain.NewAggregateReport(reports), err
		}

		logger.Section(platform.String())
		report, err := s.runPlatform(ctx, session, platform, opts)
		switch {
		case err == nil:
			reports = append(reports, *report)
		case report != nil:
			// Cancelled part-way through this platform.
			reports = append(reports, *report)
			return domain.NewAggregateReport(reports), err
		case ctx.Err() != nil:
			return domain.NewAggregateReport(reports), ctx.Err()
		default:
			logger.Warn("Skipping %s: %v", platform, err)
			tally := domain.NewTally(s.newID(), domain.RunModePlatform, 0, s.now())
			tally.SetPlatform(platform)
			tally.SetPrincipal(session.Principal())
			tally.SetFetchError(err)
			reports = append(reports, *s.finish(tally))
		}
	}

	agg := domain.NewAggregateReport(reports)
	logger.Info("All platforms complete: %d synced, %d failed", agg.Total.Synced, agg.Total.Failed)
	return agg, nil
}

// runPlatform resolves and syncs one platform within an acquired session.
// It returns (nil, err) when the device set cannot be fetched and
// (partial, ctx.Err()) when cancelled.
func (s *BulkSyncService) runPlatform(
	ctx context.Context,
	session driven.Session,
	platform domain.Platform,
	opts driving.SyncOptions,
) (*domain.ResultReport, error) {
	started := s.now()
	directory := NewDeviceDirectory(session.Client())
	invoker := NewSyncInvoker(session.Client())

	devices, err := directory.FetchByPlatform(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("fetch %s devices: %w", platform, err)
	}

	tally := domain.NewTally(s.newID(), domain.RunModePlatform, len(devices), started)
	tally.SetPlatform(platform)
	tally.SetPrincipal(session.Principal())

	if len(devices) == 0 {
		logger.Info("No %s devices found", platform)
		return s.finish(tally), nil
	}

	logger.Info("Starting sync of %d %s devices", len(devices), platform)
	for i := range devices {
		if err := ctx.Err(); err != nil {
			return s.cancel(tally, err)
		}

		outcome, err := s.syncDevice(ctx, invoker, devices[i].Name, &devices[i])
		if err != nil {
			return s.cancel(tally, err)
		}

		counts := tally.Record(outcome)
		opts.Emit(domain.ProgressEvent{
			Index:    i + 1,
			Total:    len(devices),
			Outcome:  outcome,
			Counts:   counts,
			Platform: platform,
		})
	}

	return s.finish(tally), nil
}

// syncDevice waits for the pacer then triggers one sync.
// An error is returned only if the pacing wait was cancelled; a trigger
// failure is reported in the outcome. The trigger call itself is detached
// from ctx so that cancellation never aborts a call in flight.
func (s *BulkSyncService) syncDevice(
	ctx context.Context,
	invoker *SyncInvoker,
	name string,
	device *domain.Device,
) (domain.DeviceOutcome, error) {
	outcome := domain.DeviceOutcome{
		Name:       name,
		DeviceID:   device.ID,
		Platform:   device.Platform,
		Owner:      device.Owner,
		LastSyncAt: device.LastSyncAt,
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return outcome, err
	}

	if err := invoker.TriggerSync(context.WithoutCancel(ctx), device.ID); err != nil {
		logger.Debug("Failed: %s (%s): %v", name, device.ID, err)
		outcome.Kind = domain.OutcomeFailed
		var syncErr *domain.SyncError
		if errors.As(err, &syncErr) {
			outcome.Reason = syncErr.Reason()
		} else {
			outcome.Reason = err.Error()
		}
		return outcome, nil
	}

	logger.Debug("Synced: %s (%s)", name, device.ID)
	outcome.Kind = domain.OutcomeSynced
	return outcome, nil
}

// finish finalises the tally and hands the report to the audit store.
func (s *BulkSyncService) finish(tally *domain.Tally) *domain.ResultReport {
	report := tally.Report(s.now())
	logger.Info("Sync complete: %d requested, %d synced, %d failed, %d not found",
		report.Requested, report.Synced, report.Failed, report.NotFound)
	s.audit(report)
	return report
}

// cancel finalises a partial report after cancellation.
func (s *BulkSyncService) cancel(tally *domain.Tally, cause error) (*domain.ResultReport, error) {
	tally.MarkCancelled()
	logger.Warn("Sync cancelled after %d devices", tally.Counts().Processed())
	return s.finish(tally), cause
}

// audit persists report if a store is configured. Failures are logged only.
func (s *BulkSyncService) audit(report *domain.ResultReport) {
	if s.reports == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.reports.Save(ctx, report); err != nil {
		logger.Warn("Failed to save report %s: %v", report.ID, err)
	}
}

// acquire obtains a session for one run.
func (s *BulkSyncService) acquire(ctx context.Context) (driven.Session, error) {
	if s.sessions == nil {
		return nil, fmt.Errorf("acquire session: %w", domain.ErrAuthRequired)
	}
	session, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	logger.Debug("Session acquired for %s", session.Principal())
	return session, nil
}

// begin marks a run as in flight. Only one run may be active per service.
func (s *BulkSyncService) begin() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, domain.ErrSyncInProgress
	}
	s.running = true
	return func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}, nil
}

// closeSession releases session, logging any failure.
func closeSession(session driven.Session) {
	if err := session.Close(); err != nil {
		logger.Warn("Failed to close session: %v", err)
	}
}

// validateNames rejects empty target lists and blank names.
func validateNames(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: no device names given", domain.ErrConfiguration)
	}
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w: device name %d is blank", domain.ErrConfiguration, i+1)
		}
	}
	return nil
}
