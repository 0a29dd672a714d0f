// Command intunesync triggers Intune device check-ins in bulk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/intunesync/internal/adapters/driven/auth"
	"github.com/custodia-labs/intunesync/internal/adapters/driven/config/env"
	"github.com/custodia-labs/intunesync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/intunesync/internal/adapters/driven/pacing"
	"github.com/custodia-labs/intunesync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/intunesync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/intunesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/core/services"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitProblems = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := file.DefaultDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	var base driven.ConfigStore
	fileStore, err := file.NewConfigStore(dir)
	if err != nil {
		// Settings can still come from the environment.
		logger.Warn("Config file unavailable, settings will not be saved: %v", err)
		base = memory.NewConfigStore()
	} else {
		base = fileStore
	}
	configStore, err := env.NewConfigStore(base, ".env", filepath.Join(dir, ".env"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	settingsService := services.NewSettingsService(configStore)

	// Invalid settings must not prevent 'config set' from repairing them.
	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("Using default settings: %v", err)
		defaults := settingsService.GetDefaults()
		settings = &defaults
	}

	reports, closeReports := openReportStore(settings, dir)
	defer closeReports()

	sessions := auth.NewProvider(settingsService, auth.WithUserAgent("intunesync/"+version))
	pacer := pacing.NewInterval(settings.Sync.Delay)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Sync:          services.NewBulkSyncService(sessions, pacer, reports),
		Devices:       services.NewDeviceService(sessions),
		Reports:       services.NewReportService(reports),
		Settings:      settingsService,
		EnvOverridden: configStore.Overridden,
	})

	err = cli.Execute(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, cli.ErrRunProblems):
		return exitProblems
	default:
		return exitError
	}
}

// openReportStore returns the run history store, or nil when audit is off.
// If the database cannot be opened, history is kept in memory for this
// process only.
func openReportStore(settings *domain.AppSettings, dir string) (driven.ReportStore, func()) {
	if !settings.Audit.Enabled {
		return nil, func() {}
	}

	store, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		logger.Warn("Run history unavailable, keeping it in memory: %v", err)
		return memory.NewReportStore(), func() {}
	}
	return store.ReportStore(), func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close history database: %v", err)
		}
	}
}
