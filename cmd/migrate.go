package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetrack/internal/kv"
	"github.com/desertthunder/tubetrack/internal/migration"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// MigrateStatus prints the signed-in user's migration marker and what is left on this device.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	id, ok := e.provider.Identity()
	if !ok {
		r.writePlain("Not signed in; %d playlist(s) stored on this device\n", e.local.Count())
		return r.printMarkers(e)
	}

	status, err := e.coordinator.Status(id.UserID)
	if err != nil {
		return fmt.Errorf("failed to read migration marker: %w", err)
	}
	r.writePlainHeader("Migration")
	r.writePlain("User: %s\n", displayName(id))
	r.writePlain("Marker: %s\n", status.Marker)
	r.writePlain("Playlists on this device: %d\n", status.LocalPlaylists)
	if status.LastFailure != nil {
		r.writePlain("Last failure: %v\n", status.LastFailure)
	}
	if status.Marker == migration.MarkerInProgress {
		r.writePlain("%s\n", r.palette.Warn.Render("Interrupted; run 'tubetrack migrate recover'"))
	}
	return nil
}

// MigrateRun retries the migration after a failure earlier in the session.
func (r *Runner) MigrateRun(ctx context.Context, cmd *cli.Command) error {
	return r.rerunMigration(ctx, func(e *env) (migration.Result, error) {
		return e.controller.Retry(ctx)
	})
}

// MigrateRecover resets an interrupted migration and runs it again.
func (r *Runner) MigrateRecover(ctx context.Context, cmd *cli.Command) error {
	return r.rerunMigration(ctx, func(e *env) (migration.Result, error) {
		return e.controller.Recover(ctx)
	})
}

// printMarkers lists migration markers still on this device; sign-out normally clears them.
func (r *Runner) printMarkers(e *env) error {
	entries, err := e.kv.MigrationKeys()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	r.writePlainln("Migration markers on this device:")
	for _, entry := range entries {
		userID := strings.TrimPrefix(entry.Key, kv.MigrationKey(""))
		marker, err := e.markers.Get(userID)
		if err != nil {
			r.logger.Warn("unreadable migration marker", "user", userID, "err", err)
			continue
		}
		r.writePlain("  %s  %s  %s\n", userID, marker, entry.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (r *Runner) rerunMigration(ctx context.Context, fn func(*env) (migration.Result, error)) error {
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	if e.controller.User() == "" {
		return fmt.Errorf("%w: run 'tubetrack auth login' first", shared.ErrNotAuthenticated)
	}

	result, err := fn(e)
	r.printProgress()
	if err != nil {
		r.reportMigrationError(err)
		return err
	}

	switch result.Outcome {
	case migration.OutcomeMigrated:
		r.writePlain("✓ Migrated %d playlist(s)", result.Migrated)
		if result.Skipped > 0 {
			r.writePlain(", %d already in your account", result.Skipped)
		}
		r.writePlain("\n")
	case migration.OutcomeNothingToMigrate:
		r.writePlain("✓ Nothing to migrate\n")
	case migration.OutcomeAlreadyCompleted:
		r.writePlain("✓ Migration already completed\n")
	}
	kind, _ := e.facade.Backend()
	return r.writePlain("Storage: %s\n", kind)
}
