package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetrack/internal/auth"
	"github.com/desertthunder/tubetrack/internal/migration"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
	"github.com/desertthunder/tubetrack/internal/store"
)

func newGoogleLogin(r *Runner) *auth.GoogleLogin {
	return auth.NewGoogleLogin(r.config, r.output, r.logger)
}

// AuthLogin signs in with Google, or with an explicit identity for development.
//
// Signing in triggers the one-time migration of playlists stored on this device.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	var id models.Identity
	if cmd.Bool("google") {
		if strings.HasPrefix(r.config.Auth.Google.ClientID, "your_") {
			return fmt.Errorf("%w: set auth.google.client_id in config.toml", shared.ErrMissingCredentials)
		}
		var err error
		if id, err = r.login(ctx); err != nil {
			return err
		}
	} else {
		id = models.Identity{
			UserID:      strings.TrimSpace(cmd.String("user")),
			Email:       cmd.String("email"),
			DisplayName: cmd.String("name"),
		}
		if id.UserID == "" {
			return fmt.Errorf("%w: --user or --google", shared.ErrMissingArgument)
		}
	}

	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	if current, ok := e.provider.Identity(); ok && current.UserID != id.UserID {
		r.writePlain("→ Signing out %s first\n", current.UserID)
	}

	if err := e.provider.SignIn(id); err != nil {
		return err
	}
	r.printProgress()

	r.writePlain("✓ Signed in as %s\n", displayName(id))
	if err := e.controller.LastError(); err != nil {
		r.reportMigrationError(err)
		return nil
	}
	kind, _ := e.facade.Backend()
	r.writePlain("Storage: %s\n", kind)
	return nil
}

// AuthLogout signs out and returns to on-device storage.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	id, ok := e.provider.Identity()
	if !ok {
		return r.writePlain("Not signed in\n")
	}
	if err := e.provider.SignOut(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out %s\n", displayName(id))
}

// AuthStatus prints who is signed in and where playlists are stored.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	e, err := r.session(ctx)
	if err != nil {
		return err
	}

	kind, owner := e.facade.Backend()
	id, ok := e.provider.Identity()
	if !ok {
		r.writePlain("Signed in: no (guest)\n")
		r.writePlain("Storage: %s\n", kind)
		r.writePlain("Playlists on this device: %d\n", e.local.Count())
		return nil
	}

	status, err := e.coordinator.Status(id.UserID)
	if err != nil {
		r.logger.Warn("migration marker unreadable", "user", id.UserID, "err", err)
	}
	r.writePlain("Signed in: %s\n", displayName(id))
	if id.Email != "" {
		r.writePlain("Email: %s\n", id.Email)
	}
	r.writePlain("Storage: %s (%s)\n", kind, owner)
	r.writePlain("Migration: %s\n", status.Marker)
	if status.LocalPlaylists > 0 {
		r.writePlain("Playlists waiting on this device: %d\n", status.LocalPlaylists)
	}
	if status.LastFailure != nil {
		r.writePlain("%s\n", r.palette.Warn.Render("Last migration failed: "+status.LastFailure.Error()))
	}
	return nil
}

func displayName(id models.Identity) string {
	if id.DisplayName != "" {
		return fmt.Sprintf("%s (%s)", id.DisplayName, id.UserID)
	}
	return id.UserID
}

// printProgress writes buffered migration progress.
func (r *Runner) printProgress() {
	if r.env == nil {
		return
	}
	for {
		select {
		case u := <-r.env.progress:
			switch {
			case u.Err != nil:
				r.writePlain("  %s\n", r.palette.Err.Render(fmt.Sprintf("✗ [%d/%d] %s: %v", u.Step, u.Total, u.Message, u.Err)))
			case u.Phase == migration.PhaseCheck || u.Phase == migration.PhaseFinalize:
				r.writePlain("→ %s\n", u.Message)
			default:
				r.writePlain("  [%d/%d] %s\n", u.Step, u.Total, u.Message)
			}
		default:
			return
		}
	}
}

func (r *Runner) reportMigrationError(err error) {
	var partial *migration.PartialFailure
	switch {
	case errors.Is(err, shared.ErrMigrationInterrupted):
		r.writePlain("%s\n", r.palette.Warn.Render("⚠ A previous migration was interrupted. Your playlists stay on this device."))
		r.writePlain("Run 'tubetrack migrate recover' to finish it.\n")
	case errors.As(err, &partial):
		r.writePlain("%s\n", r.palette.Warn.Render(fmt.Sprintf("⚠ Migration incomplete: %d copied, %d still on this device.", len(partial.Migrated), len(partial.Failed))))
	default:
		r.writePlain("%s\n", r.palette.Warn.Render("⚠ Staying on device storage: "+err.Error()))
	}
	if migration.IsRetryable(err) {
		r.writePlain("Your playlists stay on this device until the next sign-in or 'tubetrack migrate run'.\n")
	}
	r.writePlain("Storage: %s\n", store.BackendLocal)
}
