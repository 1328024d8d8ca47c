package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
	"github.com/desertthunder/tubetrack/internal/store"
)

// Outcome classifies a successful or handled run.
type Outcome string

const (
	// OutcomeMigrated means local playlists were moved and the marker is completed.
	OutcomeMigrated Outcome = "migrated"
	// OutcomeNothingToMigrate means the local collection was empty.
	OutcomeNothingToMigrate Outcome = "nothing_to_migrate"
	// OutcomeAlreadyCompleted means the marker was already completed; nothing ran.
	OutcomeAlreadyCompleted Outcome = "already_completed"
	// OutcomeInterrupted means an earlier run left the marker in progress; nothing ran.
	OutcomeInterrupted Outcome = "interrupted"
	// OutcomeFailed means inserts or marker writes failed; local data is intact.
	OutcomeFailed Outcome = "failed"
)

// Result summarizes a run.
type Result struct {
	UserID   string
	Outcome  Outcome
	Total    int // local playlists considered
	Migrated int // inserted by this run
	Skipped  int // already present remotely from an earlier run
}

// Done reports whether the marker is completed and the remote collection may be read.
func (r Result) Done() bool {
	switch r.Outcome {
	case OutcomeMigrated, OutcomeNothingToMigrate, OutcomeAlreadyCompleted:
		return true
	}
	return false
}

// PartialFailure reports a run where some inserts failed.
//
// Inserts that succeeded stay in the remote store. Local data is untouched and
// the marker is reset to absent.
type PartialFailure struct {
	UserID   string
	Migrated []string // local ids now present remotely
	Failed   []string // local ids not migrated
	Err      error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("migration for %s: %d migrated, %d not migrated: %v",
		e.UserID, len(e.Migrated), len(e.Failed), e.Err)
}

func (e *PartialFailure) Unwrap() []error { return []error{shared.ErrMigrationPartial, e.Err} }

// Status is a read-only view of a user's migration.
type Status struct {
	UserID         string
	Marker         Marker
	LocalPlaylists int
	LastFailure    error
}

// Coordinator runs migrations.
type Coordinator struct {
	local   *store.LocalStore
	remote  *store.RemoteStore
	markers *Markers
	state   *SessionMigrationState
	logger  *log.Logger
}

// NewCoordinator creates a [Coordinator] owning state.
func NewCoordinator(local *store.LocalStore, remote *store.RemoteStore, markers *Markers, state *SessionMigrationState, logger *log.Logger) *Coordinator {
	return &Coordinator{local: local, remote: remote, markers: markers, state: state, logger: logger}
}

// Migrate evaluates the migration for a newly signed-in user.
//
// It is safe to call any number of times: a completed marker short-circuits,
// overlapping calls share one run, and a remembered failure is returned
// without touching the remote store until [Coordinator.SignOut].
// progress may be nil; updates are dropped rather than blocking the run.
func (c *Coordinator) Migrate(ctx context.Context, userID string, progress chan<- ProgressUpdate) (Result, error) {
	if strings.TrimSpace(userID) == "" || userID == models.GuestOwner {
		return Result{}, fmt.Errorf("%w: user id %q", shared.ErrInvalidArgument, userID)
	}
	return c.state.Do(userID, func() (Result, error) {
		return c.run(ctx, userID, progress)
	})
}

// Retry forgets a remembered failure for userID and evaluates the migration again.
// An interrupted marker still needs [Coordinator.Recover].
func (c *Coordinator) Retry(ctx context.Context, userID string, progress chan<- ProgressUpdate) (Result, error) {
	c.state.Forget(userID)
	return c.Migrate(ctx, userID, progress)
}

// Recover is the explicit action for an interrupted migration: it resets the
// marker and runs again. Playlists already copied by the interrupted run are skipped.
func (c *Coordinator) Recover(ctx context.Context, userID string, progress chan<- ProgressUpdate) (Result, error) {
	marker, err := c.markers.Get(userID)
	if err != nil {
		c.logger.Warn("unreadable migration marker, resetting", "user", userID, "err", err)
	}
	if marker == MarkerCompleted {
		return Result{UserID: userID, Outcome: OutcomeAlreadyCompleted}, nil
	}

	if err := c.markers.Clear(userID); err != nil {
		return Result{UserID: userID, Outcome: OutcomeFailed}, err
	}
	c.state.Forget(userID)
	c.logger.Info("recovering migration", "user", userID, "marker", marker)
	return c.Migrate(ctx, userID, progress)
}

// SignOut clears the marker and the in-memory guard so the next sign-in is evaluated fresh.
func (c *Coordinator) SignOut(userID string) error {
	c.state.Forget(userID)
	if err := c.markers.Clear(userID); err != nil {
		return err
	}
	c.logger.Debug("migration state cleared", "user", userID)
	return nil
}

// Status reports the marker, the local collection size and any remembered failure.
func (c *Coordinator) Status(userID string) (Status, error) {
	marker, err := c.markers.Get(userID)
	return Status{
		UserID:         userID,
		Marker:         marker,
		LocalPlaylists: c.local.Count(),
		LastFailure:    c.state.LastFailure(userID),
	}, err
}

func (c *Coordinator) run(ctx context.Context, userID string, progress chan<- ProgressUpdate) (Result, error) {
	logger := shared.WithLogger(c.logger, "user", userID)
	result := Result{UserID: userID}

	marker, err := c.markers.Get(userID)
	if err != nil {
		// An unreadable marker could hide in_progress; refuse rather than risk duplicates.
		logger.Error("migration marker unreadable", "err", err)
		result.Outcome = OutcomeFailed
		return result, err
	}

	switch marker {
	case MarkerCompleted:
		result.Outcome = OutcomeAlreadyCompleted
		return result, nil
	case MarkerInProgress:
		logger.Warn("previous migration was interrupted; run recovery to retry", "marker", marker)
		result.Outcome = OutcomeInterrupted
		return result, shared.ErrMigrationInterrupted
	}

	playlists := c.local.LoadAll()
	result.Total = len(playlists)
	sendProgress(progress, ProgressUpdate{Phase: PhaseCheck, Total: result.Total, Message: fmt.Sprintf("%d local playlists", result.Total)})

	if len(playlists) == 0 {
		if err := c.markers.Set(userID, MarkerCompleted); err != nil {
			result.Outcome = OutcomeFailed
			return result, err
		}
		result.Outcome = OutcomeNothingToMigrate
		logger.Debug("nothing to migrate")
		return result, nil
	}

	if err := c.markers.Set(userID, MarkerInProgress); err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}
	logger.Info("migrating local playlists", "count", len(playlists))

	migrated, err := c.copyAll(ctx, userID, playlists, progress, &result)
	if err != nil {
		failure := &PartialFailure{UserID: userID, Migrated: migrated, Err: err}
		for _, p := range playlists[len(migrated):] {
			failure.Failed = append(failure.Failed, p.ID)
		}
		c.reset(logger, userID)
		logger.Error("migration failed; staying on local data",
			"migrated", len(failure.Migrated), "remaining", len(failure.Failed), "err", err)
		result.Outcome = OutcomeFailed
		return result, failure
	}

	sendProgress(progress, ProgressUpdate{Phase: PhaseFinalize, Step: result.Total, Total: result.Total, Message: "clearing local playlists"})
	if err := c.local.SaveAll(nil); err != nil {
		// Remote holds every playlist; a retry will skip them all and clear again.
		c.reset(logger, userID)
		result.Outcome = OutcomeFailed
		return result, err
	}
	if err := c.markers.Set(userID, MarkerCompleted); err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}

	result.Outcome = OutcomeMigrated
	logger.Info("migration completed", "migrated", result.Migrated, "skipped", result.Skipped)
	return result, nil
}

// copyAll inserts playlists in order, stopping at the first failure.
// It returns the local ids present remotely.
func (c *Coordinator) copyAll(ctx context.Context, userID string, playlists []models.Playlist, progress chan<- ProgressUpdate, result *Result) ([]string, error) {
	existing, err := c.imported(ctx, userID)
	if err != nil {
		return nil, err
	}

	migrated := make([]string, 0, len(playlists))
	for i, p := range playlists {
		step := ProgressUpdate{Step: i + 1, Total: len(playlists), PlaylistID: p.ID}

		if _, ok := existing[p.ID]; ok {
			result.Skipped++
			migrated = append(migrated, p.ID)
			step.Phase, step.Message = PhaseSkip, fmt.Sprintf("%s already migrated", p.Name)
			sendProgress(progress, step)
			continue
		}

		draft := p.Draft()
		draft.MigratedFrom = p.ID
		if _, err := c.remote.Create(ctx, userID, draft); err != nil {
			step.Phase, step.Message, step.Err = PhaseInsert, fmt.Sprintf("failed to migrate %s", p.Name), err
			sendProgress(progress, step)
			return migrated, err
		}

		result.Migrated++
		migrated = append(migrated, p.ID)
		step.Phase, step.Message = PhaseInsert, fmt.Sprintf("migrated %s", p.Name)
		sendProgress(progress, step)
	}
	return migrated, nil
}

// imported maps migratedFrom keys already present in the user's remote collection.
func (c *Coordinator) imported(ctx context.Context, userID string) (map[string]string, error) {
	remote, err := c.remote.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]string, len(remote))
	for _, p := range remote {
		if p.MigratedFrom != "" {
			keys[p.MigratedFrom] = p.ID
		}
	}
	return keys, nil
}

func (c *Coordinator) reset(logger *log.Logger, userID string) {
	if err := c.markers.Clear(userID); err != nil {
		logger.Error("failed to reset migration marker", "err", err)
	}
}

// IsRetryable reports whether a later sign-in evaluation may run the migration again.
// Interrupted runs need [Coordinator.Recover].
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, shared.ErrMigrationInterrupted) {
		return false
	}
	var pf *PartialFailure
	return errors.As(err, &pf) || errors.Is(err, shared.ErrRemoteRead) || errors.Is(err, shared.ErrRemoteWrite)
}
