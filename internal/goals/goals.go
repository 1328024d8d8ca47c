// Package goals stores user-defined learning goals in the remote document store.
package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// Service reads and writes the goals collection. Every call is scoped to one user.
type Service struct {
	coll   docstore.Collection
	logger *log.Logger
	now    func() time.Time
}

// NewService creates a [Service] over coll.
func NewService(coll docstore.Collection, logger *log.Logger) *Service {
	return &Service{coll: coll, logger: logger, now: time.Now}
}

// List returns uid's goals, newest first.
func (s *Service) List(ctx context.Context, uid string) ([]models.Goal, error) {
	var goals []models.Goal
	if err := s.coll.Find(ctx, bson.M{"userId": uid}, bson.D{{Key: "createdAt", Value: -1}}, &goals); err != nil {
		return nil, fmt.Errorf("%w: goals of %s: %v", shared.ErrRemoteRead, uid, err)
	}
	return goals, nil
}

// Create stores a new goal for uid and returns its id.
func (s *Service) Create(ctx context.Context, uid string, draft models.GoalDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	unit := strings.TrimSpace(draft.Unit)
	if unit == "" {
		unit = draft.Type.DefaultUnit()
	}

	g := models.Goal{
		ID:          docstore.NewID(),
		UserID:      uid,
		Type:        draft.Type,
		Title:       strings.TrimSpace(draft.Title),
		Description: draft.Description,
		Target:      draft.Target,
		Unit:        unit,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.coll.Insert(ctx, g); err != nil {
		return "", s.writeErr("insert", g.ID, err)
	}
	s.logger.Debug("goal created", "user", uid, "goal", g.ID, "type", g.Type)
	return g.ID, nil
}

// Update applies patch to one of uid's goals.
func (s *Service) Update(ctx context.Context, uid, goalID string, patch models.GoalPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("%w: goal title is required", shared.ErrInvalidInput)
	}
	if patch.Target != nil && *patch.Target <= 0 {
		return fmt.Errorf("%w: goal target must be positive", shared.ErrInvalidInput)
	}
	if err := s.coll.Patch(ctx, bson.M{"_id": goalID, "userId": uid}, bson.M(fields)); err != nil {
		return s.writeErr("patch", goalID, err)
	}
	return nil
}

// Delete removes one of uid's goals.
func (s *Service) Delete(ctx context.Context, uid, goalID string) error {
	if err := s.coll.Remove(ctx, bson.M{"_id": goalID, "userId": uid}); err != nil {
		return s.writeErr("remove", goalID, err)
	}
	s.logger.Debug("goal deleted", "user", uid, "goal", goalID)
	return nil
}

func (s *Service) writeErr(op, id string, err error) error {
	if errors.Is(err, docstore.ErrNoDocument) {
		err = shared.ErrNotFound
	}
	return &shared.RemoteWriteError{Op: op, Collection: s.coll.Name(), ID: id, Err: err}
}
