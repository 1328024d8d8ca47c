// Package profiles maintains the public user profile document for signed-in users.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

const (
	usernameAttempts = 5
	searchLimit      = 10
)

// Service reads and writes the userProfiles collection.
type Service struct {
	coll   docstore.Collection
	logger *log.Logger
	now    func() time.Time
	suffix func() int
}

// NewService creates a [Service] over coll.
func NewService(coll docstore.Collection, logger *log.Logger) *Service {
	return &Service{
		coll:   coll,
		logger: logger,
		now:    time.Now,
		suffix: func() int { return rand.IntN(1000) },
	}
}

// EnsureProfile creates the profile on first sign-in and refreshes identity fields afterwards.
func (s *Service) EnsureProfile(ctx context.Context, id models.Identity) (models.UserProfile, error) {
	if id.UserID == "" || id.UserID == models.GuestOwner {
		return models.UserProfile{}, fmt.Errorf("%w: user id %q", shared.ErrInvalidArgument, id.UserID)
	}
	now := s.now().UTC()
	set := bson.M{
		"email":          id.Email,
		"displayName":    id.DisplayName,
		"lastActiveDate": now,
	}
	if id.PhotoURL != "" {
		set["photoURL"] = id.PhotoURL
	}

	existing, err := s.Get(ctx, id.UserID)
	switch {
	case err == nil:
		if err := s.coll.Patch(ctx, bson.M{"_id": id.UserID}, set); err != nil {
			return models.UserProfile{}, s.writeErr("patch", id.UserID, err)
		}
		s.logger.Debug("profile refreshed", "user", id.UserID, "username", existing.Username)
	case errors.Is(err, shared.ErrNotFound):
		username, err := s.availableUsername(ctx, id)
		if err != nil {
			return models.UserProfile{}, err
		}
		onInsert := bson.M{
			"username":   username,
			"isPublic":   true,
			"joinedDate": now,
			"stats":      models.CalculateStats(nil).ProfileStats(),
		}
		if err := s.coll.Upsert(ctx, id.UserID, onInsert, set); err != nil {
			return models.UserProfile{}, s.writeErr("upsert", id.UserID, err)
		}
		s.logger.Info("profile created", "user", id.UserID, "username", username)
	default:
		return models.UserProfile{}, err
	}

	return s.Get(ctx, id.UserID)
}

// Get reads a profile by user id.
func (s *Service) Get(ctx context.Context, uid string) (models.UserProfile, error) {
	var p models.UserProfile
	if err := s.coll.FindOne(ctx, bson.M{"_id": uid}, &p); err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			return models.UserProfile{}, fmt.Errorf("profile %s: %w", uid, shared.ErrNotFound)
		}
		return models.UserProfile{}, fmt.Errorf("%w: profile %s: %v", shared.ErrRemoteRead, uid, err)
	}
	return p, nil
}

// UpdateStats replaces the stats block and bumps lastActiveDate.
func (s *Service) UpdateStats(ctx context.Context, uid string, stats models.UserStats) error {
	fields := bson.M{"stats": stats.ProfileStats(), "lastActiveDate": s.now().UTC()}
	if err := s.coll.Patch(ctx, bson.M{"_id": uid}, fields); err != nil {
		return s.writeErr("patch", uid, err)
	}
	return nil
}

// GetByUsername reads a profile by its username.
func (s *Service) GetByUsername(ctx context.Context, username string) (models.UserProfile, error) {
	username = normalizeUsername(username)
	var p models.UserProfile
	if err := s.coll.FindOne(ctx, bson.M{"username": username}, &p); err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			return models.UserProfile{}, fmt.Errorf("user %s: %w", username, shared.ErrNotFound)
		}
		return models.UserProfile{}, fmt.Errorf("%w: user %s: %v", shared.ErrRemoteRead, username, err)
	}
	return p, nil
}

// IsUsernameAvailable reports whether no profile holds username.
func (s *Service) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, shared.ErrNotFound):
		return true, nil
	default:
		return false, err
	}
}

// Search returns public profiles whose username starts with prefix, in username order.
// A limit of zero or less means the default of 10.
func (s *Service) Search(ctx context.Context, prefix string, limit int) ([]models.UserProfile, error) {
	prefix = normalizeUsername(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: search term", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = searchLimit
	}

	var public []models.UserProfile
	if err := s.coll.Find(ctx, bson.M{"isPublic": true}, bson.D{{Key: "username", Value: 1}}, &public); err != nil {
		return nil, fmt.Errorf("%w: profile search: %v", shared.ErrRemoteRead, err)
	}
	found := make([]models.UserProfile, 0, limit)
	for _, p := range public {
		if strings.HasPrefix(p.Username, prefix) {
			found = append(found, p)
			if len(found) == limit {
				break
			}
		}
	}
	return found, nil
}

// AddFriend puts friend on uid's friends list. Adding an existing friend does nothing.
func (s *Service) AddFriend(ctx context.Context, uid, friend string) error {
	return s.editFriends(ctx, uid, func(friends []string) []string {
		if slices.Contains(friends, friend) {
			return nil
		}
		return append(friends, friend)
	})
}

// RemoveFriend takes friend off uid's friends list.
func (s *Service) RemoveFriend(ctx context.Context, uid, friend string) error {
	return s.editFriends(ctx, uid, func(friends []string) []string {
		if !slices.Contains(friends, friend) {
			return nil
		}
		return slices.DeleteFunc(friends, func(f string) bool { return f == friend })
	})
}

// editFriends rewrites the friends array; fn returns nil when nothing changes.
func (s *Service) editFriends(ctx context.Context, uid string, fn func([]string) []string) error {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return err
	}
	friends := fn(slices.Clone(p.Friends))
	if friends == nil {
		return nil
	}
	if err := s.coll.Patch(ctx, bson.M{"_id": uid}, bson.M{"friends": friends}); err != nil {
		return s.writeErr("patch", uid, err)
	}
	return nil
}

// RecordActivity extends uid's streak for the day of at and returns it.
func (s *Service) RecordActivity(ctx context.Context, uid string, at time.Time) (models.Streak, error) {
	p, err := s.Get(ctx, uid)
	if err != nil {
		return models.Streak{}, err
	}
	streak := p.Streak.Record(at)
	if streak == p.Streak {
		return streak, nil
	}
	if err := s.coll.Patch(ctx, bson.M{"_id": uid}, bson.M{"streak": streak, "lastActiveDate": s.now().UTC()}); err != nil {
		return models.Streak{}, s.writeErr("patch", uid, err)
	}
	s.logger.Debug("streak updated", "user", uid, "current", streak.Current, "longest", streak.Longest)
	return streak, nil
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "@")))
}

func (s *Service) availableUsername(ctx context.Context, id models.Identity) (string, error) {
	base := usernameBase(id)
	for range usernameAttempts {
		candidate := fmt.Sprintf("%s%03d", base, s.suffix())
		free, err := s.IsUsernameAvailable(ctx, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free username for %q after %d attempts", base, usernameAttempts)
}

// usernameBase is the lowercased alphanumerics of the display name, falling
// back to the email's local part and then "user".
func usernameBase(id models.Identity) string {
	for _, src := range []string{id.DisplayName, strings.Split(id.Email, "@")[0]} {
		var b strings.Builder
		for _, r := range strings.ToLower(src) {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return "user"
}

func (s *Service) writeErr(op, uid string, err error) error {
	if errors.Is(err, docstore.ErrNoDocument) {
		err = shared.ErrNotFound
	}
	return &shared.RemoteWriteError{Op: op, Collection: s.coll.Name(), ID: uid, Err: err}
}
