// Package friends manages friend requests and the friends lists stored on user profiles.
//
// A request is a document in the friendRequests collection. Accepting adds each
// user to the other's friends list and then deletes the request; declining or
// cancelling just deletes it. The collection has no transactions, so accept
// writes the friends lists first: a failure leaves the request in place and
// accepting it again is safe.
package friends

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/profiles"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// Service reads and writes friend requests.
type Service struct {
	requests docstore.Collection
	profiles *profiles.Service
	logger   *log.Logger
	now      func() time.Time
}

// NewService creates a [Service] over the friendRequests collection.
func NewService(requests docstore.Collection, profiles *profiles.Service, logger *log.Logger) *Service {
	return &Service{requests: requests, profiles: profiles, logger: logger, now: time.Now}
}

// Send creates a pending request from the profile uid to the user named toUsername.
func (s *Service) Send(ctx context.Context, uid, toUsername string) (models.FriendRequest, error) {
	from, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return models.FriendRequest{}, err
	}
	to, err := s.profiles.GetByUsername(ctx, toUsername)
	if err != nil {
		return models.FriendRequest{}, err
	}

	switch {
	case to.UID == from.UID:
		return models.FriendRequest{}, fmt.Errorf("%w: you cannot send a friend request to yourself", shared.ErrInvalidArgument)
	case slices.Contains(from.Friends, to.UID):
		return models.FriendRequest{}, fmt.Errorf("%w: already friends with %s", shared.ErrAlreadyExists, to.Username)
	}
	for _, pair := range [][2]string{{from.UID, to.UID}, {to.UID, from.UID}} {
		var existing models.FriendRequest
		err := s.requests.FindOne(ctx, bson.M{"fromUid": pair[0], "toUid": pair[1]}, &existing)
		if err == nil {
			return models.FriendRequest{}, fmt.Errorf("%w: request %s is already pending", shared.ErrAlreadyExists, existing.ID)
		}
		if !errors.Is(err, docstore.ErrNoDocument) {
			return models.FriendRequest{}, s.readErr(err)
		}
	}

	req := models.FriendRequest{
		ID:           docstore.NewID(),
		FromUID:      from.UID,
		FromUsername: from.Username,
		FromName:     from.DisplayName,
		FromAvatar:   from.PhotoURL,
		ToUID:        to.UID,
		Status:       models.FriendRequestPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.requests.Insert(ctx, req); err != nil {
		return models.FriendRequest{}, s.writeErr("insert", req.ID, err)
	}
	s.logger.Info("friend request sent", "from", from.UID, "to", to.UID, "request", req.ID)
	return req, nil
}

// Incoming lists requests waiting for uid to answer, newest first.
func (s *Service) Incoming(ctx context.Context, uid string) ([]models.FriendRequest, error) {
	return s.find(ctx, bson.M{"toUid": uid, "status": models.FriendRequestPending})
}

// Outgoing lists requests uid has sent, newest first.
func (s *Service) Outgoing(ctx context.Context, uid string) ([]models.FriendRequest, error) {
	return s.find(ctx, bson.M{"fromUid": uid, "status": models.FriendRequestPending})
}

func (s *Service) find(ctx context.Context, filter bson.M) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	if err := s.requests.Find(ctx, filter, bson.D{{Key: "createdAt", Value: -1}}, &reqs); err != nil {
		return nil, s.readErr(err)
	}
	return reqs, nil
}

// Accept makes uid and the sender friends. Only the recipient may accept.
func (s *Service) Accept(ctx context.Context, uid, requestID string) error {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ToUID != uid {
		return fmt.Errorf("%w: request %s is not addressed to you", shared.ErrPermissionDenied, requestID)
	}

	if err := s.profiles.AddFriend(ctx, req.FromUID, req.ToUID); err != nil {
		return err
	}
	if err := s.profiles.AddFriend(ctx, req.ToUID, req.FromUID); err != nil {
		return err
	}
	if err := s.requests.Remove(ctx, bson.M{"_id": requestID}); err != nil && !errors.Is(err, docstore.ErrNoDocument) {
		return s.writeErr("remove", requestID, err)
	}
	s.logger.Info("friend request accepted", "request", requestID, "from", req.FromUID, "to", req.ToUID)
	return nil
}

// Decline deletes a request. The recipient declines it; the sender cancels it.
func (s *Service) Decline(ctx context.Context, uid, requestID string) error {
	req, err := s.get(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ToUID != uid && req.FromUID != uid {
		return fmt.Errorf("%w: request %s does not involve you", shared.ErrPermissionDenied, requestID)
	}
	if err := s.requests.Remove(ctx, bson.M{"_id": requestID}); err != nil {
		return s.writeErr("remove", requestID, err)
	}
	return nil
}

// Remove ends the friendship between uid and friend on both profiles.
func (s *Service) Remove(ctx context.Context, uid, friend string) error {
	if err := s.profiles.RemoveFriend(ctx, uid, friend); err != nil {
		return err
	}
	if err := s.profiles.RemoveFriend(ctx, friend, uid); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return nil
}

// Friends reads the profiles on uid's friends list. Profiles that no longer exist are skipped.
func (s *Service) Friends(ctx context.Context, uid string) ([]models.UserProfile, error) {
	p, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	friends := make([]models.UserProfile, 0, len(p.Friends))
	for _, id := range p.Friends {
		f, err := s.profiles.Get(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("friend profile missing", "user", uid, "friend", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, nil
}

func (s *Service) get(ctx context.Context, id string) (models.FriendRequest, error) {
	var req models.FriendRequest
	if err := s.requests.FindOne(ctx, bson.M{"_id": id}, &req); err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			return models.FriendRequest{}, fmt.Errorf("friend request %s: %w", id, shared.ErrNotFound)
		}
		return models.FriendRequest{}, s.readErr(err)
	}
	return req, nil
}

func (s *Service) readErr(err error) error {
	return fmt.Errorf("%w: %s: %v", shared.ErrRemoteRead, s.requests.Name(), err)
}

func (s *Service) writeErr(op, id string, err error) error {
	if errors.Is(err, docstore.ErrNoDocument) {
		err = shared.ErrNotFound
	}
	return &shared.RemoteWriteError{Op: op, Collection: s.requests.Name(), ID: id, Err: err}
}
