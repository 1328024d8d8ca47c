package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// signedIn returns the session and the caller's profile, creating the profile if it is missing.
func (r *Runner) signedIn(ctx context.Context) (*env, models.UserProfile, error) {
	e, err := r.session(ctx)
	if err != nil {
		return nil, models.UserProfile{}, err
	}
	id, ok := e.provider.Identity()
	if !ok {
		return nil, models.UserProfile{}, fmt.Errorf("%w: run 'tubetrack auth login' first", shared.ErrNotAuthenticated)
	}
	p, err := e.profiles.EnsureProfile(ctx, id)
	if err != nil {
		return nil, models.UserProfile{}, err
	}
	return e, p, nil
}

// recordActivity extends the signed-in user's streak; guests have none.
func (r *Runner) recordActivity(ctx context.Context, e *env) {
	id, ok := e.provider.Identity()
	if !ok {
		return
	}
	if _, err := e.profiles.RecordActivity(ctx, id.UserID, time.Now()); err != nil {
		r.logger.Warn("streak not updated", "user", id.UserID, "err", err)
	}
}

// ProfileShow prints the caller's profile, or another user's public profile.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	p := me
	if username := cmd.StringArg("username"); username != "" {
		if p, err = e.profiles.GetByUsername(ctx, username); err != nil {
			return err
		}
		if !p.IsPublic && p.UID != me.UID {
			return fmt.Errorf("%w: profile @%s is private", shared.ErrPermissionDenied, p.Username)
		}
	}
	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s (@%s)", p.DisplayName, p.Username))
	if p.Bio != "" {
		r.writePlain("%s\n", p.Bio)
	}
	r.writePlain("Joined: %s\n", p.JoinedDate.Local().Format(time.DateOnly))
	r.writePlain("Playlists: %d (%d completed)\n", p.Stats.TotalPlaylists, p.Stats.CompletedPlaylists)
	r.writePlain("Videos: %d/%d\n", p.Stats.CompletedVideos, p.Stats.TotalVideos)
	r.writePlain("Learning time: %s of %s\n",
		models.FormatHours(p.Stats.CompletedLearningTime), models.FormatHours(p.Stats.TotalLearningTime))
	r.writePlain("Streak: %d day(s), longest %d\n", p.Streak.Current, p.Streak.Longest)
	if left, ok := p.Streak.ExpiresIn(time.Now()); ok && p.UID == me.UID {
		r.writePlain("%s\n", r.palette.Help.Render(fmt.Sprintf("Complete a video within %s to keep it", left.Truncate(time.Minute))))
	}
	return r.writePlain("Friends: %d\n", len(p.Friends))
}

// ProfileSearch lists public profiles by username prefix.
func (r *Runner) ProfileSearch(ctx context.Context, cmd *cli.Command) error {
	e, _, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	found, err := e.profiles.Search(ctx, cmd.StringArg("prefix"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return r.writePlain("No users found\n")
	}
	for _, p := range found {
		r.writePlain("@%s  %s\n", p.Username, p.DisplayName)
	}
	return nil
}

// FriendsList prints the caller's friends.
func (r *Runner) FriendsList(ctx context.Context, cmd *cli.Command) error {
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	friends, err := e.friends.Friends(ctx, me.UID)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(friends, true)
	}
	if len(friends) == 0 {
		return r.writePlain("No friends yet. Send a request with 'tubetrack friends add <username>'.\n")
	}
	for _, f := range friends {
		r.writePlain("@%s  %s  %d/%d videos\n", f.Username, f.DisplayName, f.Stats.CompletedVideos, f.Stats.TotalVideos)
	}
	return nil
}

// FriendsRequests prints pending requests in both directions.
func (r *Runner) FriendsRequests(ctx context.Context, cmd *cli.Command) error {
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	incoming, err := e.friends.Incoming(ctx, me.UID)
	if err != nil {
		return err
	}
	outgoing, err := e.friends.Outgoing(ctx, me.UID)
	if err != nil {
		return err
	}

	r.writePlain("Incoming: %d\n", len(incoming))
	for _, req := range incoming {
		r.writePlain("  %s  from @%s (%s)\n", req.ID, req.FromUsername, req.FromName)
	}
	r.writePlain("Outgoing: %d\n", len(outgoing))
	for _, req := range outgoing {
		r.writePlain("  %s  to %s\n", req.ID, req.ToUID)
	}
	return nil
}

// FriendsAdd sends a friend request by username.
func (r *Runner) FriendsAdd(ctx context.Context, cmd *cli.Command) error {
	username := cmd.StringArg("username")
	if username == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	req, err := e.friends.Send(ctx, me.UID, username)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Friend request sent to @%s (%s)\n", strings.TrimPrefix(username, "@"), req.ID)
}

// FriendsAccept accepts an incoming request.
func (r *Runner) FriendsAccept(ctx context.Context, cmd *cli.Command) error {
	return r.answerRequest(ctx, cmd, true)
}

// FriendsDecline declines an incoming request or cancels an outgoing one.
func (r *Runner) FriendsDecline(ctx context.Context, cmd *cli.Command) error {
	return r.answerRequest(ctx, cmd, false)
}

func (r *Runner) answerRequest(ctx context.Context, cmd *cli.Command, accept bool) error {
	id := cmd.StringArg("request")
	if id == "" {
		return fmt.Errorf("%w: request id", shared.ErrMissingArgument)
	}
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	if accept {
		if err := e.friends.Accept(ctx, me.UID, id); err != nil {
			return err
		}
		return r.writePlain("✓ Accepted %s\n", id)
	}
	if err := e.friends.Decline(ctx, me.UID, id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed request %s\n", id)
}

// FriendsRemove ends a friendship by username.
func (r *Runner) FriendsRemove(ctx context.Context, cmd *cli.Command) error {
	username := cmd.StringArg("username")
	if username == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	friend, err := e.profiles.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := e.friends.Remove(ctx, me.UID, friend.UID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed @%s from your friends\n", friend.Username)
}

// GoalsList prints the caller's goals.
func (r *Runner) GoalsList(ctx context.Context, cmd *cli.Command) error {
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	goals, err := e.goals.List(ctx, me.UID)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(goals, true)
	}
	if len(goals) == 0 {
		return r.writePlain("No goals yet. Add one with 'tubetrack goals add'.\n")
	}
	for _, g := range goals {
		r.writePlain("%s  %s: %g %s (%s)\n", g.ID, g.Title, g.Target, g.Unit, g.Type)
	}
	return nil
}

// GoalsAdd creates a goal.
func (r *Runner) GoalsAdd(ctx context.Context, cmd *cli.Command) error {
	typ, err := models.ParseGoalType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	id, err := e.goals.Create(ctx, me.UID, models.GoalDraft{
		Type:        typ,
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Target:      cmd.Float("target"),
		Unit:        cmd.String("unit"),
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created goal %s\n", id)
}

// GoalsUpdate changes the flags given on the command line.
func (r *Runner) GoalsUpdate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: goal id", shared.ErrMissingArgument)
	}
	var patch models.GoalPatch
	if cmd.IsSet("title") {
		title := cmd.String("title")
		patch.Title = &title
	}
	if cmd.IsSet("description") {
		description := cmd.String("description")
		patch.Description = &description
	}
	if cmd.IsSet("target") {
		target := cmd.Float("target")
		patch.Target = &target
	}
	if cmd.IsSet("unit") {
		unit := cmd.String("unit")
		patch.Unit = &unit
	}

	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	if err := e.goals.Update(ctx, me.UID, id, patch); err != nil {
		return err
	}
	return r.writePlain("✓ Updated goal %s\n", id)
}

// GoalsDelete removes goals.
func (r *Runner) GoalsDelete(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one goal id", shared.ErrMissingArgument)
	}
	e, me, err := r.signedIn(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.goals.Delete(ctx, me.UID, id); err != nil {
			return err
		}
	}
	return r.writePlain("✓ Deleted %d goal(s)\n", len(ids))
}
