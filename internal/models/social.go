package models

import (
	"fmt"
	"strings"
	"time"
)

// FriendRequestStatus is the state of a friend request document.
type FriendRequestStatus string

const FriendRequestPending FriendRequestStatus = "pending"

// FriendRequest is a pending invitation between two profiles. Accepting or
// declining removes the document.
type FriendRequest struct {
	ID           string              `json:"id" bson:"_id"`
	FromUID      string              `json:"fromUid" bson:"fromUid"`
	FromUsername string              `json:"fromUsername" bson:"fromUsername"`
	FromName     string              `json:"fromName" bson:"fromName"`
	FromAvatar   string              `json:"fromAvatar,omitempty" bson:"fromAvatar,omitempty"`
	ToUID        string              `json:"toUid" bson:"toUid"`
	Status       FriendRequestStatus `json:"status" bson:"status"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
}

// GoalType names what a goal measures.
type GoalType string

const (
	GoalWeeklyHours      GoalType = "weekly_hours"
	GoalMonthlyPlaylists GoalType = "monthly_playlists"
	GoalDailyStreak      GoalType = "daily_streak"
)

// ParseGoalType accepts the stored names.
func ParseGoalType(s string) (GoalType, error) {
	switch t := GoalType(strings.ToLower(strings.TrimSpace(s))); t {
	case GoalWeeklyHours, GoalMonthlyPlaylists, GoalDailyStreak:
		return t, nil
	default:
		return "", fmt.Errorf("unknown goal type %q", s)
	}
}

// DefaultUnit is the unit shown for t when none is given.
func (t GoalType) DefaultUnit() string {
	switch t {
	case GoalWeeklyHours:
		return "hours"
	case GoalMonthlyPlaylists:
		return "playlists"
	case GoalDailyStreak:
		return "days"
	}
	return ""
}

// Goal is a user-defined learning target. Progress is computed by readers, never stored.
type Goal struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	Type        GoalType  `json:"type" bson:"type"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Target      float64   `json:"target" bson:"target"`
	Unit        string    `json:"unit" bson:"unit"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// GoalDraft is the input for creating a goal.
type GoalDraft struct {
	Type        GoalType
	Title       string
	Description string
	Target      float64
	Unit        string
}

// Validate checks that the draft can be stored.
func (d GoalDraft) Validate() error {
	if _, err := ParseGoalType(string(d.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("goal title is required")
	}
	if d.Target <= 0 {
		return fmt.Errorf("goal target must be positive, got %v", d.Target)
	}
	return nil
}

// GoalPatch is a partial goal update; nil fields are left alone.
type GoalPatch struct {
	Title       *string
	Description *string
	Target      *float64
	Unit        *string
}

// Fields returns the stored field names and values the patch sets.
func (gp GoalPatch) Fields() map[string]any {
	f := map[string]any{}
	if gp.Title != nil {
		f["title"] = *gp.Title
	}
	if gp.Description != nil {
		f["description"] = *gp.Description
	}
	if gp.Target != nil {
		f["target"] = *gp.Target
	}
	if gp.Unit != nil {
		f["unit"] = *gp.Unit
	}
	return f
}
