package models

import "time"

const streakDay = "2006-01-02"

// Streak counts consecutive calendar days with at least one completed video.
type Streak struct {
	Current      int    `json:"currentStreak" bson:"currentStreak"`
	Longest      int    `json:"longestStreak" bson:"longestStreak"`
	LastActivity string `json:"lastActivityDate" bson:"lastActivityDate"`
}

// Record registers activity on the calendar day of at, in at's location.
// A second activity on the same day changes nothing; activity on the day after
// the last one extends the streak, anything else restarts it at 1.
func (s Streak) Record(at time.Time) Streak {
	today := at.Format(streakDay)
	if s.LastActivity == today {
		return s
	}

	next := 1
	if last, err := time.ParseInLocation(streakDay, s.LastActivity, at.Location()); err == nil {
		if last.AddDate(0, 0, 1).Format(streakDay) == today {
			next = s.Current + 1
		}
	}
	return Streak{Current: next, Longest: max(s.Longest, next), LastActivity: today}
}

// ExpiresIn reports how long until the streak is lost: the end of the day after
// the last activity. ok is false when there is no streak or it already lapsed.
func (s Streak) ExpiresIn(now time.Time) (left time.Duration, ok bool) {
	last, err := time.ParseInLocation(streakDay, s.LastActivity, now.Location())
	if err != nil || s.Current == 0 {
		return 0, false
	}
	left = last.AddDate(0, 0, 2).Sub(now)
	if left <= 0 {
		return 0, false
	}
	return left, true
}
