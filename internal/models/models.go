// package models defines the data model for playlist progress tracking
package models

import (
	"fmt"
	"strings"
	"time"
)

// GuestOwner is the owner id of playlists created before sign-in.
const GuestOwner = "guest"

// Difficulty is an optional free-text level; the UI offers three values.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Video is one entry within a [Playlist].
type Video struct {
	ID                string `json:"id" bson:"id"`
	Title             string `json:"title" bson:"title"`
	Duration          string `json:"duration" bson:"duration"`
	DurationInSeconds int    `json:"durationInSeconds" bson:"durationInSeconds"`
	ThumbnailURL      string `json:"thumbnailUrl" bson:"thumbnailUrl"`
	Completed         bool   `json:"completed" bson:"completed"`
	Order             int    `json:"order" bson:"order"`
	VideoURL          string `json:"videoUrl,omitempty" bson:"videoUrl,omitempty"`
}

// Playlist is a named ordered collection of videos owned by a guest or a user.
//
// TotalVideos and TotalDuration are derived from Videos at creation; later
// mutations of Videos must call [Playlist.Recompute].
type Playlist struct {
	ID                string     `json:"id" bson:"_id"`
	OwnerID           string     `json:"userId" bson:"ownerId"`
	Name              string     `json:"name" bson:"name"`
	Description       string     `json:"description" bson:"description"`
	SourceURL         string     `json:"sourceUrl" bson:"sourceUrl"`
	ThumbnailURL      string     `json:"thumbnailUrl" bson:"thumbnailUrl"`
	Videos            []Video    `json:"videos" bson:"videos"`
	TotalDuration     int        `json:"totalDuration" bson:"totalDuration"`
	TotalVideos       int        `json:"totalVideos" bson:"totalVideos"`
	CompletedDuration int        `json:"completedDuration" bson:"completedDuration"`
	CreatedAt         time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt" bson:"updatedAt"`
	Categories        []string   `json:"categories" bson:"categories"`
	Tags              []string   `json:"tags" bson:"tags"`
	Difficulty        Difficulty `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	MigratedFrom      string     `json:"migratedFrom,omitempty" bson:"migratedFrom,omitempty"`
}

// Recompute re-derives TotalVideos, TotalDuration and CompletedDuration from Videos.
func (p *Playlist) Recompute() {
	p.TotalVideos = len(p.Videos)
	p.TotalDuration = 0
	p.CompletedDuration = 0
	for _, v := range p.Videos {
		p.TotalDuration += v.DurationInSeconds
		if v.Completed {
			p.CompletedDuration += v.DurationInSeconds
		}
	}
}

// CompletedVideos counts completed entries.
func (p Playlist) CompletedVideos() int {
	n := 0
	for _, v := range p.Videos {
		if v.Completed {
			n++
		}
	}
	return n
}

// Progress returns the completed share of videos in percent.
func (p Playlist) Progress() float64 {
	if len(p.Videos) == 0 {
		return 0
	}
	return float64(p.CompletedVideos()) / float64(len(p.Videos)) * 100
}

// IsComplete reports whether every video is completed. Empty playlists are never complete.
func (p Playlist) IsComplete() bool {
	return len(p.Videos) > 0 && p.CompletedVideos() == len(p.Videos)
}

// VideoIndex returns the position of the video with id, or -1.
func (p Playlist) VideoIndex(id string) int {
	for i, v := range p.Videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to mutate.
func (p Playlist) Clone() Playlist {
	c := p
	c.Videos = append([]Video(nil), p.Videos...)
	c.Categories = append([]string(nil), p.Categories...)
	c.Tags = append([]string(nil), p.Tags...)
	return c
}

// Draft strips the store-owned fields so p can be recreated elsewhere.
func (p Playlist) Draft() PlaylistDraft {
	c := p.Clone()
	return PlaylistDraft{
		Name:              c.Name,
		Description:       c.Description,
		SourceURL:         c.SourceURL,
		ThumbnailURL:      c.ThumbnailURL,
		Videos:            c.Videos,
		TotalDuration:     c.TotalDuration,
		TotalVideos:       c.TotalVideos,
		CompletedDuration: c.CompletedDuration,
		Categories:        c.Categories,
		Tags:              c.Tags,
		Difficulty:        c.Difficulty,
	}
}

// PlaylistData is the metadata-fetch result for a source playlist.
type PlaylistData struct {
	Title  string  `json:"title"`
	Videos []Video `json:"videos"`
}

// PlaylistDraft is the input for creating a playlist in either store.
type PlaylistDraft struct {
	Name              string
	Description       string
	SourceURL         string
	ThumbnailURL      string
	Videos            []Video
	TotalDuration     int
	TotalVideos       int
	CompletedDuration int
	Categories        []string
	Tags              []string
	Difficulty        Difficulty
	MigratedFrom      string
}

// NewDraft builds a draft whose totals are derived from videos.
func NewDraft(name, description, sourceURL string, videos []Video) PlaylistDraft {
	p := Playlist{Videos: videos}
	p.Recompute()

	d := PlaylistDraft{
		Name:              name,
		Description:       description,
		SourceURL:         sourceURL,
		Videos:            videos,
		TotalDuration:     p.TotalDuration,
		TotalVideos:       p.TotalVideos,
		CompletedDuration: p.CompletedDuration,
		Categories:        []string{},
		Tags:              []string{},
	}
	if len(videos) > 0 {
		d.ThumbnailURL = videos[0].ThumbnailURL
	}
	return d
}

// Validate checks that the draft can be stored.
func (d PlaylistDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	seen := make(map[string]bool, len(d.Videos))
	for _, v := range d.Videos {
		if v.ID == "" {
			return fmt.Errorf("video %q has no id", v.Title)
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate video id %q", v.ID)
		}
		seen[v.ID] = true
	}
	return nil
}

// Playlist materializes the draft with the given identity and timestamps.
func (d PlaylistDraft) Playlist(id, owner string, now time.Time) Playlist {
	p := Playlist{
		ID:                id,
		OwnerID:           owner,
		Name:              d.Name,
		Description:       d.Description,
		SourceURL:         d.SourceURL,
		ThumbnailURL:      d.ThumbnailURL,
		Videos:            d.Videos,
		TotalDuration:     d.TotalDuration,
		TotalVideos:       d.TotalVideos,
		CompletedDuration: d.CompletedDuration,
		CreatedAt:         now,
		UpdatedAt:         now,
		Categories:        d.Categories,
		Tags:              d.Tags,
		Difficulty:        d.Difficulty,
		MigratedFrom:      d.MigratedFrom,
	}
	if p.Videos == nil {
		p.Videos = []Video{}
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// PlaylistPatch is a partial update; nil fields are left untouched.
//
// Setting Videos does not recompute totals. Callers set the totals alongside.
type PlaylistPatch struct {
	Name              *string
	Description       *string
	ThumbnailURL      *string
	Videos            []Video
	TotalDuration     *int
	TotalVideos       *int
	CompletedDuration *int
	Categories        []string
	Tags              []string
	Difficulty        *Difficulty
}

// VideosPatch replaces the videos of p and carries the recomputed totals.
func VideosPatch(p Playlist) PlaylistPatch {
	p.Recompute()
	return PlaylistPatch{
		Videos:            p.Videos,
		TotalDuration:     &p.TotalDuration,
		TotalVideos:       &p.TotalVideos,
		CompletedDuration: &p.CompletedDuration,
	}
}

// CompletionPatch replaces the videos of before with after's and moves
// CompletedDuration by the durations whose completion flag flipped. Stored
// totals are left alone, so flipping a video back restores every derived field.
func CompletionPatch(before, after Playlist) PlaylistPatch {
	completed := before.CompletedDuration
	for _, v := range after.Videos {
		i := before.VideoIndex(v.ID)
		if i < 0 || before.Videos[i].Completed == v.Completed {
			continue
		}
		if v.Completed {
			completed += v.DurationInSeconds
		} else {
			completed -= v.DurationInSeconds
		}
	}
	return PlaylistPatch{Videos: after.Videos, CompletedDuration: &completed}
}

// IsEmpty reports whether the patch changes nothing.
func (pp PlaylistPatch) IsEmpty() bool {
	return len(pp.Fields()) == 0
}

// Apply merges the patch into p in memory.
func (pp PlaylistPatch) Apply(p *Playlist) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.ThumbnailURL != nil {
		p.ThumbnailURL = *pp.ThumbnailURL
	}
	if pp.Videos != nil {
		p.Videos = pp.Videos
	}
	if pp.TotalDuration != nil {
		p.TotalDuration = *pp.TotalDuration
	}
	if pp.TotalVideos != nil {
		p.TotalVideos = *pp.TotalVideos
	}
	if pp.CompletedDuration != nil {
		p.CompletedDuration = *pp.CompletedDuration
	}
	if pp.Categories != nil {
		p.Categories = pp.Categories
	}
	if pp.Tags != nil {
		p.Tags = pp.Tags
	}
	if pp.Difficulty != nil {
		p.Difficulty = *pp.Difficulty
	}
}

// Fields returns the patch as remote document fields keyed by BSON name.
func (pp PlaylistPatch) Fields() map[string]any {
	f := make(map[string]any)
	if pp.Name != nil {
		f["name"] = *pp.Name
	}
	if pp.Description != nil {
		f["description"] = *pp.Description
	}
	if pp.ThumbnailURL != nil {
		f["thumbnailUrl"] = *pp.ThumbnailURL
	}
	if pp.Videos != nil {
		f["videos"] = pp.Videos
	}
	if pp.TotalDuration != nil {
		f["totalDuration"] = *pp.TotalDuration
	}
	if pp.TotalVideos != nil {
		f["totalVideos"] = *pp.TotalVideos
	}
	if pp.CompletedDuration != nil {
		f["completedDuration"] = *pp.CompletedDuration
	}
	if pp.Categories != nil {
		f["categories"] = pp.Categories
	}
	if pp.Tags != nil {
		f["tags"] = pp.Tags
	}
	if pp.Difficulty != nil {
		f["difficulty"] = string(*pp.Difficulty)
	}
	return f
}

// VideoPatch edits the user-editable fields of a video.
type VideoPatch struct {
	Title             *string
	Duration          *string
	DurationInSeconds *int
	VideoURL          *string
}

// Apply merges the patch into v. A new Duration string without seconds is parsed.
func (vp VideoPatch) Apply(v *Video) {
	if vp.Title != nil {
		v.Title = *vp.Title
	}
	if vp.Duration != nil {
		v.Duration = *vp.Duration
		if vp.DurationInSeconds == nil {
			v.DurationInSeconds = ParseClockDuration(*vp.Duration)
		}
	}
	if vp.DurationInSeconds != nil {
		v.DurationInSeconds = *vp.DurationInSeconds
	}
	if vp.VideoURL != nil {
		v.VideoURL = *vp.VideoURL
	}
}

// Identity is what the sign-in provider knows about a user.
type Identity struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// UserProfile is the public profile document kept in the remote userProfiles collection.
type UserProfile struct {
	UID            string       `json:"uid" bson:"_id"`
	Username       string       `json:"username" bson:"username"`
	Email          string       `json:"email" bson:"email"`
	DisplayName    string       `json:"displayName" bson:"displayName"`
	PhotoURL       string       `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
	Bio            string       `json:"bio,omitempty" bson:"bio,omitempty"`
	IsPublic       bool         `json:"isPublic" bson:"isPublic"`
	JoinedDate     time.Time    `json:"joinedDate" bson:"joinedDate"`
	LastActiveDate time.Time    `json:"lastActiveDate" bson:"lastActiveDate"`
	Stats          ProfileStats `json:"stats" bson:"stats"`
	Friends        []string     `json:"friends" bson:"friends"`
	Streak         Streak       `json:"streak" bson:"streak"`
}

// ProfileStats is the stats block stored on a profile.
type ProfileStats struct {
	TotalPlaylists        int      `json:"totalPlaylists" bson:"totalPlaylists"`
	CompletedPlaylists    int      `json:"completedPlaylists" bson:"completedPlaylists"`
	TotalVideos           int      `json:"totalVideos" bson:"totalVideos"`
	CompletedVideos       int      `json:"completedVideos" bson:"completedVideos"`
	TotalLearningTime     int      `json:"totalLearningTime" bson:"totalLearningTime"`
	CompletedLearningTime int      `json:"completedLearningTime" bson:"completedLearningTime"`
	CategoriesExplored    []string `json:"categoriesExplored" bson:"categoriesExplored"`
}
