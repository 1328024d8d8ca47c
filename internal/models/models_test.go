package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVideos() []Video {
	return []Video{
		{ID: "v1", Title: "Intro", DurationInSeconds: 600, Order: 0, ThumbnailURL: "https://img/1.jpg"},
		{ID: "v2", Title: "Setup", DurationInSeconds: 300, Order: 1, Completed: true},
		{ID: "v3", Title: "Wrap up", DurationInSeconds: 120, Order: 2},
	}
}

func TestNewDraft(t *testing.T) {
	d := NewDraft("Course", "desc", "https://youtube.com/playlist?list=PL1", sampleVideos())

	assert.Equal(t, 3, d.TotalVideos)
	assert.Equal(t, 1020, d.TotalDuration)
	assert.Equal(t, 300, d.CompletedDuration)
	assert.Equal(t, "https://img/1.jpg", d.ThumbnailURL)
	assert.NoError(t, d.Validate())

	p := d.Playlist("l1", GuestOwner, time.Unix(100, 0))
	assert.Equal(t, "l1", p.ID)
	assert.Equal(t, GuestOwner, p.OwnerID)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	assert.NotNil(t, p.Tags)
}

func TestDraftValidate(t *testing.T) {
	tc := []struct {
		name  string
		draft PlaylistDraft
	}{
		{name: "blank name", draft: NewDraft("  ", "", "", nil)},
		{name: "missing video id", draft: NewDraft("x", "", "", []Video{{Title: "a"}})},
		{name: "duplicate video id", draft: NewDraft("x", "", "", []Video{{ID: "a"}, {ID: "a"}})},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.draft.Validate())
		})
	}
}

func TestPlaylistRecomputeAndProgress(t *testing.T) {
	p := Playlist{Videos: sampleVideos()}
	p.Recompute()

	assert.Equal(t, 1020, p.TotalDuration)
	assert.Equal(t, 300, p.CompletedDuration)
	assert.Equal(t, 1, p.CompletedVideos())
	assert.InDelta(t, 33.33, p.Progress(), 0.01)
	assert.False(t, p.IsComplete())
	assert.Equal(t, 2, p.VideoIndex("v3"))
	assert.Equal(t, -1, p.VideoIndex("nope"))

	assert.False(t, Playlist{}.IsComplete())
	assert.Zero(t, Playlist{}.Progress())
}

func TestPlaylistCloneIsDeep(t *testing.T) {
	p := Playlist{Videos: sampleVideos(), Tags: []string{"go"}}
	c := p.Clone()
	c.Videos[0].Completed = true
	c.Tags[0] = "rust"

	assert.False(t, p.Videos[0].Completed)
	assert.Equal(t, "go", p.Tags[0])
}

func TestPlaylistDraftStripsIdentity(t *testing.T) {
	p := NewDraft("Course", "", "", sampleVideos()).Playlist("l1", GuestOwner, time.Now())
	d := p.Draft()

	got := d.Playlist("r1", "u42", time.Now())
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "u42", got.OwnerID)
	assert.Equal(t, p.Videos, got.Videos)
	assert.Equal(t, p.TotalDuration, got.TotalDuration)
	assert.Equal(t, p.TotalVideos, got.TotalVideos)
}

func TestPlaylistPatch(t *testing.T) {
	name := "Renamed"
	p := Playlist{Name: "Old", Description: "keep"}
	patch := PlaylistPatch{Name: &name}

	patch.Apply(&p)
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, "keep", p.Description)
	assert.Equal(t, map[string]any{"name": "Renamed"}, patch.Fields())
	assert.True(t, PlaylistPatch{}.IsEmpty())

	src := Playlist{Videos: sampleVideos()}
	src.Videos[0].Completed = true
	vp := VideosPatch(src)
	require.NotNil(t, vp.CompletedDuration)
	assert.Equal(t, 900, *vp.CompletedDuration)
	assert.Equal(t, 3, *vp.TotalVideos)

	fields := vp.Fields()
	assert.Contains(t, fields, "videos")
	assert.Equal(t, 1020, fields["totalDuration"])
}

func TestCompletionPatch(t *testing.T) {
	before := Playlist{
		Videos: []Video{
			{ID: "a", DurationInSeconds: 100},
			{ID: "b", DurationInSeconds: 200, Completed: true},
			{ID: "c", DurationInSeconds: 300},
		},
		TotalDuration:     9999,
		TotalVideos:       7,
		CompletedDuration: 50,
	}

	after := before.Clone()
	after.Videos[0].Completed = true
	after.Videos[1].Completed = false
	patch := CompletionPatch(before, after)

	require.NotNil(t, patch.CompletedDuration)
	assert.Equal(t, -50, *patch.CompletedDuration)
	assert.Nil(t, patch.TotalDuration)
	assert.Nil(t, patch.TotalVideos)
	assert.Equal(t, after.Videos, patch.Videos)

	// flipping back lands on the stored value, stale or not
	mid := before.Clone()
	patch.Apply(&mid)
	back := CompletionPatch(mid, before.Clone())
	assert.Equal(t, 50, *back.CompletedDuration)
}

func TestVideoPatch(t *testing.T) {
	v := Video{ID: "v1", Title: "a", Duration: "1:00", DurationInSeconds: 60}
	title, dur := "b", "2:30"
	VideoPatch{Title: &title, Duration: &dur}.Apply(&v)

	assert.Equal(t, "b", v.Title)
	assert.Equal(t, "2:30", v.Duration)
	assert.Equal(t, 150, v.DurationInSeconds)
}

func TestDurations(t *testing.T) {
	clock := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"90", 90},
		{"10:30", 630},
		{"1:15:45", 4545},
		{"1:2:3:4", 0},
		{"ab:cd", 0},
		{"-1:00", 0},
	}
	for _, tt := range clock {
		t.Run("clock "+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClockDuration(tt.in))
		})
	}

	iso := []struct {
		in   string
		want int
	}{
		{"PT1H2M3S", 3723},
		{"PT15M", 900},
		{"PT45S", 45},
		{"P1D", 0},
		{"garbage", 0},
	}
	for _, tt := range iso {
		t.Run("iso "+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseISODuration(tt.in))
		})
	}

	assert.Equal(t, "1:02:03", FormatDuration(3723))
	assert.Equal(t, "2:03", FormatDuration(123))
	assert.Equal(t, "0:00", FormatDuration(-5))
	assert.Equal(t, "45m", FormatHours(2700))
	assert.Equal(t, "1.5h", FormatHours(5400))
}

func TestCalculateStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		stats := CalculateStats(nil)
		assert.Zero(t, stats.TotalPlaylists)
		assert.Empty(t, stats.CategoriesExplored)
		assert.Zero(t, stats.AverageCompletionRate)
	})

	t.Run("mixed", func(t *testing.T) {
		done := Playlist{Videos: []Video{{ID: "a", DurationInSeconds: 100, Completed: true}}, Categories: []string{"go"}}
		done.Recompute()
		partial := Playlist{Videos: sampleVideos(), Categories: []string{"go", "db"}}
		partial.Recompute()
		empty := Playlist{}

		stats := CalculateStats([]Playlist{done, partial, empty})
		assert.Equal(t, 3, stats.TotalPlaylists)
		assert.Equal(t, 1, stats.CompletedPlaylists)
		assert.Equal(t, 4, stats.TotalVideos)
		assert.Equal(t, 2, stats.CompletedVideos)
		assert.Equal(t, 1120, stats.TotalLearningTime)
		assert.Equal(t, 400, stats.CompletedLearningTime)
		assert.Equal(t, []string{"db", "go"}, stats.CategoriesExplored)
		assert.InDelta(t, 50.0, stats.AverageCompletionRate, 0.001)
		assert.Equal(t, 2, stats.TotalPlaylistsWithProgress)
		assert.Equal(t, 2, stats.ProfileStats().CompletedVideos)
	})
}
