package models

import "sort"

// UserStats aggregates progress across a user's playlists.
type UserStats struct {
	TotalPlaylists             int      `json:"totalPlaylists"`
	CompletedPlaylists         int      `json:"completedPlaylists"`
	TotalVideos                int      `json:"totalVideos"`
	CompletedVideos            int      `json:"completedVideos"`
	TotalLearningTime          int      `json:"totalLearningTime"`
	CompletedLearningTime      int      `json:"completedLearningTime"`
	CategoriesExplored         []string `json:"categoriesExplored"`
	AverageCompletionRate      float64  `json:"averageCompletionRate"`
	TotalPlaylistsWithProgress int      `json:"totalPlaylistsWithProgress"`
}

// CalculateStats derives [UserStats] from playlists.
//
// Completed learning time is summed from completed videos rather than the
// CompletedDuration cache, which may be stale.
func CalculateStats(playlists []Playlist) UserStats {
	stats := UserStats{CategoriesExplored: []string{}}
	seen := make(map[string]bool)

	for _, p := range playlists {
		stats.TotalPlaylists++
		stats.TotalVideos += len(p.Videos)
		stats.TotalLearningTime += p.TotalDuration

		done := 0
		for _, v := range p.Videos {
			if v.Completed {
				done++
				stats.CompletedLearningTime += v.DurationInSeconds
			}
		}
		stats.CompletedVideos += done

		if len(p.Videos) > 0 && done == len(p.Videos) {
			stats.CompletedPlaylists++
		}
		if done > 0 {
			stats.TotalPlaylistsWithProgress++
		}

		for _, c := range p.Categories {
			if c != "" && !seen[c] {
				seen[c] = true
				stats.CategoriesExplored = append(stats.CategoriesExplored, c)
			}
		}
	}

	if stats.TotalVideos > 0 {
		stats.AverageCompletionRate = float64(stats.CompletedVideos) / float64(stats.TotalVideos) * 100
	}
	sort.Strings(stats.CategoriesExplored)
	return stats
}

// ProfileStats projects the stats stored on a [UserProfile].
func (s UserStats) ProfileStats() ProfileStats {
	return ProfileStats{
		TotalPlaylists:        s.TotalPlaylists,
		CompletedPlaylists:    s.CompletedPlaylists,
		TotalVideos:           s.TotalVideos,
		CompletedVideos:       s.CompletedVideos,
		TotalLearningTime:     s.TotalLearningTime,
		CompletedLearningTime: s.CompletedLearningTime,
		CategoriesExplored:    append([]string{}, s.CategoriesExplored...),
	}
}
