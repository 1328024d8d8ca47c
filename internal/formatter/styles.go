package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/tubetrack/internal/models"
)

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	Title lipgloss.Style
	OK    lipgloss.Style
	Err   lipgloss.Style
	Warn  lipgloss.Style
	Help  lipgloss.Style
}

// DefaultPalette is used by the CLI.
var DefaultPalette = NewPalette("#FF0033", "#04B575", "#FF0000", "#FFA500", "#626262")

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		Title: NewBold(t),
		OK:    NewBold(s),
		Err:   NewBold(e),
		Warn:  NewStyle(w),
		Help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// ProgressBar renders percent (0-100) as a bar of width cells.
func (p *Palette) ProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = 20
	}
	percent = max(0, min(100, percent))
	filled := int(percent / 100 * float64(width))
	bar := p.OK.Render(strings.Repeat("█", filled)) + p.Help.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, percent)
}

// PlaylistLine is a one-line summary for lists.
func (p *Palette) PlaylistLine(pl models.Playlist) string {
	name := pl.Name
	if pl.IsComplete() {
		name = p.OK.Render("✓ " + name)
	}
	return fmt.Sprintf("%s  %s  %d/%d videos  %s  %s",
		p.Help.Render(pl.ID), name, pl.CompletedVideos(), len(pl.Videos),
		models.FormatHours(pl.TotalDuration), p.ProgressBar(pl.Progress(), 16))
}

// PlaylistDetail renders the header and video checklist of one playlist.
func (p *Palette) PlaylistDetail(pl models.Playlist) string {
	var b strings.Builder
	b.WriteString(p.Title.Render(pl.Name) + "\n")
	if pl.Description != "" {
		b.WriteString(p.Help.Render(pl.Description) + "\n")
	}
	fmt.Fprintf(&b, "%s  %s / %s\n\n", p.ProgressBar(pl.Progress(), 24),
		models.FormatDuration(pl.CompletedDuration), models.FormatDuration(pl.TotalDuration))

	for i, v := range pl.Videos {
		mark := p.Help.Render("○")
		if v.Completed {
			mark = p.OK.Render("●")
		}
		fmt.Fprintf(&b, "%s %3d. %s %s  %s\n", mark, i+1, v.Title, p.Help.Render("("+v.Duration+")"), p.Help.Render(v.ID))
	}
	return b.String()
}

// Stats renders aggregate statistics.
func (p *Palette) Stats(s models.UserStats) string {
	var b strings.Builder
	b.WriteString(p.Title.Render("Learning stats") + "\n")
	fmt.Fprintf(&b, "Playlists   %d (%d completed, %d in progress)\n", s.TotalPlaylists, s.CompletedPlaylists, s.TotalPlaylistsWithProgress)
	fmt.Fprintf(&b, "Videos      %d/%d  %s\n", s.CompletedVideos, s.TotalVideos, p.ProgressBar(s.AverageCompletionRate, 20))
	fmt.Fprintf(&b, "Time        %s of %s\n", models.FormatHours(s.CompletedLearningTime), models.FormatHours(s.TotalLearningTime))
	if len(s.CategoriesExplored) > 0 {
		fmt.Fprintf(&b, "Categories  %s\n", strings.Join(s.CategoriesExplored, ", "))
	}
	return b.String()
}
