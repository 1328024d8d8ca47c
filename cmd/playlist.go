package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetrack/internal/formatter"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/services"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// PlaylistAdd imports a YouTube playlist through the metadata proxy.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: playlist url or id", shared.ErrMissingArgument)
	}
	id, err := services.ExtractPlaylistID(source)
	if err != nil {
		return err
	}
	difficulty, err := parseDifficulty(cmd.String("difficulty"))
	if err != nil {
		return err
	}

	e, err := r.session(ctx)
	if err != nil {
		return err
	}

	r.logger.Debug("fetching playlist metadata", "playlist", id)
	data, err := e.fetcher.FetchPlaylist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist %s: %w", id, err)
	}

	name := strings.TrimSpace(cmd.String("name"))
	if name == "" {
		name = data.Title
	}
	draft := models.NewDraft(name, cmd.String("description"), "https://www.youtube.com/playlist?list="+id, data.Videos)
	if categories := cmd.StringSlice("category"); len(categories) > 0 {
		draft.Categories = categories
	}
	draft.Difficulty = difficulty

	created, err := e.facade.CreatePlaylist(ctx, draft)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added %s (%d videos, %s) as %s\n",
		name, draft.TotalVideos, models.FormatHours(draft.TotalDuration), created)
}

// PlaylistAddManual creates a playlist from videos given on the command line.
func (r *Runner) PlaylistAddManual(ctx context.Context, cmd *cli.Command) error {
	videos := make([]models.Video, 0, len(cmd.StringSlice("video")))
	for i, entry := range cmd.StringSlice("video") {
		v, err := parseManualVideo(entry, i)
		if err != nil {
			return err
		}
		videos = append(videos, v)
	}

	draft := models.NewDraft(cmd.String("name"), cmd.String("description"), "", videos)
	if categories := cmd.StringSlice("category"); len(categories) > 0 {
		draft.Categories = categories
	}

	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	id, err := e.facade.CreatePlaylist(ctx, draft)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Created %s (%d videos) as %s\n", draft.Name, len(videos), id)
}

// parseManualVideo reads "title|mm:ss|url"; duration and url are optional.
func parseManualVideo(entry string, order int) (models.Video, error) {
	parts := strings.Split(entry, "|")
	title := strings.TrimSpace(parts[0])
	if title == "" {
		return models.Video{}, fmt.Errorf("%w: video %q has no title", shared.ErrInvalidInput, entry)
	}

	v := models.Video{ID: shared.GenerateID(), Title: title, Order: order}
	if len(parts) > 1 {
		v.DurationInSeconds = models.ParseClockDuration(strings.TrimSpace(parts[1]))
	}
	v.Duration = models.FormatDuration(v.DurationInSeconds)
	if len(parts) > 2 {
		v.VideoURL = strings.TrimSpace(parts[2])
	}
	return v, nil
}

func parseDifficulty(s string) (models.Difficulty, error) {
	switch d := models.Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "", models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
		return d, nil
	default:
		return "", fmt.Errorf("%w: difficulty %q", shared.ErrInvalidArgument, s)
	}
}

// PlaylistList prints every playlist of the active collection.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	playlists, err := e.facade.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	kind, owner := e.facade.Backend()
	r.writePlainHeader(fmt.Sprintf("Playlists (%s, %s)", kind, owner))
	if len(playlists) == 0 {
		return r.writePlain("No playlists yet. Add one with 'tubetrack playlist add <url>'.\n")
	}
	for _, p := range playlists {
		r.writePlain("%s\n", r.palette.PlaylistLine(p))
	}
	return nil
}

// PlaylistShow prints one playlist with its videos.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	p, err := r.playlistArg(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("%s", r.palette.PlaylistDetail(p))
}

// PlaylistToggle marks one video watched, or unwatched with --undo.
func (r *Runner) PlaylistToggle(ctx context.Context, cmd *cli.Command) error {
	playlistID, videoID := cmd.StringArg("playlist"), cmd.StringArg("video")
	if playlistID == "" || videoID == "" {
		return fmt.Errorf("%w: playlist and video ids", shared.ErrMissingArgument)
	}
	e, err := r.session(ctx)
	if err != nil {
		return err
	}

	completed := !cmd.Bool("undo")
	if err := e.facade.ToggleVideoCompletion(ctx, playlistID, videoID, completed); err != nil {
		return err
	}
	if completed {
		r.recordActivity(ctx, e)
	}
	p, err := e.facade.GetPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s: %d/%d videos %s\n", p.Name, p.CompletedVideos(), len(p.Videos), r.palette.ProgressBar(p.Progress(), 16))
}

// PlaylistRename changes a playlist's name.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	id, name := cmd.StringArg("id"), strings.TrimSpace(cmd.StringArg("name"))
	if id == "" || name == "" {
		return fmt.Errorf("%w: playlist id and new name", shared.ErrMissingArgument)
	}
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	if err := e.facade.UpdatePlaylist(ctx, id, models.PlaylistPatch{Name: &name}); err != nil {
		return err
	}
	return r.writePlain("✓ Renamed %s to %s\n", id, name)
}

// PlaylistComplete marks every video of a playlist watched, or unwatched with --undo.
func (r *Runner) PlaylistComplete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	if err := e.facade.SetPlaylistCompletion(ctx, id, !cmd.Bool("undo")); err != nil {
		return err
	}
	if cmd.Bool("undo") {
		return r.writePlain("✓ Reset progress of %s\n", id)
	}
	r.recordActivity(ctx, e)
	return r.writePlain("✓ Completed %s\n", id)
}

// PlaylistDelete removes playlists, stopping at the first failure.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist id", shared.ErrMissingArgument)
	}
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	if err := e.facade.DeletePlaylists(ctx, ids...); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %d playlist(s)\n", len(ids))
}

// PlaylistExport writes a playlist's progress to a file.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	p, err := r.playlistArg(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	result, err := formatter.WriteExport(p, format, cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("playlist exported", "playlist", p.ID, "format", format, "path", result.File)
	r.writePlain("✓ Exported %s to %s\n", p.Name, result.File)
	if result.MetadataFile != "" {
		r.writePlain("Metadata: %s\n", result.MetadataFile)
	}
	return nil
}

func (r *Runner) playlistArg(ctx context.Context, id string) (models.Playlist, error) {
	if id == "" {
		return models.Playlist{}, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	e, err := r.session(ctx)
	if err != nil {
		return models.Playlist{}, err
	}
	return e.facade.GetPlaylist(ctx, id)
}
