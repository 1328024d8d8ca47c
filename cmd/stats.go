package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/store"
)

// Stats prints aggregate progress over the active collection.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	e, err := r.session(ctx)
	if err != nil {
		return err
	}
	playlists, err := e.facade.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	stats := models.CalculateStats(playlists)
	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", r.palette.Stats(stats))
}

// Watch prints a line per collection snapshot until ctx is cancelled.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	e, err := r.session(ctx)
	if err != nil {
		return err
	}

	states := make(chan store.State, 16)
	unsubscribe := e.facade.Subscribe(func(s store.State) { pushLatest(states, s) })
	defer unsubscribe()

	r.logger.Debug("watching playlists; interrupt to stop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-states:
			r.printState(s)
		}
	}
}

// pushLatest queues s without blocking, discarding the oldest queued states to make room.
func pushLatest(ch chan store.State, s store.State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (r *Runner) printState(s store.State) {
	switch {
	case s.Loading:
		r.writePlain("%s\n", r.palette.Help.Render(fmt.Sprintf("… loading %s playlists", s.Backend)))
	case s.Err != nil:
		r.writePlain("%s\n", r.palette.Err.Render(fmt.Sprintf("✗ %s: %v", s.Backend, s.Err)))
	default:
		stats := models.CalculateStats(s.Playlists)
		r.writePlain("%s %s: %d playlist(s), %d/%d videos %s\n",
			r.palette.OK.Render("●"), s.Backend, stats.TotalPlaylists,
			stats.CompletedVideos, stats.TotalVideos, r.palette.ProgressBar(stats.AverageCompletionRate, 16))
	}
}
