// Metadata proxy [Fetcher] implementation
//
// The proxy pages through the YouTube Data API on the server and answers with
// {"title", "videos"}, or {"error"} and a non-2xx status.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

const (
	defaultProxyURL string = "http://127.0.0.1:3000"
	playlistPath    string = "/api/youtube/playlist"
)

// FetchClient implements [Fetcher] against the metadata proxy.
type FetchClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFetchClient creates a client for baseURL allowing rps requests per second; rps <= 0 disables limiting.
func NewFetchClient(baseURL string, rps float64) *FetchClient {
	if baseURL == "" {
		baseURL = defaultProxyURL
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &FetchClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// FetchPlaylist asks the proxy for playlistID.
func (c *FetchClient) FetchPlaylist(ctx context.Context, playlistID string) (*models.PlaylistData, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if IsMix(playlistID) {
		return nil, fmt.Errorf("%w: YouTube Mixes and Radio playlists are not supported", shared.ErrUnsupportedPlaylist)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"playlistId": playlistID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+playlistPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
			return nil, &FetchError{Status: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &FetchError{Status: resp.StatusCode}
	}

	var data models.PlaylistData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	normalize(&data)
	return &data, nil
}

// normalize fills seconds from the clock or ISO 8601 duration, resets completion and numbers the videos in order.
func normalize(data *models.PlaylistData) {
	if data.Videos == nil {
		data.Videos = []models.Video{}
	}
	for i := range data.Videos {
		v := &data.Videos[i]
		if strings.HasPrefix(v.Duration, "PT") {
			if v.DurationInSeconds == 0 {
				v.DurationInSeconds = models.ParseISODuration(v.Duration)
			}
			v.Duration = ""
		}
		if v.DurationInSeconds == 0 && v.Duration != "" {
			v.DurationInSeconds = models.ParseClockDuration(v.Duration)
		}
		if v.Duration == "" {
			v.Duration = models.FormatDuration(v.DurationInSeconds)
		}
		if v.VideoURL == "" && v.ID != "" {
			v.VideoURL = "https://www.youtube.com/watch?v=" + v.ID
		}
		v.Completed = false
		v.Order = i
	}
}
