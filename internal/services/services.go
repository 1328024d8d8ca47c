// package services defines the playlist metadata fetchers
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// Fetcher resolves a source playlist id into its metadata.
type Fetcher interface {
	FetchPlaylist(ctx context.Context, playlistID string) (*models.PlaylistData, error)
}

// FetchError is a non-2xx answer from the metadata proxy.
type FetchError struct {
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("metadata proxy error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("metadata proxy error: status %d", e.Status)
}

func (e *FetchError) Unwrap() []error {
	switch e.Status {
	case http.StatusNotFound:
		return []error{shared.ErrAPIRequest, shared.ErrPlaylistNotFound}
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return []error{shared.ErrAPIRequest, shared.ErrServiceUnavailable}
	}
	return []error{shared.ErrAPIRequest}
}

// ExtractPlaylistID returns the list= parameter of a playlist or watch URL.
// Input without a scheme or query is taken to be a bare id.
func ExtractPlaylistID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty playlist url", shared.ErrInvalidInput)
	}

	if !strings.Contains(input, "list=") {
		if strings.ContainsAny(input, "/?&= ") {
			return "", fmt.Errorf("%w: no playlist id in %q", shared.ErrInvalidInput, input)
		}
		return input, nil
	}

	raw := input
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	query, err := url.ParseQuery(raw)
	if err != nil || query.Get("list") == "" {
		return "", fmt.Errorf("%w: no playlist id in %q", shared.ErrInvalidInput, input)
	}
	return query.Get("list"), nil
}

// IsMix reports whether id is an auto-generated Mix or Radio playlist.
func IsMix(id string) bool {
	return strings.HasPrefix(id, "RD")
}
