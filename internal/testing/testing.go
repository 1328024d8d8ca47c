// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/desertthunder/tubetrack/internal/docstore"
	"github.com/desertthunder/tubetrack/internal/kv"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// ErrInjected is returned by [RecordingCollection] for scripted failures.
var ErrInjected = errors.New("injected failure")

// NewTestDB opens a migrated in-memory SQLite database closed at test cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewTestKV returns a [kv.SQLiteStore] over [NewTestDB].
func NewTestKV(t *testing.T) *kv.SQLiteStore {
	t.Helper()
	return kv.NewSQLiteStore(NewTestDB(t))
}

// NewTestLogger discards output unless -v is set.
func NewTestLogger(t *testing.T) *log.Logger {
	t.Helper()
	if testing.Verbose() {
		return log.NewWithOptions(os.Stderr, log.Options{Level: log.DebugLevel, Prefix: t.Name()})
	}
	return log.New(io.Discard)
}

// RecordingCollection wraps a [docstore.Collection], counting calls and failing scripted ones.
type RecordingCollection struct {
	docstore.Collection

	mu         sync.Mutex
	calls      map[string]int
	failInsert map[int]bool
	failOps    map[string]error
}

// NewRecordingCollection wraps inner, or a fresh [docstore.MemoryCollection] when inner is nil.
func NewRecordingCollection(inner docstore.Collection) *RecordingCollection {
	if inner == nil {
		inner = docstore.NewMemoryCollection("playlists")
	}
	return &RecordingCollection{
		Collection: inner,
		calls:      make(map[string]int),
		failInsert: make(map[int]bool),
		failOps:    make(map[string]error),
	}
}

// FailInsertAt makes the nth Insert call (1-based) fail with [ErrInjected].
func (c *RecordingCollection) FailInsertAt(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failInsert[n] = true
}

// FailOp makes every call of op ("insert", "patch", "remove", "findOne", "find", "upsert") fail with err.
// A nil err clears the failure.
func (c *RecordingCollection) FailOp(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failOps, op)
		return
	}
	c.failOps[op] = err
}

// Calls returns how many times op was invoked, including failed calls.
func (c *RecordingCollection) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Total returns the number of calls of every op.
func (c *RecordingCollection) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// Writes returns the number of insert, patch, remove and upsert calls.
func (c *RecordingCollection) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls["insert"] + c.calls["patch"] + c.calls["remove"] + c.calls["upsert"]
}

func (c *RecordingCollection) record(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	if op == "insert" && c.failInsert[c.calls[op]] {
		return ErrInjected
	}
	return c.failOps[op]
}

func (c *RecordingCollection) Insert(ctx context.Context, doc any) error {
	if err := c.record("insert"); err != nil {
		return err
	}
	return c.Collection.Insert(ctx, doc)
}

func (c *RecordingCollection) Patch(ctx context.Context, filter, fields bson.M) error {
	if err := c.record("patch"); err != nil {
		return err
	}
	return c.Collection.Patch(ctx, filter, fields)
}

func (c *RecordingCollection) Remove(ctx context.Context, filter bson.M) error {
	if err := c.record("remove"); err != nil {
		return err
	}
	return c.Collection.Remove(ctx, filter)
}

func (c *RecordingCollection) FindOne(ctx context.Context, filter bson.M, out any) error {
	if err := c.record("findOne"); err != nil {
		return err
	}
	return c.Collection.FindOne(ctx, filter, out)
}

func (c *RecordingCollection) Find(ctx context.Context, filter bson.M, sort bson.D, out any) error {
	if err := c.record("find"); err != nil {
		return err
	}
	return c.Collection.Find(ctx, filter, sort, out)
}

func (c *RecordingCollection) Upsert(ctx context.Context, id string, setOnInsert, set bson.M) error {
	if err := c.record("upsert"); err != nil {
		return err
	}
	return c.Collection.Upsert(ctx, id, setOnInsert, set)
}

// MockFetcher serves canned playlist metadata.
type MockFetcher struct {
	mu      sync.Mutex
	Data    map[string]*models.PlaylistData
	Err     error
	Fetches int
}

func (m *MockFetcher) FetchPlaylist(_ context.Context, playlistID string) (*models.PlaylistData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches++
	if m.Err != nil {
		return nil, m.Err
	}
	data, ok := m.Data[playlistID]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return data, nil
}

// SampleVideos returns n incomplete videos of 60s, 120s, ...
func SampleVideos(n int) []models.Video {
	videos := make([]models.Video, n)
	for i := range videos {
		secs := (i + 1) * 60
		videos[i] = models.Video{
			ID:                fmt.Sprintf("v%d", i+1),
			Title:             fmt.Sprintf("Video %d", i+1),
			Duration:          models.FormatDuration(secs),
			DurationInSeconds: secs,
			Order:             i,
		}
	}
	return videos
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
