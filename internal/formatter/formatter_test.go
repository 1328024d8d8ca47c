package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
	th "github.com/desertthunder/tubetrack/internal/testing"
)

func samplePlaylist() models.Playlist {
	videos := th.SampleVideos(3)
	videos[0].Completed = true
	videos[1].Title = "Commas, \"quotes\""
	videos[1].VideoURL = "https://www.youtube.com/watch?v=v2"
	p := models.Playlist{
		ID:          "local_1",
		Name:        "Go Basics",
		Description: "Start here",
		SourceURL:   "https://www.youtube.com/playlist?list=PL1",
		Videos:      videos,
	}
	p.Recompute()
	return p
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"MD", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{" text ", FormatText, false},
		{"txt", FormatText, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestExporters(t *testing.T) {
	p := samplePlaylist()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(p)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines: %s", len(lines), output)
		}
		if lines[0] != "Order,ID,Title,Duration,Seconds,Completed,URL" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != "1,v1,Video 1,1:00,60,true," {
			t.Errorf("unexpected first row: %s", lines[1])
		}
		if !strings.Contains(output, `"Commas, ""quotes"""`) {
			t.Errorf("CSV did not quote title, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(p)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Go Basics\n",
			"**Description**: Start here",
			"**Source**: https://www.youtube.com/playlist?list=PL1",
			"**Progress**: 1/3 videos (33%)",
			"**Time**: 1:00 of 6:00",
			"- [x] 1. Video 1 [1:00]",
			"- [ ] 2. [Commas, \"quotes\"](https://www.youtube.com/watch?v=v2) [2:00]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Thumbnail") {
			t.Error("Markdown should omit thumbnail when unset")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(p)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Playlist: Go Basics\nDescription: Start here\nVideos: 3 (1 completed)\n\n") {
			t.Errorf("unexpected header:\n%s", output)
		}
		if !strings.Contains(output, "[x] 1. Video 1 (1:00)") || !strings.Contains(output, "[ ] 3. Video 3 (3:00)") {
			t.Errorf("unexpected body:\n%s", output)
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		empty := models.Playlist{ID: "e", Name: "Empty"}
		for _, f := range []Format{FormatCSV, FormatMarkdown, FormatText} {
			if _, err := Export(empty, f); err != nil {
				t.Errorf("Export(%s) failed: %v", f, err)
			}
		}
	})

	t.Run("ToMetadataJSON omits videos", func(t *testing.T) {
		data, err := ToMetadataJSON(p)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["videos"] != nil {
			t.Errorf("expected no videos, got %v", decoded["videos"])
		}
		if decoded["totalVideos"] != float64(3) {
			t.Errorf("expected totalVideos 3, got %v", decoded["totalVideos"])
		}
		if len(p.Videos) != 3 {
			t.Error("ToMetadataJSON mutated its argument")
		}
	})
}

func TestWriteExport(t *testing.T) {
	p := samplePlaylist()

	t.Run("csv with metadata", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "basics.csv")
		result, err := WriteExport(p, FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if result.File != path {
			t.Errorf("expected file %s, got %s", path, result.File)
		}
		th.AssertFileExists(t, result.File)
		th.AssertFileExists(t, result.MetadataFile)
		if !strings.HasSuffix(result.MetadataFile, "basics_metadata.json") {
			t.Errorf("unexpected metadata file %s", result.MetadataFile)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "basics.md")
		result, err := WriteExport(p, FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if result.MetadataFile != "" {
			t.Errorf("markdown export should not write metadata, got %s", result.MetadataFile)
		}
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "# Go Basics") {
			t.Errorf("unexpected content:\n%s", content)
		}
	})

	t.Run("default filename", func(t *testing.T) {
		t.Chdir(t.TempDir())
		result, err := WriteExport(p, FormatText, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if result.File != "local_1_progress.txt" {
			t.Errorf("unexpected default filename %s", result.File)
		}
		th.AssertFileExists(t, result.File)
	})

	t.Run("unsupported format", func(t *testing.T) {
		if _, err := WriteExport(p, Format("pdf"), filepath.Join(t.TempDir(), "x.pdf")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPalette(t *testing.T) {
	palette := NewPalette("#111111", "#222222", "#333333", "#444444", "#555555")
	p := samplePlaylist()

	t.Run("ProgressBar clamps", func(t *testing.T) {
		if bar := palette.ProgressBar(150, 10); !strings.HasSuffix(bar, "100%") {
			t.Errorf("expected clamp to 100%%, got %q", bar)
		}
		if bar := palette.ProgressBar(-5, 10); !strings.HasSuffix(bar, "  0%") {
			t.Errorf("expected clamp to 0%%, got %q", bar)
		}
	})

	t.Run("PlaylistLine", func(t *testing.T) {
		line := palette.PlaylistLine(p)
		for _, want := range []string{"local_1", "Go Basics", "1/3 videos", "6m"} {
			if !strings.Contains(line, want) {
				t.Errorf("line missing %q: %s", want, line)
			}
		}
	})

	t.Run("PlaylistDetail", func(t *testing.T) {
		detail := palette.PlaylistDetail(p)
		if strings.Count(detail, "\n") < 5 || !strings.Contains(detail, "Video 3") {
			t.Errorf("unexpected detail:\n%s", detail)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		out := palette.Stats(models.CalculateStats([]models.Playlist{p}))
		if !strings.Contains(out, "1/3") || !strings.Contains(out, "Playlists   1") {
			t.Errorf("unexpected stats:\n%s", out)
		}
	})
}
