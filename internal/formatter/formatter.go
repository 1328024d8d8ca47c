// package formatter exports playlist progress to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts csv, md/markdown and txt/text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q (csv, md, txt)", shared.ErrInvalidArgument, s)
}

// ExportToCSV converts a playlist to CSV with columns: Order, ID, Title, Duration, Seconds, Completed, URL
func ExportToCSV(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Order", "ID", "Title", "Duration", "Seconds", "Completed", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, v := range p.Videos {
		record := []string{
			strconv.Itoa(i + 1),
			v.ID,
			v.Title,
			v.Duration,
			strconv.Itoa(v.DurationInSeconds),
			strconv.FormatBool(v.Completed),
			v.VideoURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to a Markdown checklist.
func ExportToMarkdown(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)

	if p.ThumbnailURL != "" {
		fmt.Fprintf(&buf, "![Thumbnail](%s)\n\n", p.ThumbnailURL)
	}
	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}
	if p.SourceURL != "" {
		fmt.Fprintf(&buf, "**Source**: %s\n", p.SourceURL)
	}

	fmt.Fprintf(&buf, "**Progress**: %d/%d videos (%.0f%%)\n", p.CompletedVideos(), len(p.Videos), p.Progress())
	fmt.Fprintf(&buf, "**Time**: %s of %s\n\n", models.FormatDuration(p.CompletedDuration), models.FormatDuration(p.TotalDuration))

	buf.WriteString("## Videos\n\n")
	for i, v := range p.Videos {
		check := " "
		if v.Completed {
			check = "x"
		}
		title := v.Title
		if v.VideoURL != "" {
			title = fmt.Sprintf("[%s](%s)", v.Title, v.VideoURL)
		}
		fmt.Fprintf(&buf, "- [%s] %d. %s [%s]\n", check, i+1, title, v.Duration)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Videos: %d (%d completed)\n\n", len(p.Videos), p.CompletedVideos())

	for i, v := range p.Videos {
		mark := "[ ]"
		if v.Completed {
			mark = "[x]"
		}
		fmt.Fprintf(&buf, "%s %d. %s (%s)\n", mark, i+1, v.Title, v.Duration)
	}

	return buf.Bytes(), nil
}

// Export renders p in format.
func Export(p models.Playlist, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(p)
	case FormatMarkdown:
		return ExportToMarkdown(p)
	case FormatText:
		return ExportToText(p)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without videos)
func ToMetadataJSON(p models.Playlist) ([]byte, error) {
	p.Videos = nil
	return shared.MarshalJSON(p, true)
}

// ExportResult contains the paths of files created by [WriteExport]
type ExportResult struct {
	File         string
	MetadataFile string // CSV exports only
}

// WriteExport writes p to path in format.
//
// Defaults to {playlist.ID}_progress.{format}. CSV exports also write {base}_metadata.json.
func WriteExport(p models.Playlist, format Format, path string) (*ExportResult, error) {
	if path == "" {
		path = fmt.Sprintf("%s_progress.%s", p.ID, format)
	}

	data, err := Export(p, format)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", format, err)
	}

	result := &ExportResult{File: path}
	if format != FormatCSV {
		return result, nil
	}

	metadata, err := ToMetadataJSON(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}
	result.MetadataFile = strings.TrimSuffix(path, filepath.Ext(path)) + "_metadata.json"
	if err := os.WriteFile(result.MetadataFile, metadata, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}
	return result, nil
}
