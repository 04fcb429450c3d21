// package formatter exports rendered charts to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/shared"
)

// Supported export formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the accepted values for [ParseFormat].
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat normalises a format name. "md" and "text" are accepted aliases.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatText, "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, s, strings.Join(Formats, ", "))
	}
}

// ChartExport is one genre/service chart as rendered, ready to be written out.
type ChartExport struct {
	Genre      models.Genre              `json:"genre"`
	Service    string                    `json:"service"`
	Descriptor models.PlaylistDescriptor `json:"descriptor"`
	Rank       models.Rank               `json:"rank"`
	Playlist   *models.Playlist          `json:"playlist"`
	ExportedAt time.Time                 `json:"exportedAt"`
}

// Name is the chart's display name, falling back to "{genre} {service}".
func (e *ChartExport) Name() string {
	if e.Descriptor.PlaylistName != "" {
		return e.Descriptor.PlaylistName
	}
	if e.Playlist != nil && e.Playlist.PlaylistName != "" {
		return e.Playlist.PlaylistName
	}
	return fmt.Sprintf("%s %s", e.Genre.Name, e.Service)
}

func (e *ChartExport) tracks() []models.Track {
	if e.Playlist == nil {
		return nil
	}
	return e.Playlist.Tracks
}

// Abbreviate renders a play count the way chart cells show it (950, 1.2K, 91M, 2.5B).
func Abbreviate(n int64) string {
	units := []struct {
		size   float64
		suffix string
	}{{1e9, "B"}, {1e6, "M"}, {1e3, "K"}}

	for _, u := range units {
		if float64(n) >= u.size {
			s := strconv.FormatFloat(float64(n)/u.size, 'f', 1, 64)
			return strings.TrimSuffix(s, ".0") + u.suffix
		}
	}
	return strconv.FormatInt(n, 10)
}

func count(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func abbreviated(v *int64) string {
	if v == nil {
		return "-"
	}
	return Abbreviate(*v)
}

// ExportToCSV converts a chart to CSV with columns: Position, Track, Artist, Album, ISRC, Spotify Plays, YouTube Plays, Total Plays, URL
func ExportToCSV(export *ChartExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Track", "Artist", "Album", "ISRC", "Spotify Plays", "YouTube Plays", "Total Plays", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.tracks() {
		record := []string{
			strconv.Itoa(track.Position),
			track.TrackName,
			track.ArtistName,
			track.AlbumName,
			track.ISRC,
			count(track.SpotifyCurrentPlayCount),
			count(track.YoutubeCurrentPlayCount),
			count(track.TotalCurrentPlayCount),
			track.ServiceURL(export.Service),
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

// ExportToMarkdown converts a chart to Markdown format with optional cover image
func ExportToMarkdown(export *ChartExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name())

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if export.Descriptor.PlaylistCoverDescriptionText != "" {
		fmt.Fprintf(&buf, "> %s\n\n", export.Descriptor.PlaylistCoverDescriptionText)
	}

	fmt.Fprintf(&buf, "**Genre**: %s\n", export.Genre.DisplayName)
	fmt.Fprintf(&buf, "**Service**: %s\n", export.Service)
	if export.Rank.DisplayName != "" {
		fmt.Fprintf(&buf, "**Sorted by**: %s\n", export.Rank.DisplayName)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.tracks()))

	buf.WriteString("## Tracks\n\n")
	buf.WriteString("| # | Track | Artist | Spotify | YouTube |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, track := range export.tracks() {
		name := track.TrackName
		if url := track.ServiceURL(export.Service); url != "" {
			name = fmt.Sprintf("[%s](%s)", track.TrackName, url)
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s |\n",
			track.Position, name, track.ArtistName,
			abbreviated(track.SpotifyCurrentPlayCount), abbreviated(track.YoutubeCurrentPlayCount))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a chart to plain text format
func ExportToText(export *ChartExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Chart: %s\n", export.Name())
	fmt.Fprintf(&buf, "Genre: %s\n", export.Genre.DisplayName)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.tracks()))

	for _, track := range export.tracks() {
		fmt.Fprintf(&buf, "%d. %s - %s\n", track.Position, track.ArtistName, track.TrackName)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a chart to indented JSON.
func ExportToJSON(export *ChartExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chart: %w", err)
	}
	return data, nil
}

// ToMetadataJSON generates a JSON representation of chart metadata (without tracks)
func ToMetadataJSON(export *ChartExport) ([]byte, error) {
	meta := struct {
		Genre      models.Genre              `json:"genre"`
		Service    string                    `json:"service"`
		Descriptor models.PlaylistDescriptor `json:"descriptor"`
		Rank       models.Rank               `json:"rank"`
		TrackCount int                       `json:"trackCount"`
		ExportedAt time.Time                 `json:"exportedAt"`
	}{export.Genre, export.Service, export.Descriptor, export.Rank, len(export.tracks()), export.ExportedAt}
	return json.MarshalIndent(meta, "", "  ")
}

// DownloadTimeout bounds [DownloadImage].
var DownloadTimeout = 30 * time.Second

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{Timeout: DownloadTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a chart to CSV format with accompanying metadata JSON file.
//
// Creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *ChartExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Genre.Name + "_" + export.Service
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	// CoverError is set when the cover could not be saved; the README is still written.
	CoverError error
}

// WriteMarkdownExport exports a chart to Markdown format in a dedicated directory.
//
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *ChartExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = filepath.Join(export.Genre.Name, export.Service)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			result.CoverError = err
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				result.CoverError = fmt.Errorf("failed to save cover image: %w", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a chart to plain text format.
func WriteTextExport(export *ChartExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_%s_tracks.txt", export.Genre.Name, export.Service)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports a chart, tracks included, as a single JSON file.
func WriteJSONExport(export *ChartExport, path string) (string, error) {
	data, err := ExportToJSON(export)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// WriteExport writes export in format under dir, named after its service, and returns the created files.
//
// coverURL is only used by the Markdown format.
func WriteExport(format string, export *ChartExport, dir, coverURL string) ([]string, error) {
	base := filepath.Join(dir, export.Service)

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case FormatMarkdown:
		res, err := WriteMarkdownExport(export, base, coverURL)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil
	case FormatText:
		path, err := WriteTextExport(export, base+"_tracks.txt")
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil
	case FormatJSON:
		path, err := WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}
