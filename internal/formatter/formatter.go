// Package formatter renders library items, playlists and tracks for the CLI as text, Markdown, CSV or JSON
package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{Text, Markdown, CSV, JSON}

// ParseFormat maps a flag value such as "md" to a [Format]. An empty value selects [Text].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: format %q", shared.ErrInvalidArgument, s)
	}
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(ms int) string {
	d := (time.Duration(ms) * time.Millisecond).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WriteTracks renders a titled track list.
func WriteTracks(w io.Writer, f Format, title string, tracks []models.Track) error {
	switch f {
	case JSON:
		return writeJSON(w, tracks)
	case CSV:
		rows := make([][]string, 0, len(tracks))
		for _, t := range tracks {
			rows = append(rows, []string{t.ID, t.Name, t.ArtistNames(), t.Album.Name, strconv.Itoa(t.DurationMS), t.PreviewURL})
		}
		return writeCSV(w, []string{"ID", "Name", "Artists", "Album", "DurationMS", "PreviewURL"}, rows)
	case Markdown:
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n**Tracks**: %d\n\n", title, len(tracks))
		for i, t := range tracks {
			album := ""
			if t.Album.Name != "" {
				album = fmt.Sprintf(" (%s)", t.Album.Name)
			}
			fmt.Fprintf(&b, "%d. %s - %s%s [%s]\n", i+1, t.ArtistNames(), t.Name, album, FormatDuration(t.DurationMS))
		}
		return writeString(w, b.String())
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "%s (%d tracks)\n", title, len(tracks))
		fmt.Fprintln(tw, "#\tNAME\tARTISTS\tLENGTH\tID")
		for i, t := range tracks {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, t.Name, t.ArtistNames(), FormatDuration(t.DurationMS), t.ID)
		}
		return flush(tw)
	}
}

// WriteLibrary renders library items in display order.
func WriteLibrary(w io.Writer, f Format, items []models.LibraryItem) error {
	switch f {
	case JSON:
		return writeJSON(w, items)
	case CSV:
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			rows = append(rows, []string{it.ID, string(it.Kind), it.Name, it.OwnerLabel})
		}
		return writeCSV(w, []string{"ID", "Kind", "Name", "Owner"}, rows)
	case Markdown:
		var b strings.Builder
		b.WriteString("| Kind | Name | Owner |\n|---|---|---|\n")
		for _, it := range items {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", it.Kind, it.Name, it.OwnerLabel)
		}
		return writeString(w, b.String())
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tNAME\tOWNER\tID")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Kind, it.Name, it.OwnerLabel, it.ID)
		}
		return flush(tw)
	}
}

// WritePlaylists renders playlist summaries with their origin.
func WritePlaylists(w io.Writer, f Format, playlists []models.Playlist) error {
	switch f {
	case JSON:
		return writeJSON(w, playlists)
	case CSV:
		rows := make([][]string, 0, len(playlists))
		for _, p := range playlists {
			rows = append(rows, []string{p.ID, p.Origin.String(), p.Name, p.Owner, strconv.Itoa(trackCount(p))})
		}
		return writeCSV(w, []string{"ID", "Origin", "Name", "Owner", "Tracks"}, rows)
	case Markdown:
		var b strings.Builder
		b.WriteString("| Name | Owner | Tracks | Origin |\n|---|---|---|---|\n")
		for _, p := range playlists {
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", p.Name, p.Owner, trackCount(p), p.Origin)
		}
		return writeString(w, b.String())
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tOWNER\tTRACKS\tORIGIN\tID")
		for _, p := range playlists {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.Name, p.Owner, trackCount(p), p.Origin, p.ID)
		}
		return flush(tw)
	}
}

// trackCount prefers loaded tracks over the service's summary count.
func trackCount(p models.Playlist) int {
	if p.Tracks != nil {
		return len(p.Tracks)
	}
	return p.TrackCount
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeString(w, string(data)+"\n")
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV records: %w", err)
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func flush(tw *tabwriter.Writer) error {
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
