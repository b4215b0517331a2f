package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"attendancereport/internal/summary"
)

// Header is the fixed column order of every export.
var Header = []string{"Name", "Document", "Presences", "Lateness", "Absences", "Discount", "LastMark"}

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a user supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Record renders one row as export cells.
func Record(r summary.Row) []string {
	return []string{
		r.Name,
		deref(r.Document),
		strconv.Itoa(r.Presences),
		strconv.Itoa(r.Lateness),
		strconv.Itoa(r.Absences),
		strconv.FormatFloat(r.Discount, 'f', 1, 64),
		deref(r.LastMark),
	}
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []summary.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write encodes rows in the given format.
func Write(w io.Writer, format Format, rows []summary.Row) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatCSV, "":
		return WriteCSV(w, rows)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteFile creates path (and its directory) and writes rows to it.
func WriteFile(path string, format Format, rows []summary.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(f, format, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
