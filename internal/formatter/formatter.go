// Package formatter serializes a finished result table to CSV or JSON files.
package formatter

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"muniresults/internal/models"
)

// FileName returns the artifact name of a run, e.g. result_mayor_round1_2024.csv.
func FileName(candidacy models.CandidacyType, year int, format models.ExportFormat) string {
	return fmt.Sprintf("result_%s_round1_%d.%s", candidacy, year, format.Extension())
}

// Write serializes table in the given format.
func Write(w io.Writer, table *models.ResultTable, format models.ExportFormat) error {
	switch format {
	case models.FormatCSV:
		return WriteCSV(w, table)
	case models.FormatJSON:
		return WriteJSON(w, table)
	default:
		return fmt.Errorf("unsupported export format: %q", format)
	}
}

// WriteCSV writes the header row followed by one row per record.
func WriteCSV(w io.Writer, table *models.ResultTable) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table.Matrix()); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteJSON writes an array of objects whose keys follow the header order.
// Vote counts and percentages are numbers, every other value is a string.
func WriteJSON(w io.Writer, table *models.ResultTable) error {
	header := table.Header()
	keys := make([][]byte, len(header))
	for i, h := range header {
		b, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("failed to encode column %q: %w", h, err)
		}
		keys[i] = b
	}

	bw := bufio.NewWriter(w)
	bw.WriteByte('[')
	for ri, rec := range table.Records {
		if ri > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('{')
		for ci, v := range table.Values(rec) {
			if ci > 0 {
				bw.WriteByte(',')
			}
			val, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode record %d column %q: %w", ri, header[ci], err)
			}
			bw.Write(keys[ci])
			bw.WriteByte(':')
			bw.Write(val)
		}
		bw.WriteByte('}')
	}
	bw.WriteByte(']')
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// Export writes table into dir under FileName and returns the final path.
// The file appears only once fully written.
func Export(dir string, year int, table *models.ResultTable, format models.ExportFormat) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, table, format); err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(table.Candidacy, year, format))

	tmp, err := os.CreateTemp(dir, ".result-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move result into place: %w", err)
	}
	return path, nil
}
