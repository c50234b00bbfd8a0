package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var csvHeader = []string{
	"timestamp", "frame_number", "region_name", "value", "confidence", "raw_text", "source",
}

// BuildCSV renders measurements in the canonical column order. Confidence
// keeps four decimal places; timestamps use the shortest exact decimal.
func BuildCSV(measurements []Measurement) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write CSV header: %w", err)
	}
	for _, m := range measurements {
		record := []string{
			strconv.FormatFloat(m.Timestamp, 'f', -1, 64),
			strconv.FormatInt(m.FrameNumber, 10),
			m.RegionName,
			m.Value,
			strconv.FormatFloat(m.Confidence, 'f', 4, 64),
			m.RawText,
			m.Source,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write CSV record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush CSV: %w", err)
	}
	return buf.String(), nil
}

// WriteCSV renders measurements and writes them to path, creating parent
// directories as needed.
func WriteCSV(path string, measurements []Measurement) error {
	data, err := BuildCSV(measurements)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}
