package tools

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// imageColumn keys every metrics CSV row.
const imageColumn = "Image"

// MetricsCSV is a table of per-image metrics stored as CSV, one row per image.
type MetricsCSV struct {
	path string
	mu   sync.Mutex
}

// NewMetricsCSV creates a table backed by path.
func NewMetricsCSV(path string) *MetricsCSV {
	return &MetricsCSV{path: path}
}

// Path returns the backing file.
func (m *MetricsCSV) Path() string {
	return m.path
}

// Upsert writes the values of image, replacing its previous row. Columns missing on
// either side are added and left empty.
func (m *MetricsCSV) Upsert(image string, values map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	header, rows, err := readTable(m.path)
	if err != nil {
		return err
	}
	if len(header) == 0 {
		header = []string{imageColumn}
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	for _, label := range metricLabels {
		if _, ok := values[label]; ok {
			if _, exists := index[label]; !exists {
				index[label] = len(header)
				header = append(header, label)
			}
		}
	}
	for label := range values {
		if _, exists := index[label]; !exists {
			index[label] = len(header)
			header = append(header, label)
		}
	}

	row := make([]string, len(header))
	row[0] = image
	for label, v := range values {
		row[index[label]] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	out := [][]string{header}
	for _, r := range rows {
		if len(r) > 0 && r[0] == image {
			continue
		}
		padded := make([]string, len(header))
		copy(padded, r)
		out = append(out, padded)
	}
	out = append(out, row)

	return writeTable(m.path, out)
}

// Rows returns the table keyed by image and column.
func (m *MetricsCSV) Rows() (map[string]map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return loadTable(m.path)
}

// loadTable reads a CSV whose first column is the image name.
func loadTable(path string) (map[string]map[string]string, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]string, len(rows))
	for _, r := range rows {
		if len(r) == 0 || r[0] == "" {
			continue
		}
		cells := make(map[string]string, len(header)-1)
		for i := 1; i < len(header) && i < len(r); i++ {
			cells[header[i]] = r[i]
		}
		out[r[0]] = cells
	}
	return out, nil
}

func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

// writeTable replaces path atomically.
func writeTable(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure csv directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".metrics-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp csv: %w", err)
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close csv: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
