// Package catalog loads the laptop catalog from tabular files into records.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
)

// ErrEmptyCatalog is returned when a catalog file has no header row.
var ErrEmptyCatalog = errors.New("catalog has no header row")

// booleanColumns hold 0/1 flags in the source data.
var booleanColumns = map[string]bool{
	models.FieldTouchScreen: true,
	models.FieldIps:         true,
}

// Load reads the catalog file at path. Supported formats are .csv and .xlsx.
func Load(path string) ([]*models.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return LoadBytes(content, strings.ToLower(filepath.Ext(path)))
}

// LoadBytes parses catalog content based on the extension (with leading dot).
func LoadBytes(content []byte, ext string) ([]*models.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".csv", "":
		rows, err = parseCSV(content)
	case ".xlsx":
		rows, err = parseExcel(content)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return FromRows(rows)
}

// FromRows turns a header row plus data rows into records. Record ids are the
// zero-based data row index. Columns with an empty header are ignored; missing
// cells are filled with "0".
func FromRows(rows [][]string) ([]*models.Record, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyCatalog
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	records := make([]*models.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		fields := make(map[string]string, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			var v string
			if col < len(row) {
				v = row[col]
			}
			fields[name] = Canonicalize(name, v)
		}
		records = append(records, &models.Record{
			ID:     strconv.Itoa(i),
			Fields: fields,
			Text:   Describe(fields),
			Source: append([]string(nil), row...),
		})
	}
	return records, nil
}

// Canonicalize normalizes a raw cell: blanks and NaN become "0", integral numbers lose
// their fraction ("16.0" -> "16"), and boolean columns map 0/1 to "false"/"true".
func Canonicalize(column, value string) string {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "nan") {
		v = "0"
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && math.Abs(f) < 1e15 && f == math.Trunc(f) {
		v = strconv.FormatInt(int64(f), 10)
	}
	if booleanColumns[column] {
		switch strings.ToLower(v) {
		case "0", "false", "no":
			return "false"
		case "1", "true", "yes":
			return "true"
		}
	}
	return v
}

// Describe renders the sentence that gets embedded for a record, e.g.
// "A Dell Notebook with 8GB RAM, an Intel Core i5 processor, and 256 GB SSD.
// It has a Intel GPU and runs Windows."
func Describe(fields map[string]string) string {
	get := func(key, def string) string {
		if v, ok := fields[key]; ok {
			return v
		}
		return def
	}

	var parts []string
	if ssd := toInt(get(models.FieldSSD, "0")); ssd > 0 {
		parts = append(parts, fmt.Sprintf("%d GB SSD", ssd))
	}
	if hdd := toInt(get(models.FieldHDD, "0")); hdd > 0 {
		parts = append(parts, fmt.Sprintf("%d GB HDD", hdd))
	}
	storage := "no dedicated storage"
	if len(parts) > 0 {
		storage = strings.Join(parts, " and ")
	}

	return fmt.Sprintf("A %s %s with %sGB RAM, an %s processor, and %s. It has a %s GPU and runs %s.",
		get(models.FieldCompany, ""),
		get(models.FieldTypeName, "laptop"),
		get(models.FieldRam, "8"),
		get(models.FieldCpuBrand, "Intel"),
		storage,
		get(models.FieldGpuBrand, "Intel"),
		get(models.FieldOs, "Windows"),
	)
}

func toInt(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(f)
}
