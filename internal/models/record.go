// Package models defines core data structures for catalog records, queries, and search results.
package models

import (
	"strconv"
	"strings"
)

// Catalog column names shared by the loader, the spec extractor and the filter.
const (
	FieldCompany     = "Company"
	FieldTypeName    = "TypeName"
	FieldRam         = "Ram"
	FieldWeight      = "Weight"
	FieldPrice       = "Price"
	FieldTouchScreen = "TouchScreen"
	FieldIps         = "Ips"
	FieldPpi         = "Ppi"
	FieldCpuBrand    = "Cpu_brand"
	FieldHDD         = "HDD"
	FieldSSD         = "SSD"
	FieldGpuBrand    = "Gpu_brand"
	FieldOs          = "Os"
)

// Record is a single catalog entry. Records are created at build time and never mutated;
// the whole catalog is replaced on rebuild.
type Record struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
	// Text is the natural-language description that gets embedded.
	Text string `json:"text"`
	// Source holds the row cells as read, before canonicalization. It only feeds the
	// data fingerprint and is not persisted.
	Source []string `json:"-"`
}

// Field returns the value of a catalog column, or "" when the record has no such column.
func (r *Record) Field(name string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// HasField reports whether the record carries the column at all.
func (r *Record) HasField(name string) bool {
	if r == nil || r.Fields == nil {
		return false
	}
	_, ok := r.Fields[name]
	return ok
}

// TotalStorage returns SSD + HDD in GB. Values that do not parse count as zero.
func (r *Record) TotalStorage() int {
	return parseGB(r.Field(FieldSSD)) + parseGB(r.Field(FieldHDD))
}

func parseGB(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
