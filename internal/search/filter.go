package search

import (
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/specs"
)

// Matches reports whether rec satisfies every present equality constraint in s.
// Values compare as trimmed strings, case-insensitively. When storageBounds is set the
// total storage qualifiers are enforced against SSD + HDD as well.
func Matches(rec *models.Record, s *specs.QuerySpecs, storageBounds bool) bool {
	if rec == nil {
		return false
	}
	for _, c := range s.Equality() {
		if !strings.EqualFold(strings.TrimSpace(rec.Field(c.Key)), c.Value) {
			return false
		}
	}
	if !storageBounds {
		return true
	}
	total := rec.TotalStorage()
	if s.MinTotalStorage != nil && total < *s.MinTotalStorage {
		return false
	}
	if s.MaxTotalStorage != nil && total > *s.MaxTotalStorage {
		return false
	}
	return true
}
