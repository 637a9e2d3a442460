package poolimport

import (
	"strings"

	"aforo/internal/models"
)

const (
	ShortSessionMinutes = 30
	LongSessionMinutes  = 60
)

// DurationMinutes derives the session length from the technique text.
func DurationMinutes(technique string) int {
	t := strings.ToUpper(technique)
	if strings.Contains(t, "IMS") || strings.Contains(t, "IMSERSO") || strings.Contains(t, "25") {
		return ShortSessionMinutes
	}
	return LongSessionMinutes
}

// CategoryOf derives the occupancy category from the technique text.
// "NO ALOJADOS" must be checked before "ALOJADOS", which it contains.
func CategoryOf(technique string) models.Category {
	t := strings.ToUpper(technique)
	switch {
	case strings.Contains(t, "NO ALOJADOS"):
		return models.CategoryExternal
	case strings.Contains(t, "ALOJADOS"):
		return models.CategoryGuests
	case strings.Contains(t, "IMS"), strings.Contains(t, "IMSERSO"):
		return models.CategorySubsidized
	default:
		return models.CategoryOther
	}
}
