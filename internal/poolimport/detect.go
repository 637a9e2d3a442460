package poolimport

import "fmt"

// DefaultSectionMarker opens a date section in multi-day exports.
const DefaultSectionMarker = "Día :"

// Shape is the layout of an export.
type Shape int

const (
	SingleDay Shape = iota
	MultiDay
)

func (s Shape) String() string {
	if s == MultiDay {
		return "multi_day"
	}
	return "single_day"
}

// IsSectionMarker reports whether the first cell of row is the marker token.
func IsSectionMarker(row Row, marker string) bool {
	first := row.At(0)
	if first.Kind != CellText {
		return false
	}
	return FoldLabel(first.Text) == FoldLabel(marker)
}

// DetectShape counts marker rows; more than one means a multi-day export.
func DetectShape(grid Grid, marker string) Shape {
	count := 0
	for _, row := range grid {
		if IsSectionMarker(row, marker) {
			count++
			if count > 1 {
				return MultiDay
			}
		}
	}
	return SingleDay
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(text []byte) error {
	switch string(text) {
	case "single_day":
		*s = SingleDay
	case "multi_day":
		*s = MultiDay
	default:
		return fmt.Errorf("unknown export shape %q", text)
	}
	return nil
}
