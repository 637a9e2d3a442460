package occupancy

// Level is the capacity status of a slot.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

func (l Level) Label() string {
	switch l {
	case LevelDanger:
		return "full"
	case LevelWarning:
		return "high demand"
	default:
		return "available"
	}
}

// Color is the RGB fill used for the level in spreadsheets.
func (l Level) Color() string {
	switch l {
	case LevelDanger:
		return "FFC7CE"
	case LevelWarning:
		return "FFEB9C"
	default:
		return "C6EFCE"
	}
}

type Status struct {
	Level      Level  `json:"level"`
	Label      string `json:"label"`
	Percentage int    `json:"percentage"`
}

// Classify grades total against max: at least 90% is danger, at least 65% is
// warning. Thresholds are compared in integers so max=40 yields 36 and 26.
func Classify(total, max int) Status {
	level := LevelSuccess
	switch {
	case max <= 0:
		if total > 0 {
			level = LevelDanger
		}
	case total*10 >= max*9:
		level = LevelDanger
	case total*100 >= max*65:
		level = LevelWarning
	}
	return Status{Level: level, Label: level.Label(), Percentage: Percentage(total, max)}
}

// Percentage is total/max rounded to the nearest integer and capped at 100.
func Percentage(total, max int) int {
	if total <= 0 {
		return 0
	}
	if max <= 0 {
		return 100
	}
	return min((total*100+max/2)/max, 100)
}

// DayStats summarizes a day. People and ByCategory count every booking once,
// no matter how many slots it spans.
type DayStats struct {
	PeakTime          string         `json:"peak_time"`
	PeakTotal         int            `json:"peak_total"`
	HighDemandSlots   int            `json:"high_demand_slots"`
	AveragePercentage int            `json:"average_percentage"`
	Reservations      int            `json:"reservations"`
	People            int            `json:"people"`
	ByCategory        CategoryCounts `json:"by_category"`
}

// Summarize derives the day statistics from the slot grid and the bookings it
// was built from. The first slot with the highest total is the peak; an empty
// day has no peak time.
func Summarize(slots []SlotOccupancy, bookings []Booking, max int) DayStats {
	var stats DayStats
	sumPct := 0
	for _, s := range slots {
		if s.Total > stats.PeakTotal {
			stats.PeakTotal = s.Total
			stats.PeakTime = s.Time
		}
		if Classify(s.Total, max).Level != LevelSuccess {
			stats.HighDemandSlots++
		}
		sumPct += Percentage(s.Total, max)
	}
	if n := len(slots); n > 0 {
		stats.AveragePercentage = (sumPct + n/2) / n
	}

	for _, b := range bookings {
		stats.Reservations++
		stats.People += b.Headcount
		stats.ByCategory.Add(b.Category, b.Headcount)
	}
	return stats
}
