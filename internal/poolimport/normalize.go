package poolimport

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockPattern   = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::\d{2})?`)
	compactPattern = regexp.MustCompile(`^\d{3,4}$`)
	datePattern    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)

	// serialEpoch is day zero of spreadsheet date serials.
	serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
)

const minutesPerDay = 24 * 60

// NormalizeTime converts a time cell to "HH:MM". The second result is false
// when the cell does not hold a recognizable time.
func NormalizeTime(c Cell) (string, bool) {
	switch c.Kind {
	case CellNumber:
		return timeFromNumber(c.Number)
	case CellDate:
		return timeFromDate(c.Time)
	case CellText:
		return timeFromText(c.Text)
	default:
		return "", false
	}
}

func timeFromNumber(v float64) (string, bool) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", false
	}
	if v >= 1 {
		whole, frac := math.Modf(v)
		if frac == 0 {
			// 930 typed as a number is a compact clock, not a date serial.
			if whole < 10000 {
				return timeFromText(strconv.Itoa(int(whole)))
			}
			return "", false
		}
		v = frac
	}
	minutes := int(math.Round(v * minutesPerDay))
	if minutes >= minutesPerDay {
		minutes = minutesPerDay - 1
	}
	return formatClock(minutes/60, minutes%60)
}

// timeFromDate rounds to the nearest minute so a date-formatted serial reads
// the same as the plain number.
func timeFromDate(t time.Time) (string, bool) {
	minutes := t.Hour()*60 + t.Minute()
	rest := time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
	if rest >= 30*time.Second {
		minutes++
	}
	if minutes >= minutesPerDay {
		minutes = minutesPerDay - 1
	}
	return formatClock(minutes/60, minutes%60)
}

func timeFromText(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return formatClock(h, mm)
	}
	if compactPattern.MatchString(s) {
		padded := strings.Repeat("0", 4-len(s)) + s
		h, _ := strconv.Atoi(padded[:2])
		mm, _ := strconv.Atoi(padded[2:])
		return formatClock(h, mm)
	}
	return "", false
}

func formatClock(h, m int) (string, bool) {
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

// NormalizeDate converts a date cell to "YYYY-MM-DD".
func NormalizeDate(c Cell) (string, bool) {
	switch c.Kind {
	case CellDate:
		return c.Time.Format("2006-01-02"), true
	case CellNumber:
		if c.Number < 1 || math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return "", false
		}
		days := int(math.Floor(c.Number))
		return serialEpoch.AddDate(0, 0, days).Format("2006-01-02"), true
	case CellText:
		return dateFromText(c.Text)
	default:
		return "", false
	}
}

func dateFromText(s string) (string, bool) {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// ClockMinutes converts "HH:MM" to minutes since midnight.
func ClockMinutes(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
