package poolimport

import (
	"regexp"
	"strconv"
	"strings"

	"aforo/internal/models"

	"github.com/shopspring/decimal"
)

var leadingInt = regexp.MustCompile(`^\s*([+-]?\d+)`)

// ParseRow turns a data row into a reservation for date. It returns a
// *RowError when the row has no client or no usable time.
func ParseRow(row Row, cols ColumnMap, date, defaultTechnique string) (models.PoolReservation, error) {
	clientIdx, _ := cols.Index(FieldClient)
	timeIdx, _ := cols.Index(FieldTime)

	client := strings.TrimSpace(row.At(clientIdx).String())
	if client == "" {
		return models.PoolReservation{}, &RowError{Row: -1, Reason: SkipMissingClient}
	}

	timeCell := row.At(timeIdx)
	if timeCell.IsBlank() {
		return models.PoolReservation{}, &RowError{Row: -1, Reason: SkipMissingTime}
	}
	clock, ok := NormalizeTime(timeCell)
	if !ok {
		return models.PoolReservation{}, &RowError{Row: -1, Reason: SkipInvalidTime}
	}

	technique := defaultTechnique
	if idx, ok := cols.Index(FieldTechnique); ok {
		technique = strings.TrimSpace(row.At(idx).String())
	}

	rec := models.PoolReservation{
		Date:            date,
		Time:            clock,
		Client:          client,
		Quantity:        1,
		Technique:       technique,
		DurationMinutes: DurationMinutes(technique),
		Category:        CategoryOf(technique),
		Amount:          decimal.Zero,
		Active:          true,
	}

	if idx, ok := cols.Index(FieldRoom); ok {
		if room := strings.TrimSpace(row.At(idx).String()); room != "" {
			rec.Room = &room
		}
	}
	if idx, ok := cols.Index(FieldQuantity); ok {
		if n, ok := cellInt(row.At(idx)); ok && n >= 1 {
			rec.Quantity = n
		}
	}
	if idx, ok := cols.Index(FieldAdults); ok {
		rec.Adults = nonNegative(row.At(idx))
	}
	if idx, ok := cols.Index(FieldChildren); ok {
		rec.Children = nonNegative(row.At(idx))
	}
	if idx, ok := cols.Index(FieldAmount); ok {
		rec.Amount = cellDecimal(row.At(idx))
	}
	rec.Phone = textField(row, cols, FieldPhone)
	rec.PaymentStatus = textField(row, cols, FieldPaymentStatus)
	rec.Details = textField(row, cols, FieldDetails)

	return rec, nil
}

func textField(row Row, cols ColumnMap, f Field) string {
	idx, ok := cols.Index(f)
	if !ok {
		return ""
	}
	return strings.TrimSpace(row.At(idx).String())
}

// cellInt reads an integer the way a lenient form field would: numbers are
// truncated and text contributes its leading digits.
func cellInt(c Cell) (int, bool) {
	switch c.Kind {
	case CellNumber:
		return int(c.Number), true
	case CellText:
		m := leadingInt.FindStringSubmatch(c.Text)
		if m == nil {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func nonNegative(c Cell) int {
	n, ok := cellInt(c)
	if !ok || n < 0 {
		return 0
	}
	return n
}

func cellDecimal(c Cell) decimal.Decimal {
	switch c.Kind {
	case CellNumber:
		return decimal.NewFromFloat(c.Number)
	case CellText:
		s := strings.TrimSpace(strings.ReplaceAll(c.Text, "€", ""))
		if strings.Contains(s, ",") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
