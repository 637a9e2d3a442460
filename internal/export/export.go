// Package export renders a day of reservations and occupancy as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"aforo/internal/models"
	"aforo/internal/occupancy"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	SheetReservations = "Reservas"
	SheetOccupancy    = "Aforo"
)

var reservationHeaders = []string{
	"Fecha", "Hora", "Origen", "Cliente", "Telefono", "Adultos", "Ninos", "Importe", "Estado", "Detalles",
}

var occupancyHeaders = []string{
	"Hora", "Alojados", "Externos", "IMSERSO", "Otros", "Total", "%", "Estado",
}

// DayWorkbook builds the workbook for one day. Manual reservations come first,
// then imported ones; imported quantity is reported as adults.
func DayWorkbook(day *occupancy.Day, manual []models.ManualReservation, pool []models.PoolReservation) (*excelize.File, error) {
	f := excelize.NewFile()

	for _, name := range []string{SheetReservations, SheetOccupancy} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("error creating sheet: %w", err)
		}
	}
	_ = f.DeleteSheet("Sheet1")
	if index, err := f.GetSheetIndex(SheetReservations); err == nil {
		f.SetActiveSheet(index)
	}

	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := writeReservations(f, header, day.Date, manual, pool); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeOccupancy(f, header, day); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// WriteDay streams the day workbook to w.
func WriteDay(w io.Writer, day *occupancy.Day, manual []models.ManualReservation, pool []models.PoolReservation) error {
	f, err := DayWorkbook(day, manual, pool)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// FileName is the download name of a day export.
func FileName(date string) string {
	return fmt.Sprintf("aforo_%s.xlsx", date)
}

// Exporter saves day workbooks under a directory.
type Exporter struct {
	path   string
	logger *zerolog.Logger
}

func NewExporter(path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

func (e *Exporter) SaveDay(day *occupancy.Day, manual []models.ManualReservation, pool []models.PoolReservation) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := DayWorkbook(day, manual, pool)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(e.path, FileName(day.Date))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Str("date", day.Date).Msg("Excel file created")
	return filePath, nil
}

func writeReservations(f *excelize.File, header int, date string, manual []models.ManualReservation, pool []models.PoolReservation) error {
	if err := writeHeaderRow(f, SheetReservations, header, reservationHeaders); err != nil {
		return err
	}

	row := 2
	for i := range manual {
		m := &manual[i]
		values := []interface{}{
			date, m.Time, string(occupancy.SourceManual), m.ClientName, m.Phone,
			m.Adults, m.Children, m.Amount.InexactFloat64(), m.PaymentStatus, m.Details,
		}
		if err := setRow(f, SheetReservations, row, values); err != nil {
			return err
		}
		row++
	}
	for i := range pool {
		p := &pool[i]
		values := []interface{}{
			date, p.Time, string(occupancy.SourceExcel), p.Client, p.Phone,
			p.Quantity, 0, p.Amount.InexactFloat64(), p.PaymentStatus, p.Technique,
		}
		if err := setRow(f, SheetReservations, row, values); err != nil {
			return err
		}
		row++
	}

	_ = f.SetColWidth(SheetReservations, "A", "C", 12)
	_ = f.SetColWidth(SheetReservations, "D", "D", 30)
	_ = f.SetColWidth(SheetReservations, "E", "I", 14)
	_ = f.SetColWidth(SheetReservations, "J", "J", 40)
	return nil
}

func writeOccupancy(f *excelize.File, header int, day *occupancy.Day) error {
	if err := writeHeaderRow(f, SheetOccupancy, header, occupancyHeaders); err != nil {
		return err
	}

	styles := make(map[occupancy.Level]int)
	for i, slot := range day.Slots {
		row := i + 2
		values := []interface{}{
			slot.Time,
			slot.Counts.Get(models.CategoryGuests),
			slot.Counts.Get(models.CategoryExternal),
			slot.Counts.Get(models.CategorySubsidized),
			slot.Counts.Get(models.CategoryOther),
			slot.Total,
			slot.Status.Percentage,
			slot.Status.Label,
		}
		if err := setRow(f, SheetOccupancy, row, values); err != nil {
			return err
		}

		style, ok := styles[slot.Status.Level]
		if !ok {
			var err error
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Color: []string{"#" + slot.Status.Level.Color()}, Pattern: 1},
			})
			if err != nil {
				return err
			}
			styles[slot.Status.Level] = style
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(occupancyHeaders), row)
		if err := f.SetCellStyle(SheetOccupancy, first, last, style); err != nil {
			return err
		}
	}

	summary := len(day.Slots) + 3
	stats := day.Stats
	rows := [][]interface{}{
		{"Capacidad", day.MaxCapacity},
		{"Pico", stats.PeakTime, stats.PeakTotal},
		{"Franjas alta demanda", stats.HighDemandSlots},
		{"Ocupacion media %", stats.AveragePercentage},
		{"Reservas", stats.Reservations},
		{"Personas", stats.People},
	}
	for i, values := range rows {
		if err := setRow(f, SheetOccupancy, summary+i, values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetOccupancy, "A", "A", 22)
	return nil
}

func writeHeaderRow(f *excelize.File, sheet string, style int, headers []string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return f.SetSheetRow(sheet, cell, &values)
}
