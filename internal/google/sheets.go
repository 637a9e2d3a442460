package google

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"aforo/internal/config"
	"aforo/internal/models"
	"aforo/internal/occupancy"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Column headers of an occupancy tab.
var occupancyHeaders = []interface{}{"Hora", "Alojados", "Externos", "IMSERSO", "Otros", "Total", "%", "Estado"}

const headerRow = 3

// SheetsService renders day occupancy into one tab per date.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetPrefix   string
	sheetIDs      map[string]int64
	mu            sync.Mutex
	now           func() time.Time
}

// NewSheetsService authenticates with a service account credentials file.
func NewSheetsService(ctx context.Context, cfg config.GoogleConfig) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	return NewSheetsServiceWithOptions(ctx, cfg, option.WithHTTPClient(jwt.Client(ctx)))
}

func NewSheetsServiceWithOptions(ctx context.Context, cfg config.GoogleConfig, opts ...option.ClientOption) (*SheetsService, error) {
	if cfg.OccupancySpreadsheetID == "" {
		return nil, fmt.Errorf("occupancy spreadsheet id is required")
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	prefix := cfg.OccupancySheet
	if prefix == "" {
		prefix = "Aforo"
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: cfg.OccupancySpreadsheetID,
		sheetPrefix:   prefix,
		sheetIDs:      make(map[string]int64),
		now:           time.Now,
	}, nil
}

// TestConnection reads the spreadsheet metadata.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	if _, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// SheetTitle names the tab holding date.
func (s *SheetsService) SheetTitle(date string) string {
	return s.sheetPrefix + " " + date
}

// WriteDayOccupancy replaces the tab of day.Date with its slot grid and
// colors each slot row by capacity status.
func (s *SheetsService) WriteDayOccupancy(ctx context.Context, day *occupancy.Day) error {
	title := s.SheetTitle(day.Date)
	sheetID, err := s.ensureSheet(ctx, title)
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, a1(title, "A:Z"), &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to clear sheet: %w", err)
	}

	values := s.dayValues(day)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, a1(title, "A1"), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to write occupancy: %w", err)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: formatRequests(sheetID, day)}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to format occupancy: %w", err)
	}
	return nil
}

func (s *SheetsService) dayValues(day *occupancy.Day) [][]interface{} {
	values := [][]interface{}{
		{fmt.Sprintf("Aforo %s", day.Date), "Capacidad", day.MaxCapacity, "Actualizado", s.now().Format("2006-01-02 15:04:05")},
		{},
		occupancyHeaders,
	}
	for _, slot := range day.Slots {
		values = append(values, []interface{}{
			slot.Time,
			slot.Counts.Get(models.CategoryGuests),
			slot.Counts.Get(models.CategoryExternal),
			slot.Counts.Get(models.CategorySubsidized),
			slot.Counts.Get(models.CategoryOther),
			slot.Total,
			slot.Status.Percentage,
			slot.Status.Label,
		})
	}
	stats := day.Stats
	values = append(values,
		[]interface{}{},
		[]interface{}{"Pico", stats.PeakTime, stats.PeakTotal},
		[]interface{}{"Franjas alta demanda", stats.HighDemandSlots},
		[]interface{}{"Ocupacion media %", stats.AveragePercentage},
		[]interface{}{"Reservas", stats.Reservations},
		[]interface{}{"Personas", stats.People},
	)
	return values
}

func formatRequests(sheetID int64, day *occupancy.Day) []*sheets.Request {
	requests := []*sheets.Request{{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    headerRow - 1,
				EndRowIndex:      headerRow,
				StartColumnIndex: 0,
				EndColumnIndex:   int64(len(occupancyHeaders)),
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					HorizontalAlignment: "CENTER",
					TextFormat:          &sheets.TextFormat{Bold: true},
				},
			},
			Fields: "userEnteredFormat(textFormat,horizontalAlignment)",
		},
	}}

	for i, slot := range day.Slots {
		row := int64(headerRow + i)
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    row,
					EndRowIndex:      row + 1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(occupancyHeaders)),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{BackgroundColor: hexColor(slot.Status.Level.Color())},
				},
				Fields: "userEnteredFormat.backgroundColor",
			},
		})
	}
	return requests
}

// ensureSheet returns the id of the tab named title, creating it if missing.
func (s *SheetsService) ensureSheet(ctx context.Context, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.sheetIDs[title]; ok {
		return id, nil
	}

	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			s.sheetIDs[title] = sheet.Properties.SheetId
			return sheet.Properties.SheetId, nil
		}
	}

	resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to add sheet %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %q: empty reply", title)
	}
	id := resp.Replies[0].AddSheet.Properties.SheetId
	s.sheetIDs[title] = id
	return id, nil
}

// a1 quotes the tab title for A1 notation.
func a1(title, rng string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + rng
}

func hexColor(hex string) *sheets.Color {
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return &sheets.Color{Red: 1, Green: 1, Blue: 1}
	}
	return &sheets.Color{
		Red:   float64((v>>16)&0xFF) / 255,
		Green: float64((v>>8)&0xFF) / 255,
		Blue:  float64(v&0xFF) / 255,
	}
}
