package poolimport

import (
	"errors"
	"fmt"

	"aforo/internal/models"

	"github.com/xuri/excelize/v2"
)

// DefaultDateCell holds the batch date of single-day exports.
const DefaultDateCell = "B6"

const maxSkippedSamples = 5

type Options struct {
	HeaderScanRows   int
	SectionMarker    string
	DateCell         string
	DefaultTechnique string
}

func DefaultOptions() Options {
	return Options{
		HeaderScanRows:   DefaultHeaderScanRows,
		SectionMarker:    DefaultSectionMarker,
		DateCell:         DefaultDateCell,
		DefaultTechnique: models.DefaultTechnique,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HeaderScanRows <= 0 {
		o.HeaderScanRows = def.HeaderScanRows
	}
	if o.SectionMarker == "" {
		o.SectionMarker = def.SectionMarker
	}
	if o.DateCell == "" {
		o.DateCell = def.DateCell
	}
	if o.DefaultTechnique == "" {
		o.DefaultTechnique = def.DefaultTechnique
	}
	return o
}

// SkippedRow is a diagnostic sample of a row that produced no reservation.
type SkippedRow struct {
	Row    int        `json:"row"`
	Reason SkipReason `json:"reason"`
	Client string     `json:"client,omitempty"`
	Time   string     `json:"time,omitempty"`
}

// Stats are diagnostic counters of one parse.
type Stats struct {
	RowsScanned    int                `json:"rows_scanned"`
	BlankRows      int                `json:"blank_rows"`
	HeaderRows     int                `json:"header_rows"`
	SectionMarkers int                `json:"section_markers"`
	InvalidMarkers int                `json:"invalid_markers"`
	Parsed         int                `json:"parsed"`
	Skipped        int                `json:"skipped"`
	SkipReasons    map[SkipReason]int `json:"skip_reasons"`
	Samples        []SkippedRow       `json:"samples,omitempty"`
}

// Result groups parsed reservations by date. Dates keeps first-seen order.
type Result struct {
	Shape  Shape                               `json:"shape"`
	Dates  []string                            `json:"dates"`
	ByDate map[string][]models.PoolReservation `json:"reservations_by_date"`
	Total  int                                 `json:"total_count"`
	Stats  Stats                               `json:"stats"`
}

func (r *Result) Reservations(date string) []models.PoolReservation {
	return r.ByDate[date]
}

// Parse detects the export shape and extracts every reservation.
// Single-day exports are one implicit section dated by the date cell; multi-day
// exports open a section at every marker row.
func Parse(grid Grid, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	shape := DetectShape(grid, opts.SectionMarker)

	e := newEngine(opts, shape)
	if shape == SingleDay {
		start, err := e.seedSingleDay(grid)
		if err != nil {
			return nil, err
		}
		e.run(grid, start)
	} else {
		e.run(grid, 0)
	}

	if e.result.Total == 0 {
		return nil, &ImportError{Kind: ErrEmptyImport}
	}
	return e.result, nil
}

// section is the state threaded through the pass: the active date and the
// column layout of its header. Both are empty until resolved.
type section struct {
	date    string
	columns ColumnMap
}

type engine struct {
	opts    Options
	scanner *Scanner
	markers bool
	state   section
	result  *Result
}

func newEngine(opts Options, shape Shape) *engine {
	return &engine{
		opts:    opts,
		scanner: NewScanner(opts.HeaderScanRows),
		markers: shape == MultiDay,
		result: &Result{
			Shape:  shape,
			ByDate: make(map[string][]models.PoolReservation),
			Stats:  Stats{SkipReasons: make(map[SkipReason]int)},
		},
	}
}

// seedSingleDay resolves the implicit section and returns the first data row.
func (e *engine) seedSingleDay(grid Grid) (int, error) {
	col, row, err := excelize.CellNameToCoordinates(e.opts.DateCell)
	if err != nil {
		return 0, fmt.Errorf("date cell %q: %w", e.opts.DateCell, err)
	}
	cell := grid.At(row-1, col-1)
	if cell.IsBlank() {
		return 0, &ImportError{Kind: ErrMissingDateCell, Cell: e.opts.DateCell}
	}
	date, ok := NormalizeDate(cell)
	if !ok {
		return 0, &ImportError{
			Kind: ErrInvalidDateCell,
			Cell: e.opts.DateCell,
			Err:  fmt.Errorf("value %q", cell.String()),
		}
	}

	headerIdx, cols, err := e.scanner.Scan(grid)
	if err != nil {
		return 0, err
	}
	e.result.Stats.HeaderRows++
	e.state = section{date: date, columns: cols}
	e.open(date)
	return headerIdx + 1, nil
}

func (e *engine) run(grid Grid, start int) {
	for i := start; i < len(grid); i++ {
		e.step(i, grid[i])
	}
}

func (e *engine) step(idx int, row Row) {
	stats := &e.result.Stats
	stats.RowsScanned++

	if e.markers && IsSectionMarker(row, e.opts.SectionMarker) {
		stats.SectionMarkers++
		date, ok := NormalizeDate(row.At(1))
		if !ok {
			// A marker with a blank or unreadable date still closes the
			// previous section; its rows are not attributed to the prior date.
			stats.InvalidMarkers++
			e.state = section{}
			return
		}
		e.state = section{date: date}
		e.open(date)
		return
	}

	if e.state.columns == nil {
		if cols, ok := e.scanner.MatchRow(row); ok {
			e.state.columns = cols
			stats.HeaderRows++
		}
		return
	}
	if e.state.date == "" {
		return
	}
	if row.IsBlank() {
		stats.BlankRows++
		return
	}

	rec, err := ParseRow(row, e.state.columns, e.state.date, e.opts.DefaultTechnique)
	if err != nil {
		e.skip(idx, row, err)
		return
	}
	e.result.ByDate[e.state.date] = append(e.result.ByDate[e.state.date], rec)
	e.result.Total++
	stats.Parsed++
}

func (e *engine) open(date string) {
	if _, ok := e.result.ByDate[date]; ok {
		return
	}
	e.result.ByDate[date] = []models.PoolReservation{}
	e.result.Dates = append(e.result.Dates, date)
}

func (e *engine) skip(idx int, row Row, err error) {
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		return
	}
	rowErr.Row = idx

	stats := &e.result.Stats
	stats.Skipped++
	stats.SkipReasons[rowErr.Reason]++
	if len(stats.Samples) >= maxSkippedSamples {
		return
	}
	sample := SkippedRow{Row: idx, Reason: rowErr.Reason}
	if i, ok := e.state.columns.Index(FieldClient); ok {
		sample.Client = row.At(i).String()
	}
	if i, ok := e.state.columns.Index(FieldTime); ok {
		sample.Time = row.At(i).String()
	}
	stats.Samples = append(stats.Samples, sample)
}
