package poolimport

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a semantic column of the reservations export.
type Field string

const (
	FieldClient        Field = "client"
	FieldTime          Field = "time"
	FieldRoom          Field = "room"
	FieldQuantity      Field = "quantity"
	FieldTechnique     Field = "technique"
	FieldPhone         Field = "phone"
	FieldAdults        Field = "adults"
	FieldChildren      Field = "children"
	FieldAmount        Field = "amount"
	FieldPaymentStatus Field = "payment_status"
	FieldDetails       Field = "details"
)

// DefaultHeaderScanRows is how many leading rows are searched for the header.
const DefaultHeaderScanRows = 50

// ColumnMap maps fields to zero-based column indexes. Missing keys are unresolved.
type ColumnMap map[Field]int

func (m ColumnMap) Index(f Field) (int, bool) {
	idx, ok := m[f]
	return idx, ok
}

// Resolved reports whether the map can drive the row parser.
func (m ColumnMap) Resolved() bool {
	_, client := m[FieldClient]
	_, tm := m[FieldTime]
	return client && tm
}

// LabelRule assigns Field to a header label containing any of Tokens.
// Tokens are compared against folded labels.
type LabelRule struct {
	Field  Field
	Tokens []string
}

func (r LabelRule) Match(label string) bool {
	for _, tok := range r.Tokens {
		if strings.Contains(label, tok) {
			return true
		}
	}
	return false
}

// DefaultLabelRules are evaluated in order; the first rule matching a cell wins.
var DefaultLabelRules = []LabelRule{
	{Field: FieldClient, Tokens: []string{"cliente", "nombre"}},
	{Field: FieldTime, Tokens: []string{"hora"}},
	{Field: FieldRoom, Tokens: []string{"hab"}},
	{Field: FieldQuantity, Tokens: []string{"cant"}},
	{Field: FieldTechnique, Tokens: []string{"tecnica"}},
	{Field: FieldPhone, Tokens: []string{"tel"}},
	{Field: FieldAdults, Tokens: []string{"adult"}},
	{Field: FieldChildren, Tokens: []string{"nin"}},
	{Field: FieldAmount, Tokens: []string{"import"}},
	{Field: FieldPaymentStatus, Tokens: []string{"pago", "estado"}},
	{Field: FieldDetails, Tokens: []string{"detall", "observ"}},
}

// FoldLabel lowercases s, strips diacritics and trims surrounding space.
func FoldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(strings.ToLower(folded))
}

// Scanner finds header rows by fuzzy label matching.
type Scanner struct {
	Rules  []LabelRule
	Window int
}

func NewScanner(window int) *Scanner {
	if window <= 0 {
		window = DefaultHeaderScanRows
	}
	return &Scanner{Rules: DefaultLabelRules, Window: window}
}

// MatchRow builds a ColumnMap from a single row. When two columns match the
// same field the leftmost one is kept, on purpose: exports place the start
// column ("Hora") before look-alikes such as "Hora fin", and a later match
// must not displace it.
func (s *Scanner) MatchRow(row Row) (ColumnMap, bool) {
	cols := make(ColumnMap)
	for idx, cell := range row {
		label := FoldLabel(cell.String())
		if label == "" {
			continue
		}
		for _, rule := range s.Rules {
			if !rule.Match(label) {
				continue
			}
			if _, taken := cols[rule.Field]; !taken {
				cols[rule.Field] = idx
			}
			break
		}
	}
	return cols, cols.Resolved()
}

// Scan returns the index of the first qualifying header row within the window.
func (s *Scanner) Scan(grid Grid) (int, ColumnMap, error) {
	limit := min(s.Window, len(grid))
	for i := 0; i < limit; i++ {
		if cols, ok := s.MatchRow(grid[i]); ok {
			return i, cols, nil
		}
	}
	return -1, nil, &ImportError{Kind: ErrHeaderNotFound}
}
