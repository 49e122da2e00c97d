package cbr

import (
	"cbr-rate-converter/domain"
	"github.com/PuerkitoBio/goquery"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Column labels of the CBR daily rates table.
const (
	ColumnNumCode  = "Цифр. код"
	ColumnCharCode = "Букв. код"
	ColumnUnits    = "Единиц"
	ColumnName     = "Валюта"
	ColumnValue    = "Курс"
)

// signature every candidate table must carry, in any order and alongside any other columns
var signature = []string{ColumnNumCode, ColumnCharCode, ColumnUnits, ColumnName, ColumnValue}

// rawTable is an HTML table reduced to text cells
type rawTable struct {
	// columns maps a header label to its cell index
	columns map[string]int
	rows    [][]string
}

func (t rawTable) matches() bool {
	for _, label := range signature {
		if _, ok := t.columns[label]; !ok {
			return false
		}
	}
	return true
}

// ParseTable finds the rate table in an HTML document by its column
// signature and normalizes it. The first matching table wins. Every
// failure is a *ParseError; no partial table is ever returned.
func ParseTable(r io.Reader) (*domain.RateTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{Reason: "invalid html", Err: err}
	}

	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, &ParseError{Reason: "page has no tables"}
	}

	var found *rawTable
	tables.EachWithBreak(func(_ int, tb *goquery.Selection) bool {
		t := readTable(tb)
		if t.matches() {
			found = &t
			return false
		}
		return true
	})
	if found == nil {
		return nil, &ParseError{Reason: "rate table not found: no table has columns " + strings.Join(signature, ", ")}
	}

	return normalize(*found)
}

// readTable collects the header labels and data rows of tb, ignoring rows of nested tables.
// The header is the first <thead> row, else the first all-<th> row, else the first row.
func readTable(tb *goquery.Selection) rawTable {
	type row struct {
		cells   []string
		inHead  bool
		allTh   bool
		hasData bool
	}

	var rows []row
	tb.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		r := row{
			cells:   make([]string, 0, cells.Length()),
			inHead:  goquery.NodeName(tr.Parent()) == "thead",
			allTh:   cells.Length() > 0 && cells.Length() == cells.Filter("th").Length(),
			hasData: cells.Filter("td").Length() > 0,
		}
		cells.Each(func(_ int, c *goquery.Selection) {
			r.cells = append(r.cells, cleanText(c.Text()))
		})
		rows = append(rows, r)
	})

	t := rawTable{columns: map[string]int{}}
	if len(rows) == 0 {
		return t
	}

	header := -1
	for i, r := range rows {
		if r.inHead {
			header = i
			break
		}
	}
	if header < 0 {
		for i, r := range rows {
			if r.allTh {
				header = i
				break
			}
		}
	}
	if header < 0 {
		header = 0
	}

	for i, label := range rows[header].cells {
		if _, dup := t.columns[label]; !dup {
			t.columns[label] = i
		}
	}
	for _, r := range rows[header+1:] {
		if r.hasData {
			t.rows = append(t.rows, r.cells)
		}
	}
	return t
}

func normalize(t rawTable) (*domain.RateTable, error) {
	if len(t.rows) == 0 {
		return nil, &ParseError{Reason: "rate table has no rows"}
	}

	entries := make([]domain.RateEntry, 0, len(t.rows)+1)
	seen := make(map[domain.Currency]bool, len(t.rows))

	for i, cells := range t.rows {
		n := i + 1
		cell := func(label string) (string, error) {
			idx := t.columns[label]
			if idx >= len(cells) {
				return "", &ParseError{Reason: "row is shorter than header", Row: n, Column: label}
			}
			return cells[idx], nil
		}

		rawCode, err := cell(ColumnCharCode)
		if err != nil {
			return nil, err
		}
		rawUnits, err := cell(ColumnUnits)
		if err != nil {
			return nil, err
		}
		name, err := cell(ColumnName)
		if err != nil {
			return nil, err
		}
		rawValue, err := cell(ColumnValue)
		if err != nil {
			return nil, err
		}

		code, ok := parseCode(rawCode)
		if !ok {
			return nil, &ParseError{Reason: "invalid currency code", Row: n, Column: ColumnCharCode, Value: rawCode}
		}
		if seen[code] {
			return nil, &ParseError{Reason: "duplicate currency code", Row: n, Column: ColumnCharCode, Value: rawCode}
		}
		seen[code] = true

		nominal, err := strconv.Atoi(stripSpace(rawUnits))
		if err != nil {
			return nil, &ParseError{Reason: "nominal is not an integer", Row: n, Column: ColumnUnits, Value: rawUnits, Err: err}
		}
		if nominal <= 0 {
			return nil, &ParseError{Reason: "nominal must be positive", Row: n, Column: ColumnUnits, Value: rawUnits}
		}

		value, err := parseValue(rawValue)
		if err != nil {
			return nil, &ParseError{Reason: "value is not a number", Row: n, Column: ColumnValue, Value: rawValue, Err: err}
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
			return nil, &ParseError{Reason: "value must be a positive finite number", Row: n, Column: ColumnValue, Value: rawValue}
		}

		if code == domain.Pivot && (nominal != 1 || value != 1.0) {
			return nil, &ParseError{Reason: "pivot row must be 1 RUB = 1.0", Row: n, Column: ColumnValue, Value: rawUnits + " / " + rawValue}
		}

		entries = append(entries, domain.RateEntry{
			Code:    code,
			Nominal: nominal,
			Name:    name,
			Value:   value,
		})
	}

	if !seen[domain.Pivot] {
		entries = append(entries, domain.RateEntry{
			Code:    domain.Pivot,
			Nominal: 1,
			Name:    domain.PivotName,
			Value:   1.0,
		})
	}

	table, err := domain.NewRateTable(entries)
	if err != nil {
		return nil, &ParseError{Reason: "invalid rate table", Err: err}
	}
	return table, nil
}

// parseCode upper-cases and trims s, which must then be three latin letters
func parseCode(s string) (domain.Currency, bool) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return domain.Currency(code), true
}

// parseValue reads a locale formatted number such as "1 234,5678"
func parseValue(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(stripSpace(s), ",", "."), 64)
}

// stripSpace removes every whitespace rune, NBSP included
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// cleanText collapses whitespace runs into single spaces and trims the ends
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
