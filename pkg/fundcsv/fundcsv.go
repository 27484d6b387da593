// Package fundcsv parses the daily NAV CSV served by the Toushin Library
// after it has been transcoded to UTF-8.
package fundcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/samvad-hq/market-proxy/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrEmpty is returned when the CSV has no data rows.
var ErrEmpty = errors.New("fund csv has no data rows")

const headerPrefix = "年月日"

var (
	kanjiDate   = regexp.MustCompile(`(\d+)年(\d+)月(\d+)日`)
	numericDate = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
)

// fundRow binds the Toushin Library columns by position. Only Date and
// Price are used.
type fundRow struct {
	Date         string `csv:"date"`
	Price        string `csv:"price"`
	NetAssets    string `csv:"net_assets"`
	Distribution string `csv:"distribution"`
	Period       string `csv:"period"`
}

const fundColumns = 5

// clippedReader trims records wider than fundRow so positional binding never
// runs past the struct.
type clippedReader struct {
	r *csv.Reader
}

func (c clippedReader) Read() ([]string, error) {
	record, err := c.r.Read()
	if len(record) > fundColumns {
		record = record[:fundColumns]
	}
	return record, err
}

func (c clippedReader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		record, err := c.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

func newReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return clippedReader{r: r}
}

// Parse reads date/price pairs from the first two columns. Header and blank
// lines are skipped, as are rows whose date or price does not parse.
func Parse(text string) ([]domain.PricePoint, error) {
	var rows []*fundRow
	if err := gocsv.UnmarshalCSVWithoutHeaders(newReader(strings.NewReader(text)), &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read fund csv: %w", err)
	}

	var (
		points   []domain.PricePoint
		dataRows int
	)
	for _, row := range rows {
		if row == nil || isSkippable(row) {
			continue
		}
		dataRows++

		date, ok := normalizeDate(row.Date)
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(cleanNumber(row.Price))
		if err != nil {
			continue
		}
		points = append(points, domain.PricePoint{Date: date, Price: price})
	}

	if dataRows == 0 {
		return nil, ErrEmpty
	}
	return points, nil
}

func isSkippable(row *fundRow) bool {
	first := strings.TrimSpace(strings.TrimPrefix(row.Date, "\ufeff"))
	if strings.HasPrefix(first, headerPrefix) {
		return true
	}
	return first == "" && strings.TrimSpace(row.Price) == ""
}

func normalizeDate(s string) (string, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	m := kanjiDate.FindStringSubmatch(s)
	if m == nil {
		m = numericDate.FindStringSubmatch(s)
	}
	if m == nil {
		return "", false
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day), true
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `"`, "")
	return strings.ReplaceAll(s, ",", "")
}

// Latest returns the point with the greatest date.
func Latest(points []domain.PricePoint) (domain.PricePoint, bool) {
	if len(points) == 0 {
		return domain.PricePoint{}, false
	}
	latest := points[0]
	for _, p := range points[1:] {
		if p.Date > latest.Date {
			latest = p
		}
	}
	return latest, true
}

type row struct {
	Date  string `csv:"date"`
	Price string `csv:"price"`
}

// Marshal renders points as a normalized `date,price` CSV.
func Marshal(points []domain.PricePoint) (string, error) {
	rows := make([]*row, 0, len(points))
	for _, p := range points {
		rows = append(rows, &row{Date: p.Date, Price: p.Price.String()})
	}
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", fmt.Errorf("marshal fund csv: %w", err)
	}
	return out, nil
}
