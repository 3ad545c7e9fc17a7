package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
)

// Column names every price file must carry.
const (
	DateColumn     = "Date"
	AdjCloseColumn = "Adj Close"
)

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006-01-02 15:04:05"}

// Loader reads one <symbol>.csv file per symbol from a directory.
type Loader struct {
	dir string
	log zerolog.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, log zerolog.Logger) *Loader {
	return &Loader{
		dir: dir,
		log: log.With().Str("component", "marketdata").Logger(),
	}
}

// Path returns the file the loader reads for symbol.
func (l *Loader) Path(symbol string) string {
	return filepath.Join(l.dir, symbol+".csv")
}

// LoadPrices reads the adjusted close of every symbol and outer-joins the
// series by date. A date missing from one symbol's file is NaN in its column.
func (l *Loader) LoadPrices(symbols []string) (*Table, error) {
	if len(symbols) == 0 {
		return nil, domain.ShapeError{Op: "load prices", Want: "at least one symbol", Got: "none"}
	}

	bySymbol := make(map[string]map[time.Time]float64, len(symbols))
	dateSet := make(map[time.Time]struct{})

	for _, symbol := range symbols {
		if _, dup := bySymbol[symbol]; dup {
			return nil, domain.ShapeError{Op: "load prices", Want: "distinct symbols", Got: "duplicate " + symbol}
		}

		series, err := l.readSeries(symbol)
		if err != nil {
			return nil, fmt.Errorf("load prices: %w", err)
		}
		bySymbol[symbol] = series
		for d := range series {
			dateSet[d] = struct{}{}
		}

		l.log.Debug().
			Str("symbol", symbol).
			Int("rows", len(series)).
			Msg("Loaded price series")
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := &Table{
		Dates:   dates,
		Symbols: append([]string(nil), symbols...),
		Values:  make(map[string][]float64, len(symbols)),
	}
	missing := 0
	for _, symbol := range symbols {
		col := make([]float64, len(dates))
		for i, d := range dates {
			if p, ok := bySymbol[symbol][d]; ok {
				col[i] = p
			} else {
				col[i] = math.NaN()
				missing++
			}
		}
		table.Values[symbol] = col
	}

	if missing > 0 {
		l.log.Warn().
			Int("missing_data_points", missing).
			Msg("Price series do not share all dates")
	}

	l.log.Info().
		Int("num_symbols", len(symbols)).
		Int("num_dates", len(dates)).
		Msg("Built price table")

	return table, nil
}

// LoadReturns loads prices and converts them to simple periodic returns.
func (l *Loader) LoadReturns(symbols []string) (*Table, error) {
	prices, err := l.LoadPrices(symbols)
	if err != nil {
		return nil, err
	}
	return Returns(prices), nil
}

func (l *Loader) readSeries(symbol string) (map[time.Time]float64, error) {
	path := l.Path(symbol)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: symbol %q: %w", domain.ErrMissingData, symbol, err)
	}
	defer f.Close()

	series, err := parseSeries(f)
	if err != nil {
		return nil, fmt.Errorf("%w: symbol %q (%s): %w", domain.ErrMissingData, symbol, path, err)
	}
	return series, nil
}

// parseSeries reads a CSV with at least Date and Adj Close columns. Values of
// "null", "NaN" or empty are recorded as missing; infinite prices are rejected.
func parseSeries(r io.Reader) (map[time.Time]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	dateIdx, closeIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case DateColumn:
			dateIdx = i
		case AdjCloseColumn:
			closeIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("no %q column", DateColumn)
	}
	if closeIdx < 0 {
		return nil, fmt.Errorf("no %q column", AdjCloseColumn)
	}

	series := make(map[time.Time]float64)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := series[date]; dup {
			return nil, fmt.Errorf("line %d: duplicate date %s", line, date.Format("2006-01-02"))
		}

		raw := strings.TrimSpace(record[closeIdx])
		if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "nan") {
			series[date] = math.NaN()
			continue
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, AdjCloseColumn, raw, err)
		}
		if math.IsInf(price, 0) {
			return nil, fmt.Errorf("line %d: invalid %s %q: not finite", line, AdjCloseColumn, raw)
		}
		series[date] = price
	}
	return series, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
