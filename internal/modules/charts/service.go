// Package charts renders price history and efficient frontier charts as PNG.
package charts

import (
	"bytes"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	charts "github.com/vicanso/go-charts/v2"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/marketdata"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/optimization"
)

const (
	// DefaultWidth and DefaultHeight are the rendered image size in pixels.
	DefaultWidth  = 1000
	DefaultHeight = 600

	labelLayout = "2006-01"
	maxLabels   = 12
)

// Service renders charts
type Service struct {
	width  int
	height int
	log    zerolog.Logger
}

// NewService creates a new charts service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		width:  DefaultWidth,
		height: DefaultHeight,
		log:    log.With().Str("service", "charts").Logger(),
	}
}

// WithSize returns a copy of the service rendering at the given size.
func (s *Service) WithSize(width, height int) *Service {
	cp := *s
	cp.width = width
	cp.height = height
	return &cp
}

// PriceHistory draws one line per symbol with the adjusted close over time.
// Gaps are filled for display only.
func (s *Service) PriceHistory(prices *marketdata.Table) ([]byte, error) {
	return s.timeSeries("Price History", "adjusted close", prices)
}

// CumulativeChange draws p_t / p_0 per symbol.
func (s *Service) CumulativeChange(prices *marketdata.Table) ([]byte, error) {
	if err := checkTable("cumulative change chart", prices); err != nil {
		return nil, err
	}
	return s.timeSeries("Cumulative Change", "p(t) / p(0)", marketdata.CumulativeChange(prices))
}

func (s *Service) timeSeries(title, subtitle string, t *marketdata.Table) ([]byte, error) {
	if err := checkTable(title, t); err != nil {
		return nil, err
	}

	filled := marketdata.FillMissing(t)
	values := make([][]float64, 0, len(filled.Symbols))
	for _, sym := range filled.Symbols {
		col := filled.Column(sym)
		if len(col) > 0 && math.IsNaN(col[0]) {
			return nil, fmt.Errorf("%w: %s: no observations for %s", domain.ErrMissingData, title, sym)
		}
		values = append(values, col)
	}

	labels := make([]string, len(filled.Dates))
	for i, d := range filled.Dates {
		labels[i] = d.Format(labelLayout)
	}
	split := len(labels) / maxLabels
	if split < 1 {
		split = 1
	}

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: filled.Symbols, Left: charts.PositionRight}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(s.width),
		charts.HeightOptionFunc(s.height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", title, err)
	}

	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", title, err)
	}

	s.log.Debug().
		Str("chart", title).
		Int("series", len(values)).
		Int("points", len(labels)).
		Int("bytes", len(buf)).
		Msg("Rendered chart")

	return buf, nil
}

// EfficientFrontier plots standard deviation (x) against expected return (y)
// for the given points in order. A non-nil gmv is marked as a single dot.
func (s *Service) EfficientFrontier(points []optimization.FrontierPoint, gmv *optimization.FrontierPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, domain.Shape("efficient frontier chart", 2, len(points))
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		if math.IsNaN(p.Stdev) || math.IsNaN(p.Return) {
			return nil, fmt.Errorf("%w: frontier point %d is NaN", domain.ErrDomain, i)
		}
		xs[i] = p.Stdev
		ys[i] = p.Return
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Efficient frontier",
			XValues: xs,
			YValues: ys,
		},
	}
	if gmv != nil {
		series = append(series, chart.ContinuousSeries{
			Name:    "Global minimum variance",
			XValues: []float64{gmv.Stdev},
			YValues: []float64{gmv.Return},
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    5,
			},
		})
	}

	graph := chart.Chart{
		Title:  "Efficient Frontier",
		Width:  s.width,
		Height: s.height,
		XAxis:  chart.XAxis{Name: "Portfolio Standard Deviation"},
		YAxis:  chart.YAxis{Name: "Portfolio Expected Return"},
		Series: series,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render efficient frontier: %w", err)
	}

	s.log.Debug().
		Int("points", len(points)).
		Bool("gmv", gmv != nil).
		Int("bytes", buf.Len()).
		Msg("Rendered efficient frontier")

	return buf.Bytes(), nil
}

func checkTable(op string, t *marketdata.Table) error {
	if t == nil || len(t.Symbols) == 0 {
		return domain.Shape(op, 1, 0)
	}
	if t.Len() < 2 {
		return domain.Shape(op, 2, t.Len())
	}
	return nil
}
