package charts

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/domain"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/marketdata"
	"github.com/jchoi640/Modern-Portfolio-Theory-and-Finding-Efficient-Portfolios-At-Different-Levels-of-Risk/internal/modules/optimization"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func newTestService() *Service {
	return NewService(zerolog.Nop()).WithSize(600, 400)
}

func monthlyPrices(n int) *marketdata.Table {
	start := time.Date(2022, time.January, 31, 0, 0, 0, 0, time.UTC)
	t := &marketdata.Table{
		Symbols: []string{"AAPL", "MSFT"},
		Values:  map[string][]float64{},
	}
	for i := 0; i < n; i++ {
		t.Dates = append(t.Dates, start.AddDate(0, i, 0))
		t.Values["AAPL"] = append(t.Values["AAPL"], 150+float64(i)*2)
		t.Values["MSFT"] = append(t.Values["MSFT"], 280-float64(i))
	}
	// a gap the renderer has to fill
	t.Values["MSFT"][3] = math.NaN()
	return t
}

func frontier() []optimization.FrontierPoint {
	var points []optimization.FrontierPoint
	for i := 0; i < 11; i++ {
		r := 0.05 + float64(i)*0.01
		// σ² = a(r − r0)² + σ0², a sideways parabola
		sigma := math.Sqrt(4*(r-0.10)*(r-0.10) + 0.01)
		points = append(points, optimization.FrontierPoint{Return: r, Stdev: sigma})
	}
	return points
}

func TestService_PriceHistory(t *testing.T) {
	prices := monthlyPrices(24)
	original := append([]float64(nil), prices.Column("MSFT")...)

	png, err := newTestService().PriceHistory(prices)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic), "expected PNG output")

	// Filling is for display only; the caller's table is untouched.
	assert.True(t, math.IsNaN(prices.Column("MSFT")[3]))
	assert.Equal(t, len(original), len(prices.Column("MSFT")))
}

func TestService_CumulativeChange(t *testing.T) {
	png, err := newTestService().CumulativeChange(monthlyPrices(6))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestService_TimeSeriesErrors(t *testing.T) {
	svc := newTestService()

	empty := &marketdata.Table{Values: map[string][]float64{}}
	_, err := svc.PriceHistory(empty)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)

	_, err = svc.CumulativeChange(nil)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)

	single := monthlyPrices(1)
	_, err = svc.PriceHistory(single)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)

	blank := monthlyPrices(4)
	blank.Values["AAPL"] = []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}
	_, err = svc.PriceHistory(blank)
	assert.ErrorIs(t, err, domain.ErrMissingData)
}

func TestService_EfficientFrontier(t *testing.T) {
	points := frontier()
	gmv := points[5]

	png, err := newTestService().EfficientFrontier(points, &gmv)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	png, err = newTestService().EfficientFrontier(points, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestService_EfficientFrontierErrors(t *testing.T) {
	svc := newTestService()

	_, err := svc.EfficientFrontier(nil, nil)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)

	_, err = svc.EfficientFrontier(frontier()[:1], nil)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)

	points := frontier()
	points[2].Stdev = math.NaN()
	_, err = svc.EfficientFrontier(points, nil)
	assert.ErrorIs(t, err, domain.ErrDomain)
}
