package services

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientData is returned when a statistic needs more values than it got.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrZeroMean is returned by CoefficientOfVariation when the mean is zero.
	ErrZeroMean = errors.New("mean is zero")
)

// Summary holds the describe-style statistics of one numeric column.
// Fields that cannot be computed from the data are NaN.
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q1    float64
	Q2    float64
	Q3    float64
	Max   float64
}

// Summarize computes count, mean, sample std, min, quartiles and max.
func Summarize(xs []float64) Summary {
	nan := math.NaN()
	s := Summary{Count: len(xs), Mean: nan, Std: nan, Min: nan, Q1: nan, Q2: nan, Q3: nan, Max: nan}
	if len(xs) == 0 {
		return s
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(xs, nil)
	if std, err := SampleStdDev(xs); err == nil {
		s.Std = std
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = quantile(sorted, 0.25)
	s.Q2 = quantile(sorted, 0.50)
	s.Q3 = quantile(sorted, 0.75)
	return s
}

// quantile uses linear interpolation between closest ranks, the estimator
// most spreadsheet and dataframe tools default to. sorted must be non-empty.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MinMax returns the smallest and largest value.
func MinMax(xs []float64) (min, max float64, err error) {
	if len(xs) == 0 {
		return 0, 0, ErrInsufficientData
	}
	return floats.Min(xs), floats.Max(xs), nil
}

// SampleStdDev returns the standard deviation with an N-1 denominator.
// Fewer than two values is ErrInsufficientData.
func SampleStdDev(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return math.NaN(), ErrInsufficientData
	}
	return stat.StdDev(xs, nil), nil
}

// CoefficientOfVariation returns std / mean. A zero mean is ErrZeroMean.
func CoefficientOfVariation(std, mean float64) (float64, error) {
	if math.IsNaN(std) || math.IsNaN(mean) {
		return math.NaN(), ErrInsufficientData
	}
	if mean == 0 {
		return math.NaN(), ErrZeroMean
	}
	return std / mean, nil
}

// Pearson returns the Pearson correlation of x and y, or NaN when either
// series has fewer than two values or zero variance.
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return math.NaN()
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}
