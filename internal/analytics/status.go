package analytics

import (
	"math"
	"strconv"
)

// Status classifies an average rating.
type Status string

const (
	StatusNeedsAttention Status = "needs-attention"
	StatusProficient     Status = "proficient"
	StatusExcellent      Status = "excellent"
	// StatusNoData marks a habit or bucket without any rating.
	StatusNoData Status = "no-data"
)

// ProficientThreshold is the rating a habit must reach to stop needing attention.
const ProficientThreshold = 3.0

// the epsilon absorbs binary representation error so 2.995 rounds up
const roundingEpsilon = 1e-9

// Round2 rounds v to two decimals, half away from zero.
func Round2(v float64) float64 {
	if v < 0 {
		return -Round2(-v)
	}
	return math.Floor(v*100+0.5+roundingEpsilon) / 100
}

// Classify maps an average onto a Status using its rounded value.
func Classify(avg float64) Status {
	r := Round2(avg)
	switch {
	case r < ProficientThreshold:
		return StatusNeedsAttention
	case r == ProficientThreshold:
		return StatusProficient
	default:
		return StatusExcellent
	}
}

// FormatAverage renders an average with two decimals, e.g. "3.00".
func FormatAverage(avg float64) string {
	return strconv.FormatFloat(Round2(avg), 'f', 2, 64)
}

// Mean is a rounded average together with the number of ratings behind it.
type Mean struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Valid reports whether at least one rating contributed.
func (m Mean) Valid() bool { return m.Count > 0 }

// String renders the mean as "3.00", or "" when there is no data.
func (m Mean) String() string {
	if m.Count == 0 {
		return ""
	}
	return FormatAverage(m.Value)
}

// tally accumulates integer ratings without losing precision.
type tally struct {
	sum   int
	count int
}

func (t *tally) add(values ...int) {
	for _, v := range values {
		t.sum += v
		t.count++
	}
}

func (t tally) raw() float64 {
	if t.count == 0 {
		return 0
	}
	return float64(t.sum) / float64(t.count)
}

func (t tally) mean() Mean {
	return Mean{Value: Round2(t.raw()), Count: t.count}
}
