package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Fill-time estimation constants, tuned against observed venue latency
// rather than derived from anything.
const (
	baseFillDelay    = 30 * time.Second
	sizeFactor       = 90 * time.Second
	emptyBookPenalty = 120 * time.Second
)

var oneMillion = decimal.NewFromInt(1_000_000)

// estimateFillTime guesses how long the unfilled remainder will rest.
// Larger notionals wait longer, growing with the log of the size in
// millions; an empty contra side adds a flat penalty. The estimate never
// drops below the base delay.
func estimateFillTime(notional decimal.Decimal, contraDepth int) time.Duration {
	millions, _ := notional.Div(oneMillion).Float64()
	if millions < 1 {
		millions = 1
	}

	est := time.Duration(math.Log10(millions) * float64(sizeFactor))
	if contraDepth == 0 {
		est += emptyBookPenalty
	}

	if est < baseFillDelay {
		return baseFillDelay
	}
	return est
}
