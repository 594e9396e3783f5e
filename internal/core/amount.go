package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrEmptyAmount = errors.New("empty amount")

// EvaluateAmountInput evaluates the raw amount text of a line item.
// The input accepts plain decimals and simple sums/differences
// ("12.50+3", "20-1.5"), evaluated left to right, and the result is
// rounded to the configured number of currency decimal places.
// The raw text is kept on the line item so the user sees what they typed.
func EvaluateAmountInput(input string, decimalPlaces int) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrEmptyAmount
	}

	total := 0.0
	sign := 1.0
	term := strings.Builder{}

	flush := func() error {
		t := strings.TrimSpace(term.String())
		if t == "" {
			return fmt.Errorf("malformed amount %q", input)
		}
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return fmt.Errorf("malformed amount %q: %w", input, err)
		}
		total += sign * v
		term.Reset()
		return nil
	}

	for i, r := range s {
		switch r {
		case '+', '-':
			// A leading sign belongs to the first term.
			if i == 0 {
				term.WriteRune(r)
				continue
			}
			if err := flush(); err != nil {
				return 0, err
			}
			if r == '+' {
				sign = 1
			} else {
				sign = -1
			}
		default:
			term.WriteRune(r)
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}

	return RoundTo(total, decimalPlaces), nil
}

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
