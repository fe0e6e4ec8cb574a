// Package units parses numeric CLI values carrying physical-unit suffixes:
// time durations, bit quantities, and bit rates expressed as quantity/time.
//
// Parsing is tolerant in the sense that every failure is an ordinary error;
// callers decide whether an unparsable value aborts startup.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// timeMultipliers maps a duration suffix to its length in seconds.
var timeMultipliers = map[string]float64{
	"w":  604800,
	"d":  86400,
	"h":  3600,
	"m":  60,
	"s":  1,
	"ms": 1e-3,
	"us": 1e-6,
	"µs": 1e-6,
	"ns": 1e-9,
	"ps": 1e-12,
}

// magnitudeExponents maps an SI prefix letter to its exponent step. Decimal
// scaling is 10^(3n); binary scaling (prefix followed by 'i') is 2^(10n).
var magnitudeExponents = map[byte]int{
	'k': 1, 'K': 1,
	'M': 2,
	'G': 3,
	'T': 4,
	'P': 5,
	'E': 6,
	'Z': 7,
	'Y': 8,
}

// ApplyTimeSuffix converts value according to the duration suffix: multiply
// into seconds, or divide when invert is set (used when a time value appears
// in a denominator).
func ApplyTimeSuffix(value float64, suffix string, invert bool) (float64, error) {
	mult, ok := timeMultipliers[suffix]
	if !ok {
		return 0, fmt.Errorf("unrecognized time suffix %q", suffix)
	}
	if invert {
		return value / mult, nil
	}
	return value * mult, nil
}

// ApplyBitSuffix scales value by a bit-quantity suffix: an optional magnitude
// prefix, an optional 'i' marking binary scaling, and a final unit of 'b'
// (bits), 'B' (bytes, normalized to bits), or nothing (bits).
func ApplyBitSuffix(value float64, suffix string) (float64, error) {
	rest := suffix
	scale := 1.0
	if len(rest) > 0 {
		if exp, ok := magnitudeExponents[rest[0]]; ok {
			rest = rest[1:]
			if len(rest) > 0 && rest[0] == 'i' {
				rest = rest[1:]
				scale = math.Pow(2, float64(10*exp))
			} else {
				scale = math.Pow(10, float64(3*exp))
			}
		}
	}
	switch rest {
	case "", "b":
		return value * scale, nil
	case "B":
		return value * scale * 8, nil
	default:
		return 0, fmt.Errorf("unrecognized bit-quantity suffix %q", suffix)
	}
}

// BitRate is a parsed quantity/time expression: Bits per Seconds.
type BitRate struct {
	Bits    float64
	Seconds float64
}

// PerSecond collapses the rate into bits per second.
func (r BitRate) PerSecond() float64 {
	if r.Seconds == 0 {
		return 0
	}
	return r.Bits / r.Seconds
}

// ParseBitQuantity parses a value like "2Mb" or "500KiB" into bits.
func ParseBitQuantity(s string) (float64, error) {
	value, suffix, err := splitNumber(s)
	if err != nil {
		return 0, err
	}
	return ApplyBitSuffix(value, suffix)
}

// ParseBitRate parses "quantity/time" expressions such as "500kb/2s". The
// divider is optional; its absence means an interval of one second.
func ParseBitRate(s string) (BitRate, error) {
	rate := BitRate{Seconds: 1}

	quantity := s
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		quantity = s[:idx]
		denominator := s[idx+1:]
		value, suffix, err := splitNumber(denominator)
		if err != nil {
			return rate, fmt.Errorf("rate denominator: %w", err)
		}
		if suffix == "" {
			suffix = "s"
		}
		// The denominator divides the rate, so the base interval of 1
		// grows by the inverse application of the suffix.
		inverse, err := ApplyTimeSuffix(1/value, suffix, true)
		if err != nil {
			return rate, fmt.Errorf("rate denominator: %w", err)
		}
		if inverse == 0 {
			return rate, fmt.Errorf("rate denominator %q is zero", denominator)
		}
		rate.Seconds = 1 / inverse
	}

	bits, err := ParseBitQuantity(quantity)
	if err != nil {
		return rate, err
	}
	rate.Bits = bits
	return rate, nil
}

// ParseSeconds parses a duration value such as "90s", "2m", or "1.5h" into
// seconds. A bare number is taken as seconds.
func ParseSeconds(s string) (float64, error) {
	value, suffix, err := splitNumber(s)
	if err != nil {
		return 0, err
	}
	if suffix == "" {
		return value, nil
	}
	return ApplyTimeSuffix(value, suffix, false)
}

// splitNumber separates the leading numeric literal from its trailing suffix.
func splitNumber(s string) (float64, string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, "", fmt.Errorf("empty value")
	}
	end := 0
	for end < len(trimmed) {
		c := trimmed[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, "", fmt.Errorf("value %q does not start with a number", s)
	}
	value, err := strconv.ParseFloat(trimmed[:end], 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse number in %q: %w", s, err)
	}
	return value, trimmed[end:], nil
}
