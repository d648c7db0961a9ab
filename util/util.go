// Package util contains misc internal utilities.
package util

import (
	"time"
	"unicode"
)

// Clamp limits v to the range [low, high]
func Clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Limiter holds a min and max value for a scalar command
type Limiter struct {
	Min float64 `yaml:"Min"`
	Max float64 `yaml:"Max"`
}

// Check returns true if v is within the limits
func (l Limiter) Check(v float64) bool {
	return v >= l.Min && v <= l.Max
}

// GetBit returns the value of the bit at bitIndex in b
func GetBit(b uint16, bitIndex uint) bool {
	return b&(1<<bitIndex) != 0
}

// SetBit sets the bit at bitIndex in b to value and returns the result
func SetBit(b uint16, bitIndex uint, value bool) uint16 {
	if value {
		return b | (1 << bitIndex)
	}
	return b &^ (1 << bitIndex)
}

// AllElementsNumbers returns true if every rune in s is a digit or decimal point
func AllElementsNumbers(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return false
		}
	}
	return true
}

// SecsToDuration converts a floating point number of seconds to a time.Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(secs * 1e9)
}
