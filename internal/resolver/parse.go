// Package resolver implements the receipt resolution engine: the pure decision
// policy that maps one noisy OCR extraction to a fuel product and price record
// with a calibrated confidence, or correctly declines to guess.
package resolver

import (
	"strconv"
	"strings"
	"time"
)

// ParseAmount parses a raw OCR numeric field. Returns false for anything that
// is not a finite positive number; the engine treats that as a missing field,
// never as an error.
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	// OCR output sometimes carries a comma decimal separator.
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseReceiptDate parses the DD-MM-YY receipt date format. Two-digit years are
// expanded with the century current at evaluation time: "25" becomes 2025 while
// this code runs in the 2000s. Receipts dated near a century boundary are a
// known ambiguity of the format; behavior here deliberately tracks the clock,
// not the receipt.
func ParseReceiptDate(raw string, now time.Time) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return time.Time{}, false
	}

	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	yy, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, false
	}

	century := (now.Year() / 100) * 100
	year := century + yy

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components (32-01 becomes 01-02), so a
	// round-trip check rejects impossible calendar dates.
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
