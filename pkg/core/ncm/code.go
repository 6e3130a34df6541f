// Package ncm handles Brazilian NCM product classification codes and the
// reference table mapping each 8-digit code to its default import-duty and
// IPI rates.
package ncm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	dottedPattern = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)
	digitsPattern = regexp.MustCompile(`^\d{1,8}$`)
)

// FromDotted converts "0101.21.00" to "01012100". Returns an error if the
// input is not a full dotted NCM.
func FromDotted(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !dottedPattern.MatchString(code) {
		return "", fmt.Errorf("ncm: %q is not in dddd.dd.dd format", code)
	}
	return strings.ReplaceAll(code, ".", ""), nil
}

// Normalize accepts a dotted or bare NCM code and returns the canonical
// 8-digit form, left-padding short numeric codes with zeros the way the
// published NCM workbook does.
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if dottedPattern.MatchString(code) {
		return strings.ReplaceAll(code, ".", ""), nil
	}
	if digitsPattern.MatchString(code) {
		return strings.Repeat("0", 8-len(code)) + code, nil
	}
	return "", fmt.Errorf("ncm: invalid code %q", code)
}

// Dotted renders an 8-digit code as dddd.dd.dd.
func Dotted(ncm8 string) string {
	if len(ncm8) != 8 {
		return ncm8
	}
	return ncm8[:4] + "." + ncm8[4:6] + "." + ncm8[6:]
}

// ParseRate parses a Brazilian-formatted percentage cell ("10,00", "0",
// "3.25") into a fraction. "NT" (não tributado) and empty cells parse to 0.
func ParseRate(raw string) (float64, error) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if raw == "" || strings.EqualFold(raw, "NT") {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("ncm: cannot parse rate %q: %w", raw, err)
	}
	return v / 100.0, nil
}
