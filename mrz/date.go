package mrz

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	layoutMRZ     = "060102"   // YYMMDD as printed in the machine readable zone
	layoutISO     = "2006-01-02"
	layoutCompact = "20060102"
	layoutDotted  = "02.01.2006"
)

var (
	sixDigitsRe   = regexp.MustCompile(`^\d{6}$`)
	eightDigitsRe = regexp.MustCompile(`^\d{8}$`)
	isoDateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dottedDateRe  = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
)

// NormalizeDate converts a date into the YYMMDD form the mobile client expects.
// Six digit input is already canonical and is returned as is, without a
// calendar check. YYYYMMDD and YYYY-MM-DD are validated and lose their century.
func NormalizeDate(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return "", false
	case sixDigitsRe.MatchString(value):
		return value, true
	case eightDigitsRe.MatchString(value):
		return reformatDate(value, layoutCompact, layoutMRZ)
	case isoDateRe.MatchString(value):
		return reformatDate(value, layoutISO, layoutMRZ)
	}
	return "", false
}

// NormalizeDateISO converts a date into YYYY-MM-DD for the rich recognition
// response. Two digit years pivot at 50: 50..99 map to the 1900s, 00..49 to
// the 2000s. Non-empty input in a shape that cannot be converted is returned
// trimmed so the raw reading is not lost.
func NormalizeDateISO(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return "", false
	case isoDateRe.MatchString(value):
		return value, true
	case dottedDateRe.MatchString(value):
		return reformatOrKeep(value, layoutDotted), true
	case eightDigitsRe.MatchString(value):
		return reformatOrKeep(value, layoutCompact), true
	case sixDigitsRe.MatchString(value):
		return pivotCentury(value), true
	}
	return value, true
}

func reformatDate(value, from, to string) (string, bool) {
	parsed, err := time.Parse(from, value)
	if err != nil {
		return "", false
	}
	return parsed.Format(to), true
}

func reformatOrKeep(value, from string) string {
	if out, ok := reformatDate(value, from, layoutISO); ok {
		return out
	}
	return value
}

func pivotCentury(yymmdd string) string {
	yy := int(yymmdd[0]-'0')*10 + int(yymmdd[1]-'0')
	year := 2000 + yy
	if yy >= 50 {
		year = 1900 + yy
	}
	return fmt.Sprintf("%04d-%s-%s", year, yymmdd[2:4], yymmdd[4:6])
}
