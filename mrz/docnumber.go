package mrz

import (
	"strconv"
	"strings"
	"unicode"
)

// NormalizeDocumentNumber removes every whitespace rune and uppercases the rest.
func NormalizeDocumentNumber(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return "", false
	}
	return strings.ToUpper(cleaned), true
}

// ScalarString renders a decoded JSON scalar as text. Objects, arrays and
// null are not scalars and report false.
func ScalarString(v any) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case interface{ String() string }:
		// json.Number when the document was decoded with UseNumber
		return value.String(), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case int:
		return strconv.Itoa(value), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case bool:
		return strconv.FormatBool(value), true
	}
	return "", false
}
