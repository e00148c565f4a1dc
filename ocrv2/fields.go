package ocrv2

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go-passport-recognizer/mrz"
)

// FieldNames lists the recognized passport fields in response order.
var FieldNames = []string{
	"document_number",
	"document_series",
	"last_name",
	"first_name",
	"middle_name",
	"date_of_birth",
	"place_of_birth",
	"gender",
	"nationality",
	"date_of_issue",
	"date_of_expiry",
	"issuing_authority",
	"issuing_country",
	"personal_number",
}

var fieldLabels = map[string]string{
	"document_number":   "Номер документа",
	"document_series":   "Серия документа",
	"last_name":         "Фамилия",
	"first_name":        "Имя",
	"middle_name":       "Отчество",
	"date_of_birth":     "Дата рождения",
	"place_of_birth":    "Место рождения",
	"gender":            "Пол",
	"nationality":       "Гражданство",
	"date_of_issue":     "Дата выдачи",
	"date_of_expiry":    "Дата окончания",
	"issuing_authority": "Орган выдачи",
	"issuing_country":   "Страна выдачи",
	"personal_number":   "Личный номер",
}

var dateFields = map[string]bool{
	"date_of_birth":  true,
	"date_of_issue":  true,
	"date_of_expiry": true,
}

// FieldLabel returns the Russian label printed next to the field on the data page.
func FieldLabel(name string) string {
	return fieldLabels[name]
}

func parseField(name string, raw any, overrides map[string]any) FieldEntry {
	var (
		value    any
		declared any
		textType any
		language any
		zones    []Zone
	)

	if obj, ok := raw.(map[string]any); ok {
		if v, present := obj["value"]; present {
			value = v
		} else {
			value = obj["text"]
		}
		declared = obj["confidence"]
		if isFalsy(declared) {
			declared = obj["score"]
		}
		textType = obj["text_type"]
		language = obj["language"]
		zonesRaw := obj["zones"]
		if isFalsy(zonesRaw) {
			zonesRaw = obj["zone"]
		}
		zones = normalizeZones(zonesRaw)
	} else {
		value = raw
		declared = overrides[name]
	}

	resolved := normalizeFieldValue(name, value)
	entry := FieldEntry{
		Value:      resolved,
		Confidence: resolveConfidence(declared, overrides[name]),
		Zones:      zones,
		TextType:   normalizeTextType(textType),
		Language:   normalizeLanguage(language),
	}
	if entry.Zones == nil {
		entry.Zones = []Zone{}
	}
	if entry.Value == nil {
		entry.Confidence = 0
	}
	return entry
}

func normalizeFieldValue(name string, v any) *string {
	s, ok := mrz.ScalarString(v)
	if !ok {
		return nil
	}
	switch {
	case dateFields[name]:
		s, ok = mrz.NormalizeDateISO(s)
	case name == "document_number":
		s, ok = mrz.NormalizeDocumentNumber(s)
	default:
		ok = s != ""
	}
	if !ok {
		return nil
	}
	return strPtr(s)
}

// resolveConfidence takes the lowest of the confidences that were supplied.
func resolveConfidence(candidates ...any) float64 {
	result, seen := 0.0, false
	for _, c := range candidates {
		if c == nil {
			continue
		}
		score := normalizeConfidence(c)
		if !seen || score < result {
			result, seen = score, true
		}
	}
	return result
}

func normalizeConfidence(v any) float64 {
	score, ok := toFloat(v)
	if !ok || math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}

func toFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	case float64:
		return value, true
	case int:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return f, err == nil
	case bool:
		if value {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func isFalsy(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case bool:
		return !value
	case json.Number:
		f, err := value.Float64()
		return err == nil && f == 0
	case float64:
		return value == 0
	case []any:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	}
	return false
}

func normalizeTextType(v any) TextType {
	if isFalsy(v) {
		return TextUnknown
	}
	s, ok := mrz.ScalarString(v)
	if !ok {
		return TextUnknown
	}
	switch t := TextType(strings.ToLower(strings.TrimSpace(s))); t {
	case TextPrinted, TextHandwritten, TextUnknown:
		return t
	}
	return TextUnknown
}

func normalizeLanguage(v any) *string {
	s, ok := mrz.ScalarString(v)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strPtr(s)
}

// normalizeZones keeps zones whose four coordinates are all numeric.
// A single zone object is accepted in place of a list.
func normalizeZones(v any) []Zone {
	var items []any
	switch value := v.(type) {
	case []any:
		items = value
	case map[string]any:
		items = []any{value}
	default:
		return []Zone{}
	}

	zones := make([]Zone, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var coords [4]float64
		valid := true
		for i, key := range []string{"x", "y", "w", "h"} {
			f, ok := toFloat(obj[key])
			if !ok {
				valid = false
				break
			}
			coords[i] = f
		}
		if !valid {
			continue
		}
		page, ok := toInt(obj["page"])
		if !ok || page < 0 {
			page = 0
		}
		zones = append(zones, Zone{Page: page, X: coords[0], Y: coords[1], W: coords[2], H: coords[3]})
	}
	return zones
}
