package mrz

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
)

const (
	KeyDocumentNumber = "document_number"
	KeyDateOfBirth    = "date_of_birth"
	KeyDateOfExpiry   = "date_of_expiry"
)

// Keys are the three values needed to derive the BAC key for the chip.
// Dates are YYMMDD.
type Keys struct {
	DocumentNumber string `json:"document_number"`
	DateOfBirth    string `json:"date_of_birth"`
	DateOfExpiry   string `json:"date_of_expiry"`
}

// Map returns the keys in the shape they are embedded into a passport record.
func (k Keys) Map() map[string]any {
	return map[string]any{
		KeyDocumentNumber: k.DocumentNumber,
		KeyDateOfBirth:    k.DateOfBirth,
		KeyDateOfExpiry:   k.DateOfExpiry,
	}
}

// RawKeys holds the unnormalized values found by the text scanner.
type RawKeys struct {
	DocumentNumber string
	DateOfBirth    string
	DateOfExpiry   string
}

// strategy picks the object that may carry the keys out of a decoded document.
type strategy struct {
	name string
	pick func(doc map[string]any) (map[string]any, bool)
}

var strategies = []strategy{
	{name: "mrz", pick: pickMRZObject},
	{name: "fields", pick: pickFieldsObject},
	{name: "root", pick: pickRootObject},
}

func pickMRZObject(doc map[string]any) (map[string]any, bool) {
	obj, ok := doc["mrz"].(map[string]any)
	return obj, ok
}

func pickFieldsObject(doc map[string]any) (map[string]any, bool) {
	fields, ok := doc["fields"].(map[string]any)
	if !ok {
		return nil, false
	}
	number := unwrapValue(fields[KeyDocumentNumber])
	if !truthy(number) {
		number = unwrapValue(fields["passport_number"])
	}
	return map[string]any{
		KeyDocumentNumber: number,
		KeyDateOfBirth:    unwrapValue(fields[KeyDateOfBirth]),
		KeyDateOfExpiry:   unwrapValue(fields[KeyDateOfExpiry]),
	}, true
}

func pickRootObject(doc map[string]any) (map[string]any, bool) {
	return doc, true
}

// unwrapValue accepts both bare values and {"value": ...} / {"text": ...} objects.
func unwrapValue(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if inner, ok := obj["value"]; ok {
		return inner
	}
	return obj["text"]
}

func truthy(v any) bool {
	s, ok := ScalarString(v)
	return ok && s != ""
}

// Extract finds the MRZ keys in a model answer. JSON answers are probed
// object by object; anything else is scanned with the key=value patterns.
// All three keys must normalize, a partial result is never returned.
func Extract(llmText string) (Keys, bool) {
	if doc, ok := DecodeObject(llmText); ok {
		if keys, ok := ExtractFromMap(doc); ok {
			return keys, true
		}
	}

	raw, ok := ScanText(llmText)
	if !ok {
		return Keys{}, false
	}
	return normalizeKeys(raw.DocumentNumber, raw.DateOfBirth, raw.DateOfExpiry)
}

// ExtractFromMap runs the object strategies over an already decoded document.
// The first candidate that fully normalizes wins.
func ExtractFromMap(doc map[string]any) (Keys, bool) {
	for _, s := range strategies {
		candidate, ok := s.pick(doc)
		if !ok {
			continue
		}
		if keys, ok := keysFromCandidate(candidate); ok {
			return keys, true
		}
	}
	return Keys{}, false
}

func keysFromCandidate(candidate map[string]any) (Keys, bool) {
	values := make([]string, 0, 3)
	for _, key := range []string{KeyDocumentNumber, KeyDateOfBirth, KeyDateOfExpiry} {
		s, ok := ScalarString(unwrapValue(candidate[key]))
		if !ok || s == "" {
			return Keys{}, false
		}
		values = append(values, s)
	}
	return normalizeKeys(values[0], values[1], values[2])
}

func normalizeKeys(number, birth, expiry string) (Keys, bool) {
	docNumber, ok := NormalizeDocumentNumber(number)
	if !ok {
		return Keys{}, false
	}
	dob, ok := NormalizeDate(birth)
	if !ok {
		return Keys{}, false
	}
	doe, ok := NormalizeDate(expiry)
	if !ok {
		return Keys{}, false
	}
	return Keys{DocumentNumber: docNumber, DateOfBirth: dob, DateOfExpiry: doe}, true
}

const datePattern = `([0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{8}|[0-9]{6})\b`

var (
	documentNumberRe = regexp.MustCompile(`(?i)document[_\s]?number[:=]\s*([A-Z0-9<]+)`)
	dateOfBirthRe    = regexp.MustCompile(`(?i)date[_\s]?of[_\s]?birth[:=]\s*` + datePattern)
	dateOfExpiryRe   = regexp.MustCompile(`(?i)date[_\s]?of[_\s]?expiry[:=]\s*` + datePattern)
)

// ScanText looks for key=value or key: value pairs in free text.
// It reports false unless all three keys are present.
func ScanText(text string) (RawKeys, bool) {
	var found [3]string
	for i, re := range []*regexp.Regexp{documentNumberRe, dateOfBirthRe, dateOfExpiryRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return RawKeys{}, false
		}
		found[i] = m[1]
	}
	return RawKeys{DocumentNumber: found[0], DateOfBirth: found[1], DateOfExpiry: found[2]}, true
}

// DecodeObject parses text as a JSON object, keeping numbers as json.Number.
func DecodeObject(text string) (map[string]any, bool) {
	doc, err := DecodeObjectErr(text)
	return doc, err == nil
}

// DecodeObjectErr is DecodeObject with the reason for rejecting the input.
func DecodeObjectErr(text string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// a stray closing delimiter is not reported by More, only by Token
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}
