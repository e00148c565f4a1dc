package ocrv2

import (
	"fmt"
	"math"

	"go-passport-recognizer/mrz"
)

// BuildResponse turns a model answer into the rich recognition response.
// It never fails: malformed answers produce a PARSE_ERROR entry and empty fields.
func BuildResponse(requestID, llmText string) Response {
	var (
		errs       []ErrorEntry
		parseError *string
	)

	parsed, err := mrz.DecodeObjectErr(llmText)
	if err != nil {
		parseError = strPtr(err.Error())
		errs = append(errs, ErrorEntry{
			Code:    CodeParseError,
			Message: fmt.Sprintf("Failed to parse OCR response: %v", err),
		})
		parsed = map[string]any{}
	}

	fieldsPayload, _ := parsed["fields"].(map[string]any)
	overrides, _ := parsed["fields_confidence"].(map[string]any)

	fields := make(Fields, len(FieldNames))
	zones := []Zone{}
	var confidences []float64
	for _, name := range FieldNames {
		raw := fieldsPayload[name]
		if raw == nil {
			raw = parsed[name]
		}
		entry := parseField(name, raw, overrides)
		fields[name] = entry
		if entry.Value != nil {
			confidences = append(confidences, entry.Confidence)
		}
		for _, z := range entry.Zones {
			z.Field = name
			zones = append(zones, z)
		}
	}
	zones = append(zones, normalizeZones(parsed["zones"])...)

	container := buildMrzContainer(parsed, llmText)
	if container != nil {
		confidences = append(confidences, container.confidences()...)
	}

	checks := []CheckResult{}
	checks = append(checks, inputChecks(parsed)...)
	checks = append(checks, crossChecks(fields, container)...)

	if errs == nil {
		errs = []ErrorEntry{}
	}
	status := StatusOk
	if len(errs) > 0 {
		status = StatusError
	}

	raw := Raw{
		LLMText:    strPtr(llmText),
		ParseError: parseError,
		RawText:    parsed["raw_text"],
	}
	if len(parsed) > 0 {
		raw.ParsedJSON = parsed
	}

	return Response{
		RequestID:       requestID,
		Status:          status,
		DocumentType:    DocumentTypePassport,
		ModelConfidence: minimum(confidences),
		Fields:          fields,
		Mrz:             container,
		Zones:           zones,
		Checks:          checks,
		Errors:          errs,
		Raw:             raw,
	}
}

// BuildErrorResponse is used when no model answer is available at all.
func BuildErrorResponse(requestID, code, message string) Response {
	fields := make(Fields, len(FieldNames))
	for _, name := range FieldNames {
		fields[name] = emptyField()
	}
	return Response{
		RequestID:    requestID,
		Status:       StatusError,
		DocumentType: DocumentTypePassport,
		Fields:       fields,
		Zones:        []Zone{},
		Checks:       []CheckResult{},
		Errors:       []ErrorEntry{{Code: code, Message: message}},
	}
}

func minimum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}
