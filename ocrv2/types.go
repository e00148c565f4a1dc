package ocrv2

import (
	"bytes"
	"encoding/json"
)

const DocumentTypePassport = "passport"

const (
	StatusOk    = "ok"
	StatusError = "error"
)

const (
	CheckOk      = "ok"
	CheckWarning = "warning"
	CheckError   = "error"
)

const (
	CodeParseError     = "PARSE_ERROR"
	CodeLLMUnavailable = "LLM_UNAVAILABLE"
	CodeEmptyImage     = "EMPTY_IMAGE"
	CodeInternal       = "INTERNAL_ERROR"
)

type TextType string

const (
	TextPrinted     TextType = "printed"
	TextHandwritten TextType = "handwritten"
	TextUnknown     TextType = "unknown"
)

// Zone is a bounding box on a page in normalized coordinates.
type Zone struct {
	Field string  `json:"field,omitempty"`
	Page  int     `json:"page"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

type FieldEntry struct {
	Value      *string  `json:"value"`
	Confidence float64  `json:"confidence"`
	Zones      []Zone   `json:"zones"`
	TextType   TextType `json:"text_type"`
	Language   *string  `json:"language"`
}

func emptyField() FieldEntry {
	return FieldEntry{Zones: []Zone{}, TextType: TextUnknown}
}

// Fields keeps the recognized fields. It marshals in the order of FieldNames
// so responses are stable for clients that diff them.
type Fields map[string]FieldEntry

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(name string, entry FieldEntry) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		value, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}
	for _, name := range FieldNames {
		if entry, ok := f[name]; ok {
			if err := write(name, entry); err != nil {
				return nil, err
			}
		}
	}
	for name, entry := range f {
		if _, known := fieldLabels[name]; known {
			continue
		}
		if err := write(name, entry); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type MrzEntry struct {
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

type MrzLines struct {
	Value      []string `json:"value"`
	Confidence float64  `json:"confidence"`
}

type MrzContainer struct {
	Lines          MrzLines `json:"lines"`
	DocumentNumber MrzEntry `json:"document_number"`
	DateOfBirth    MrzEntry `json:"date_of_birth"`
	DateOfExpiry   MrzEntry `json:"date_of_expiry"`
}

func (m *MrzContainer) entry(name string) *MrzEntry {
	switch name {
	case "document_number":
		return &m.DocumentNumber
	case "date_of_birth":
		return &m.DateOfBirth
	case "date_of_expiry":
		return &m.DateOfExpiry
	}
	return nil
}

type CheckResult struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorEntry struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Raw struct {
	LLMText    *string        `json:"llm_text"`
	ParsedJSON map[string]any `json:"parsed_json"`
	ParseError *string        `json:"parse_error"`
	RawText    any            `json:"raw_text"`
}

// Response is the rich passport recognition result.
type Response struct {
	RequestID       string        `json:"request_id"`
	Status          string        `json:"status"`
	DocumentType    string        `json:"document_type"`
	ModelConfidence float64       `json:"model_confidence"`
	Fields          Fields        `json:"fields"`
	Mrz             *MrzContainer `json:"mrz"`
	Zones           []Zone        `json:"zones"`
	Checks          []CheckResult `json:"checks"`
	Errors          []ErrorEntry  `json:"errors"`
	Raw             Raw           `json:"raw"`
}

func strPtr(s string) *string {
	return &s
}
