package ocrv2

import (
	"go-passport-recognizer/mrz"
)

// buildMrzContainer prefers the model's own mrz object and falls back to
// scanning the raw answer. It returns nil when neither yields anything.
func buildMrzContainer(parsed map[string]any, llmText string) *MrzContainer {
	source, _ := parsed["mrz"].(map[string]any)

	var (
		rawConfidence any
		lines         []string
	)
	if len(source) > 0 {
		rawConfidence = source["confidence"]
		rawLines := source["lines"]
		if isFalsy(rawLines) {
			rawLines = source["raw_lines"]
		}
		if list, ok := rawLines.([]any); ok {
			for _, line := range list {
				if isFalsy(line) {
					continue
				}
				if s, ok := mrz.ScalarString(line); ok {
					lines = append(lines, s)
				}
			}
		}
	} else {
		source = map[string]any{}
		if found, ok := mrz.ScanText(llmText); ok {
			source[mrz.KeyDocumentNumber] = found.DocumentNumber
			source[mrz.KeyDateOfBirth] = found.DateOfBirth
			source[mrz.KeyDateOfExpiry] = found.DateOfExpiry
		}
	}

	if len(source) == 0 && len(lines) == 0 {
		return nil
	}

	confidence := normalizeConfidence(rawConfidence)
	container := &MrzContainer{
		Lines: MrzLines{Value: lines, Confidence: confidence},
	}
	for _, key := range []string{mrz.KeyDocumentNumber, mrz.KeyDateOfBirth, mrz.KeyDateOfExpiry} {
		*container.entry(key) = MrzEntry{
			Value:      normalizeMrzValue(key, source[key]),
			Confidence: confidence,
		}
	}
	return container
}

func normalizeMrzValue(key string, v any) *string {
	s, ok := mrz.ScalarString(v)
	if !ok {
		return nil
	}
	if key == mrz.KeyDocumentNumber {
		s, ok = mrz.NormalizeDocumentNumber(s)
	} else {
		s, ok = mrz.NormalizeDateISO(s)
	}
	if !ok {
		return nil
	}
	return strPtr(s)
}

// confidences returns the confidence of every populated entry.
func (m *MrzContainer) confidences() []float64 {
	var out []float64
	if m.Lines.Value != nil {
		out = append(out, m.Lines.Confidence)
	}
	for _, e := range []MrzEntry{m.DocumentNumber, m.DateOfBirth, m.DateOfExpiry} {
		if e.Value != nil {
			out = append(out, e.Confidence)
		}
	}
	return out
}
