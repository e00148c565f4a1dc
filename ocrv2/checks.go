package ocrv2

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const checkSchema = `{
  "type": "object",
  "required": ["code", "status", "message"],
  "properties": {
    "code": {"type": "string", "minLength": 1},
    "status": {"enum": ["ok", "warning", "error"]},
    "message": {"type": "string"}
  }
}`

var checkValidator = jsonschema.MustCompileString("check.json", checkSchema)

// inputChecks keeps the checks reported by the model that have the expected shape.
func inputChecks(parsed map[string]any) []CheckResult {
	list, ok := parsed["checks"].([]any)
	if !ok {
		return nil
	}
	var out []CheckResult
	for _, item := range list {
		if err := checkValidator.Validate(item); err != nil {
			continue
		}
		obj := item.(map[string]any)
		out = append(out, CheckResult{
			Code:    obj["code"].(string),
			Status:  obj["status"].(string),
			Message: obj["message"].(string),
		})
	}
	return out
}

var crossCheckedFields = []struct {
	name  string
	label string
}{
	{"document_number", "Document number"},
	{"date_of_birth", "Date of birth"},
	{"date_of_expiry", "Date of expiry"},
}

// crossChecks compares the visual zone reading with the MRZ reading.
func crossChecks(fields Fields, container *MrzContainer) []CheckResult {
	if container == nil {
		return nil
	}
	var out []CheckResult
	for _, f := range crossCheckedFields {
		fieldValue := fields[f.name].Value
		mrzValue := container.entry(f.name).Value
		if fieldValue == nil || mrzValue == nil || *fieldValue == "" || *mrzValue == "" {
			continue
		}
		status := CheckOk
		message := fmt.Sprintf("%s совпадает с MRZ / %s matches MRZ", FieldLabel(f.name), f.label)
		if *fieldValue != *mrzValue {
			status = CheckWarning
			message = fmt.Sprintf("%s не совпадает с MRZ / %s does not match MRZ", FieldLabel(f.name), f.label)
		}
		out = append(out, CheckResult{
			Code:    fmt.Sprintf("mrz_%s_match", f.name),
			Status:  status,
			Message: message,
		})
	}
	return out
}
