package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const appErrorSchema = `{
  "type": "object",
  "required": ["platform", "error_message"],
  "properties": {
    "ts_utc": {"type": ["string", "null"]},
    "platform": {"type": "string", "minLength": 1},
    "app_version": {"type": ["string", "null"]},
    "error_message": {"type": "string", "minLength": 1},
    "stacktrace": {"type": ["string", "null"]},
    "context_json": {"type": ["object", "null"]},
    "user_agent": {"type": ["string", "null"]},
    "device_info": {"type": ["string", "null"]},
    "request_id": {"type": ["string", "null"]}
  }
}`

var appErrorValidator = jsonschema.MustCompileString("app_error.json", appErrorSchema)

// DecodeAppErrorRequest validates body against the app error schema before decoding it.
func DecodeAppErrorRequest(body []byte) (AppErrorRequest, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return AppErrorRequest{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := appErrorValidator.Validate(doc); err != nil {
		return AppErrorRequest{}, fmt.Errorf("invalid app error log: %w", err)
	}

	var req AppErrorRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return AppErrorRequest{}, fmt.Errorf("invalid app error log: %w", err)
	}
	return req, nil
}
