package models

// AppErrorRequest is an error report sent by a client application.
type AppErrorRequest struct {
	TsUTC        string         `json:"ts_utc,omitempty"` // generated by the server when absent
	Platform     string         `json:"platform"`
	AppVersion   string         `json:"app_version,omitempty"`
	ErrorMessage string         `json:"error_message"`
	Stacktrace   string         `json:"stacktrace,omitempty"`
	Context      map[string]any `json:"context_json,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	DeviceInfo   string         `json:"device_info,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
}

type AppErrorResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}
