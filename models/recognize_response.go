package models

// RecognizeError is returned with status 200 when no MRZ keys could be read.
type RecognizeError struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Ok bool `json:"ok"`
}
