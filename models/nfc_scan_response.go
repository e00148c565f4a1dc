package models

const StatusStored = "stored"

type NFCScanResponse struct {
	ScanID       string         `json:"scan_id"`
	Status       string         `json:"status"`
	FaceImageURL string         `json:"face_image_url"`
	Passport     map[string]any `json:"passport"`
}
