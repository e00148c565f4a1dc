package models

// NFCScanRequest is what the mobile app posts after reading the chip.
// Older app versions send the MRZ keys either inside passport, at the top level
// or flattened into passport itself.
type NFCScanRequest struct {
	Passport     map[string]any    `json:"passport"`
	Mrz          map[string]any    `json:"mrz,omitempty"`
	FaceImageB64 string            `json:"face_image_b64"`
	DataGroups   map[string]string `json:"data_groups,omitempty"` // hex encoded, keyed by "DG1", "DG2"
}
