package nfc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-passport-recognizer/events"
	"go-passport-recognizer/images"
	"go-passport-recognizer/logging"
	"go-passport-recognizer/models"
	"go-passport-recognizer/mrz"
	"go-passport-recognizer/storage"
)

var ErrInvalidPayload = errors.New("invalid NFC payload")

const DefaultMaxFaceImageBytes = 10 << 20

// PayloadError carries the detail returned to the client with a 422.
type PayloadError struct {
	Detail string
}

func (e *PayloadError) Error() string {
	return e.Detail
}

func (e *PayloadError) Unwrap() error {
	return ErrInvalidPayload
}

func invalid(format string, args ...any) error {
	return &PayloadError{Detail: fmt.Sprintf(format, args...)}
}

// FaceURL is where the stored face of a scan can be downloaded.
func FaceURL(scanID string) string {
	return fmt.Sprintf("/api/nfc/%s/face.jpg", scanID)
}

type Service struct {
	store        storage.Store
	files        *storage.FileStore
	bus          events.Bus
	normalizer   *images.Normalizer
	maxFaceBytes int
}

func NewService(store storage.Store, files *storage.FileStore, bus events.Bus, normalizer *images.Normalizer, maxFaceBytes int) *Service {
	if maxFaceBytes <= 0 {
		maxFaceBytes = DefaultMaxFaceImageBytes
	}
	return &Service{
		store:        store,
		files:        files,
		bus:          bus,
		normalizer:   normalizer,
		maxFaceBytes: maxFaceBytes,
	}
}

// Store validates and normalizes a chip scan, writes the face and the passport
// record and announces the scan to event subscribers.
func (s *Service) Store(ctx context.Context, req models.NFCScanRequest) (models.NFCScanResponse, error) {
	log := logging.WithPlane(logging.FromContext(ctx), "nfc")

	groups, err := decodeDataGroups(req.DataGroups)
	if err != nil {
		return models.NFCScanResponse{}, invalid("Invalid data_groups: %v", err)
	}
	chip := parseDataGroups(groups)

	passport, err := normalizePassport(req, chip)
	if err != nil {
		return models.NFCScanResponse{}, err
	}

	face, err := s.faceImage(ctx, req.FaceImageB64, chip.dg2)
	if err != nil {
		return models.NFCScanResponse{}, err
	}

	passportJSON, err := json.Marshal(passport)
	if err != nil {
		return models.NFCScanResponse{}, invalid("Invalid passport: %v", err)
	}

	scanID := uuid.NewString()
	facePath, err := s.files.SaveFace(scanID, face)
	if err != nil {
		return models.NFCScanResponse{}, fmt.Errorf("failed to store face image: %w", err)
	}

	err = s.store.SaveScan(ctx, storage.Scan{
		ScanID:        scanID,
		TsUTC:         time.Now().UTC(),
		PassportJSON:  string(passportJSON),
		FaceImagePath: facePath,
	})
	if err != nil {
		if removeErr := s.files.RemoveFace(scanID); removeErr != nil {
			log.Warn("Failed to remove orphaned face image", "scan_id", scanID, "error", removeErr)
		}
		return models.NFCScanResponse{}, fmt.Errorf("failed to store scan: %w", err)
	}
	log.Info("Stored NFC scan", "scan_id", scanID, "face_size", len(face))

	response := models.NFCScanResponse{
		ScanID:       scanID,
		Status:       models.StatusStored,
		FaceImageURL: FaceURL(scanID),
		Passport:     passport,
	}

	event := events.Event{
		Type:         events.TypeNFCScanSuccess,
		ScanID:       scanID,
		FaceImageURL: response.FaceImageURL,
		Passport:     passport,
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish scan event", "scan_id", scanID, "error", err)
	}
	return response, nil
}

// normalizePassport accepts every payload shape the apps have sent over time
// and returns the passport with a canonical mrz object when the keys are known.
func normalizePassport(req models.NFCScanRequest, chip chipData) (map[string]any, error) {
	passport := maps.Clone(req.Passport)
	if passport == nil {
		passport = make(map[string]any)
	}
	if len(passport) == 0 && len(req.Mrz) == 0 && chip.holder == nil {
		return nil, invalid("Invalid passport")
	}

	nested, _ := passport["mrz"].(map[string]any)
	var keys mrz.Keys
	var found bool
	for _, candidate := range []map[string]any{nested, req.Mrz, passport} {
		if len(candidate) == 0 {
			continue
		}
		if keys, found = mrz.ExtractFromMap(candidate); found {
			break
		}
	}
	if !found && chip.hasKeys {
		keys, found = chip.keys, true
	}

	if chip.holder != nil {
		passport["dg1"] = chip.holder
	}
	if !found {
		if nested == nil && len(req.Mrz) > 0 {
			passport["mrz"] = maps.Clone(req.Mrz)
		}
		return passport, nil
	}

	merged := make(map[string]any)
	if nested != nil {
		maps.Copy(merged, nested)
	} else if len(req.Mrz) > 0 {
		maps.Copy(merged, req.Mrz)
	}
	maps.Copy(merged, keys.Map())
	passport["mrz"] = merged
	return passport, nil
}

// faceImage decodes the uploaded face, or takes it from DG2 when none was
// uploaded, and returns it as JPEG.
func (s *Service) faceImage(ctx context.Context, faceB64 string, dg2 []byte) ([]byte, error) {
	var face []byte
	switch {
	case strings.TrimSpace(faceB64) != "":
		encoded := strings.TrimSpace(faceB64)
		if base64.StdEncoding.DecodedLen(len(encoded)) > s.maxFaceBytes+2 {
			return nil, invalid("Face image too large: limit is %d bytes", s.maxFaceBytes)
		}
		decoded, err := base64.StdEncoding.Strict().DecodeString(encoded)
		if err != nil {
			return nil, invalid("Invalid face_image_b64: %v", err)
		}
		face = decoded
	case len(dg2) > 0:
		fromChip, err := images.FaceFromDG2(dg2)
		if err != nil {
			return nil, invalid("Invalid DG2: %v", err)
		}
		face = fromChip
	default:
		return nil, invalid("Invalid face_image_b64")
	}

	if len(face) == 0 {
		return nil, invalid("Invalid face_image_b64")
	}
	if len(face) > s.maxFaceBytes {
		return nil, invalid("Face image too large: limit is %d bytes", s.maxFaceBytes)
	}

	jpeg, err := s.normalizer.EnsureJPEG(face)
	if err != nil {
		logging.WithPlane(logging.FromContext(ctx), "nfc").Warn("Rejected face image", "size", len(face), "error", err)
	}
	switch {
	case errors.Is(err, images.ErrUnsupportedFormat):
		return nil, invalid("Unsupported face image format")
	case err != nil:
		return nil, invalid("Face image could not be converted to JPEG")
	}
	return jpeg, nil
}
