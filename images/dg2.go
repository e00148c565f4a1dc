package images

import (
	"fmt"

	"github.com/gmrtd/gmrtd/document"
)

// FaceFromDG2 returns the first facial image stored in an EF.DG2 file, in
// whatever encoding the chip holds it (usually JPEG or JPEG2000).
func FaceFromDG2(raw []byte) (face []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			face, err = nil, fmt.Errorf("failed to parse DG2: %v", r)
		}
	}()

	dg2, err := document.NewDG2(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DG2: %w", err)
	}
	if dg2 == nil || len(dg2.Images) == 0 {
		return nil, fmt.Errorf("no images found in DG2")
	}

	for _, dg2Image := range dg2.Images {
		if len(dg2Image.Image) > 0 {
			return dg2Image.Image, nil
		}
	}
	return nil, fmt.Errorf("all DG2 images are empty")
}
