package nfc

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gmrtd/gmrtd/document"

	"go-passport-recognizer/mrz"
)

// chipData is what the service could read from the raw data groups.
type chipData struct {
	keys    mrz.Keys
	hasKeys bool
	holder  map[string]any
	dg2     []byte
}

func decodeDataGroups(groups map[string]string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(groups))
	for name, value := range groups {
		data, err := hex.DecodeString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("data group %s is not valid hex: %w", name, err)
		}
		out[strings.ToUpper(name)] = data
	}
	return out, nil
}

// parseDataGroups reads DG1 and keeps DG2 for the face fallback. Other groups
// and unparsable DG1 content are ignored.
func parseDataGroups(groups map[string][]byte) chipData {
	var chip chipData
	for name, data := range groups {
		switch name {
		case "DG1":
			holder, err := parseDG1(data)
			if err != nil {
				slog.Info("Skipping DG1 due to parsing error", "error", err)
				continue
			}
			chip.holder = holder
			chip.keys, chip.hasKeys = mrz.ExtractFromMap(holder)
		case "DG2":
			chip.dg2 = data
		default:
			slog.Debug("Ignoring data group", "data_group", name)
		}
	}
	return chip
}

// parseDG1 returns the holder details printed in the chip MRZ.
func parseDG1(data []byte) (holder map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			holder, err = nil, fmt.Errorf("failed to parse DG1: %v", r)
		}
	}()

	dg1, err := document.NewDG1(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DG1: %w", err)
	}
	m := dg1.Mrz
	return map[string]any{
		"document_code":       m.DocumentCode,
		"issuing_state":       m.IssuingState,
		"last_name":           m.NameOfHolder.Primary,
		"first_name":          m.NameOfHolder.Secondary,
		"nationality":         m.Nationality,
		"gender":              m.Sex,
		mrz.KeyDocumentNumber: m.DocumentNumber,
		mrz.KeyDateOfBirth:    m.DateOfBirth,
		mrz.KeyDateOfExpiry:   m.DateOfExpiry,
	}, nil
}
