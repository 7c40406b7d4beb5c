package models

import (
	"encoding/json"
	"strings"
)

// AssetID is an opaque remote identifier. The client never synthesizes one.
type AssetID string

// AssetMetaData carries the fields the client reads from an asset's metaData.
// The server attaches more; they are preserved through Asset's raw document.
type AssetMetaData struct {
	StemType string `json:"stemType,omitempty"`
	MidiType string `json:"midiType,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Asset is a remote record for an uploaded or derived audio/MIDI file.
type Asset struct {
	ID        AssetID       `json:"_id" validate:"required"`
	Name      string        `json:"name,omitempty"`
	Extension string        `json:"extension,omitempty"`
	S3Path    string        `json:"s3Path,omitempty"`
	Group     string        `json:"group,omitempty"`
	Stems     []AssetID     `json:"stems,omitempty"`
	Midi      []AssetID     `json:"midi,omitempty"`
	MetaData  AssetMetaData `json:"metaData"`

	raw json.RawMessage
}

type assetFields Asset

// UnmarshalJSON keeps the server document so metadata snapshots are written
// exactly as the service returned them.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var decoded assetFields
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*a = Asset(decoded)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (a Asset) MarshalJSON() ([]byte, error) {
	if len(a.raw) > 0 {
		return a.raw, nil
	}
	return json.Marshal(assetFields(a))
}

// StemType returns the stem classification reported by the service
func (a *Asset) StemType() string {
	return a.MetaData.StemType
}

// MidiType resolves the display type of a MIDI asset, falling back to the
// stem type and then to "unknown".
func (a *Asset) MidiType() string {
	if a.MetaData.MidiType != "" {
		return a.MetaData.MidiType
	}
	if a.MetaData.StemType != "" {
		return a.MetaData.StemType
	}
	return "unknown"
}

// IsDrumStem reports whether the stem can be split into drum components
func IsDrumStem(stemType string) bool {
	return stemType == "drums"
}

// IsOtherStem reports whether the stem can be split into other components
func IsOtherStem(stemType string) bool {
	switch strings.ToLower(stemType) {
	case "other", "others":
		return true
	}
	return false
}
