package notes

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"notes-go/internal/model"
)

// Snapshot is the persisted state: notes and categories only. Filter state is
// session-only and never part of it. There is no version field.
type Snapshot struct {
	Notes      []model.Note     `json:"notes" yaml:"notes"`
	Categories []model.Category `json:"categories" yaml:"categories"`
}

// Codec converts a Snapshot to and from its serialized blob.
type Codec interface {
	Name() string
	Encode(s Snapshot) ([]byte, error)
	Decode(data []byte) (Snapshot, error)
}

// NewCodec returns the codec registered for format. An empty format selects JSON.
func NewCodec(format string) (Codec, error) {
	switch format {
	case "json", "":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format: %q", format)
	}
}

// JSONCodec writes timestamps as RFC 3339 strings with nanoseconds.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding json snapshot: %w", err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("invalid json: %w", err)
	}
	return s, nil
}

// YAMLCodec stores the same record as a YAML document.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(s Snapshot) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml snapshot: %w", err)
	}
	return data, nil
}

func (YAMLCodec) Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("invalid yaml: %w", err)
	}
	return s, nil
}
