package fs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/moments/pkg/core"
)

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Decode parses a stored document.
	Decode(data []byte) (core.Record, error)
	// Encode converts the record to bytes.
	Encode(r core.Record) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers keyed by file
// extension.
func DefaultSerializers(strict bool) map[string]Serializer {
	return map[string]Serializer{
		".json": NewJSONSerializer(strict),
		".yaml": NewYAMLSerializer(strict),
		".yml":  NewYAMLSerializer(strict),
	}
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON files.
type JSONSerializer struct {
	// Strict rejects documents carrying unknown fields.
	Strict bool
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer(strict bool) *JSONSerializer {
	return &JSONSerializer{Strict: strict}
}

func (s *JSONSerializer) Decode(data []byte) (core.Record, error) {
	var r core.Record
	decoder := json.NewDecoder(bytes.NewReader(data))
	if s.Strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(&r); err != nil {
		return core.Record{}, fmt.Errorf("invalid json: %w", err)
	}
	return r, nil
}

func (s *JSONSerializer) Encode(r core.Record) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// --- YAML Serializer ---

// YAMLSerializer handles reading and writing YAML files.
type YAMLSerializer struct {
	// Strict rejects documents carrying unknown fields.
	Strict bool
}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer(strict bool) *YAMLSerializer {
	return &YAMLSerializer{Strict: strict}
}

func (s *YAMLSerializer) Decode(data []byte) (core.Record, error) {
	var r core.Record
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(s.Strict)
	if err := decoder.Decode(&r); err != nil {
		return core.Record{}, fmt.Errorf("invalid yaml: %w", err)
	}
	return r, nil
}

func (s *YAMLSerializer) Encode(r core.Record) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
