package prefs

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Codec converts between preference data and file bytes.
type Codec interface {
	// Name identifies the format in logs.
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type tomlCodec struct{}

func (tomlCodec) Name() string { return "toml" }

func (tomlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) Unmarshal(data []byte, v any) error {
	return toml.Unmarshal(data, v)
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// TOML is the default preference file format.
var TOML Codec = tomlCodec{}

// YAML is the alternate preference file format.
var YAML Codec = yamlCodec{}

var codecsByExt = map[string]Codec{
	".toml": TOML,
	".yaml": YAML,
	".yml":  YAML,
}

// CodecFor returns the codec for path's extension, defaulting to TOML.
func CodecFor(path string) Codec {
	if c, ok := codecsByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return TOML
}
