package inspect

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/danmuck/rmfctl/internal/chunks"
)

// Report describes one load for humans and scripts.
type Report struct {
	LoadID     string         `json:"load_id" yaml:"load_id"`
	Source     string         `json:"source" yaml:"source"`
	Compressed bool           `json:"compressed,omitempty" yaml:"compressed,omitempty"`
	Bytes      int            `json:"bytes" yaml:"bytes"`
	Decoder    string         `json:"decoder" yaml:"decoder"`
	Policy     string         `json:"header_policy" yaml:"header_policy"`
	State      string         `json:"state" yaml:"state"`
	Result     string         `json:"result" yaml:"result"`
	Version    float32        `json:"version" yaml:"version"`
	Warnings   []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	ChunkCount int            `json:"chunk_count" yaml:"chunk_count"`
	Trailing   int            `json:"trailing,omitempty" yaml:"trailing,omitempty"`
	Chunks     []chunks.Chunk `json:"chunks,omitempty" yaml:"chunks,omitempty"`
}

// HeaderReport is the result of a header-only probe.
type HeaderReport struct {
	Source    string   `json:"source" yaml:"source"`
	Version   float32  `json:"version" yaml:"version"`
	Magic     string   `json:"magic" yaml:"magic"`
	Supported bool     `json:"supported" yaml:"supported"`
	MagicOK   bool     `json:"magic_ok" yaml:"magic_ok"`
	Problems  []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// Encode writes v as YAML or JSON.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
