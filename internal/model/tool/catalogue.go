package tool

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type catalogueFile struct {
	Tools []Tool `toml:"tools"`
}

// LoadFile reads tool overrides from a TOML file and merges them over base by
// id. Fields left empty in the file keep their base value; unknown ids are
// appended.
func LoadFile(path string, base []Tool) ([]Tool, error) {
	var file catalogueFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode tool catalogue %s: %w", path, err)
	}
	return Merge(base, file.Tools)
}

// Merge applies overrides over base by id.
func Merge(base, overrides []Tool) ([]Tool, error) {
	out := append([]Tool(nil), base...)
	index := make(map[string]int, len(out))
	for i, t := range out {
		index[t.ID] = i
	}

	for _, o := range overrides {
		if o.ID == "" {
			return nil, fmt.Errorf("tool override without id")
		}
		i, ok := index[o.ID]
		if !ok {
			if o.Kind == "" {
				o.Kind = KindChat
			}
			index[o.ID] = len(out)
			out = append(out, o)
			continue
		}
		out[i] = overlay(out[i], o)
	}
	return out, nil
}

func overlay(dst, src Tool) Tool {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Tagline != "" {
		dst.Tagline = src.Tagline
	}
	if src.Kind != "" {
		dst.Kind = src.Kind
	}
	if src.SystemPrompt != "" {
		dst.SystemPrompt = src.SystemPrompt
	}
	if src.ScopedPrompt != "" {
		dst.ScopedPrompt = src.ScopedPrompt
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Temperature > 0 {
		dst.Temperature = src.Temperature
	}
	if src.Greeting != "" {
		dst.Greeting = src.Greeting
	}
	if src.Collection != "" {
		dst.Collection = src.Collection
	}
	if src.ExportLabel != "" {
		dst.ExportLabel = src.ExportLabel
	}
	dst.Local = dst.Local || src.Local
	dst.Memory = dst.Memory || src.Memory
	return dst
}
