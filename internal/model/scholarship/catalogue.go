package scholarship

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed catalogue.toml
var defaultCatalogue string

type catalogueFile struct {
	Scholarships []Scholarship `toml:"scholarships"`
}

// Default returns the bundled catalogue.
func Default() ([]Scholarship, error) {
	return Parse(defaultCatalogue)
}

// Parse decodes a TOML catalogue.
func Parse(data string) ([]Scholarship, error) {
	var file catalogueFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("decode scholarship catalogue: %w", err)
	}
	return file.Scholarships, nil
}

// LoadFile decodes a catalogue from disk.
func LoadFile(path string) ([]Scholarship, error) {
	var file catalogueFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode scholarship catalogue %s: %w", path, err)
	}
	return file.Scholarships, nil
}
