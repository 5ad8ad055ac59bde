package export

import "encoding/json"

// JSONExporter writes the full transcript as indented JSON.
type JSONExporter struct{}

func (JSONExporter) Export(t Transcript) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

func (JSONExporter) FileExtension() string { return ".json" }

func (JSONExporter) MimeType() string { return "application/json" }
