// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export writes snap to w as YAML or indented JSON.
func Export(w io.Writer, snap Snapshot, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML, "yml", "":
		data, err = yaml.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
	case FormatJSON:
		data, err = json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		data = append(data, '\n')
	default:
		return fmt.Errorf("unsupported export format %q: use yaml or json", format)
	}
	_, err = w.Write(data)
	return err
}
