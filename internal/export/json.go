// Package export renders a coordinated output as report artifacts: pretty
// JSON for machines and Mermaid diagrams for humans.
package export

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReportJSON renders any report structure as indented JSON with a trailing
// newline.
func ReportJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteReport writes the JSON report to path, creating or truncating it.
func WriteReport(path string, v any) error {
	data, err := ReportJSON(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export: write report: %w", err)
	}
	return nil
}
