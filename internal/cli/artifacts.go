package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// artifactWriteParams describes where rendered artifacts go.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string // derives the output name when output is empty
	output    string // file (single format) or base path (multiple)
}

// writeArtifacts writes one file per format and returns the paths written.
// A single format with an explicit output path is written to that path verbatim.
// JSON layouts are named <base>.layout.json to match the layout command.
func writeArtifacts(p artifactWriteParams) ([]string, error) {
	formats := p.formats
	if len(formats) == 0 {
		for f := range p.artifacts {
			formats = append(formats, f)
		}
		sort.Strings(formats)
	}

	base := basePath(p.output, p.input)
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		data, ok := p.artifacts[format]
		if !ok {
			return paths, fmt.Errorf("no %s artifact rendered", format)
		}
		path := base + "." + format
		if format == "json" {
			// Keep clear of the input, which is usually a .json response too.
			path = base + ".layout.json"
		}
		if len(formats) == 1 && p.output != "" {
			path = p.output
		}
		if err := writeFile(path, data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeFile writes data to path, creating parent directories. "-" writes to stdout.
func writeFile(path string, data []byte) error {
	if path == "-" {
		_, err := out.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
