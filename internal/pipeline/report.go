// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// RunReport is the YAML summary written after a successful publish.
type RunReport struct {
	Source      string    `yaml:"source"`
	Destination string    `yaml:"destination"`
	Rows        int       `yaml:"rows"`
	Action      string    `yaml:"action"`
	CommitSHA   string    `yaml:"commit_sha"`
	ContentSHA  string    `yaml:"content_sha"`
	HTMLURL     string    `yaml:"html_url,omitempty"`
	CompletedAt time.Time `yaml:"completed_at"`
}

// reportNow is stubbed in tests for deterministic timestamps.
var reportNow = time.Now

// WriteReport renders the result as YAML at path.
func WriteReport(path string, res *Result) error {
	action := "updated"
	if res.Created {
		action = "created"
	}
	report := RunReport{
		Source:      res.Source,
		Destination: res.Destination,
		Rows:        res.Rows,
		Action:      action,
		CommitSHA:   res.CommitSHA,
		ContentSHA:  res.ContentSHA,
		HTMLURL:     res.HTMLURL,
		CompletedAt: reportNow().UTC(),
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing run report %s: %w", path, err)
	}
	return nil
}
