// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds configuration shared across pipeline stages.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no timeout, which is
	// never what you want against a remote API; callers apply a default.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "repopipe/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PipelineConfig holds settings for a single extract-transform-load run.
type PipelineConfig struct {
	HTTPConfig `yaml:",inline"`

	// CommitMessage is the commit message used for the destination write.
	CommitMessage string `json:"commit_message" yaml:"commit_message"`

	// Delimiter is the CSV field delimiter. Empty means sniff from the
	// header line, falling back to comma.
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`

	// ReportPath, when set, is where a YAML run summary is written after a
	// successful publish.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`

	// HistoryDB, when set, is the path of a SQLite database that records
	// run outcomes. Empty disables history.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`
}

// DefaultCommitMessage is used when no commit message is configured.
const DefaultCommitMessage = "ETL pipeline: automated CSV to JSON conversion"
