// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the extract-transform-load sequence: fetch a CSV
// file from a source repository, convert it to JSON records, publish the
// JSON to a destination repository. Stages run strictly in order and any
// failure aborts the run before the write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meshintel/repopipe/internal/github"
	"github.com/meshintel/repopipe/internal/transform"
	"github.com/meshintel/repopipe/pkg/types"
)

// Result describes a completed run.
type Result struct {
	Source      string
	Destination string
	Rows        int
	Created     bool
	CommitSHA   string
	ContentSHA  string
	HTMLURL     string
}

// Fetch reads the source CSV and returns its raw bytes.
func Fetch(ctx context.Context, client *github.Client, src github.FileHandle, w io.Writer) ([]byte, error) {
	fmt.Fprintf(w, "extracting: %s\n", src)
	fc, err := client.GetFile(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src, err)
	}
	return fc.Data, nil
}

// Publish writes the JSON document to the destination. It reads the
// destination first: an existing file yields its blob SHA, which the write
// carries so a concurrent change surfaces as a conflict. This is a
// best-effort lost-update guard, not a transaction; atomicity rests on the
// API's own compare-and-swap on the SHA.
func Publish(ctx context.Context, client *github.Client, dest github.FileHandle, data []byte, message string, w io.Writer) (*github.WriteResult, error) {
	sha := ""
	existing, err := client.GetFile(ctx, dest)
	switch {
	case err == nil:
		sha = existing.SHA
		fmt.Fprintf(w, "destination exists, updating: %s\n", dest)
	case errors.As(err, new(*github.NotFoundError)):
		fmt.Fprintf(w, "destination absent, creating: %s\n", dest)
	default:
		return nil, fmt.Errorf("checking destination %s: %w", dest, err)
	}

	wr, err := client.PutFile(ctx, dest, data, message, sha)
	if err != nil {
		return nil, fmt.Errorf("publishing %s: %w", dest, err)
	}
	return wr, nil
}

// Run executes the full pipeline and returns the outcome. Progress lines
// go to w; errors carry the failing stage and the underlying error kind.
func Run(ctx context.Context, client *github.Client, src, dest github.FileHandle, cfg types.PipelineConfig, w io.Writer) (*Result, error) {
	delim, err := transform.ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return nil, err
	}

	data, err := Fetch(ctx, client, src, w)
	if err != nil {
		return nil, err
	}

	records, err := transform.Parse(data, delim)
	if err != nil {
		return nil, fmt.Errorf("transforming %s: %w", src, err)
	}
	fmt.Fprintf(w, "transformed %d rows\n", len(records))

	doc, err := transform.EncodeJSON(records)
	if err != nil {
		return nil, fmt.Errorf("transforming %s: %w", src, err)
	}

	message := cfg.CommitMessage
	if message == "" {
		message = types.DefaultCommitMessage
	}

	wr, err := Publish(ctx, client, dest, doc, message, w)
	if err != nil {
		return nil, err
	}

	action := "updated"
	if wr.Created {
		action = "created"
	}
	fmt.Fprintf(w, "%s %s (commit %s)\n", action, dest, wr.CommitSHA)

	res := &Result{
		Source:      src.String(),
		Destination: dest.String(),
		Rows:        len(records),
		Created:     wr.Created,
		CommitSHA:   wr.CommitSHA,
		ContentSHA:  wr.ContentSHA,
		HTMLURL:     wr.HTMLURL,
	}

	if cfg.ReportPath != "" {
		if err := WriteReport(cfg.ReportPath, res); err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "report written: %s\n", cfg.ReportPath)
	}

	return res, nil
}
