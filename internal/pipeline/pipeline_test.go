// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/repopipe/internal/github"
	"github.com/meshintel/repopipe/pkg/types"
)

const (
	sourcePath = "/repos/acme/data/contents/stocks.csv"
	destPath   = "/repos/acme/vault/contents/stocks.json"
)

// fakeRepo simulates the two Contents API endpoints a run touches: the
// source CSV read, the destination pre-check, and the destination write.
type fakeRepo struct {
	sourceCSV    string
	sourceStatus int // 0 means 200

	destExists bool
	destSHA    string
	putStatus  int // 0 means 200/201 depending on destExists

	gets    int32
	puts    int32
	lastPut []byte
}

func (f *fakeRepo) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == sourcePath:
			atomic.AddInt32(&f.gets, 1)
			if f.sourceStatus != 0 {
				w.WriteHeader(f.sourceStatus)
				fmt.Fprint(w, `{"message":"nope"}`)
				return
			}
			fmt.Fprintf(w, `{"type":"file","content":%q,"sha":"srcsha"}`,
				base64.StdEncoding.EncodeToString([]byte(f.sourceCSV)))

		case r.Method == http.MethodGet && r.URL.Path == destPath:
			atomic.AddInt32(&f.gets, 1)
			if !f.destExists {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message":"Not Found"}`)
				return
			}
			fmt.Fprintf(w, `{"type":"file","content":%q,"sha":%q}`,
				base64.StdEncoding.EncodeToString([]byte("[]")), f.destSHA)

		case r.Method == http.MethodPut && r.URL.Path == destPath:
			atomic.AddInt32(&f.puts, 1)
			body, _ := io.ReadAll(r.Body)
			f.lastPut = body
			if f.putStatus != 0 {
				w.WriteHeader(f.putStatus)
				fmt.Fprint(w, `{"message":"does not match"}`)
				return
			}
			status := http.StatusCreated
			if f.destExists {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			fmt.Fprint(w, `{"content":{"sha":"contentsha","html_url":"https://example.com/stocks.json"},"commit":{"sha":"commitsha"}}`)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})
}

func setup(t *testing.T, f *fakeRepo) *github.Client {
	t.Helper()
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)

	orig := github.APIBase
	github.APIBase = ts.URL
	t.Cleanup(func() { github.APIBase = orig })

	return github.NewClient("ghp_test", types.HTTPConfig{
		Timeout:   10 * time.Second,
		UserAgent: "repopipe-test/0.1",
	})
}

var (
	src  = github.FileHandle{Owner: "acme", Repo: "data", Path: "stocks.csv"}
	dest = github.FileHandle{Owner: "acme", Repo: "vault", Path: "stocks.json"}
)

// putBody decodes the content field of the captured PUT payload.
func putBody(t *testing.T, f *fakeRepo) (content []byte, sha, message string) {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.Unmarshal(f.lastPut, &payload); err != nil {
		t.Fatal(err)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload.Content)
	if err != nil {
		t.Fatal(err)
	}
	return decoded, payload.SHA, payload.Message
}

func TestRun_CreatesWhenDestinationAbsent(t *testing.T) {
	f := &fakeRepo{sourceCSV: "id,name\n1,Ann\n2,Bo,extra\n"}
	client := setup(t, f)

	var out bytes.Buffer
	res, err := Run(context.Background(), client, src, dest, types.PipelineConfig{}, &out)
	if err != nil {
		t.Fatal(err)
	}

	if !res.Created {
		t.Error("expected a create")
	}
	if res.Rows != 2 {
		t.Errorf("rows = %d, want 2", res.Rows)
	}
	if res.CommitSHA != "commitsha" {
		t.Errorf("commit sha = %q", res.CommitSHA)
	}
	if got := atomic.LoadInt32(&f.puts); got != 1 {
		t.Errorf("puts = %d, want exactly 1", got)
	}

	content, sha, message := putBody(t, f)
	if sha != "" {
		t.Errorf("create carried sha %q", sha)
	}
	if message != types.DefaultCommitMessage {
		t.Errorf("message = %q", message)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("published content is not JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("published %d objects, want 2", len(decoded))
	}
	if decoded[0]["id"] != "1" || decoded[0]["name"] != "Ann" {
		t.Errorf("first object = %v", decoded[0])
	}
	if overflow, ok := decoded[1]["_overflow"].([]any); !ok || len(overflow) != 1 || overflow[0] != "extra" {
		t.Errorf("second object = %v, want _overflow [extra]", decoded[1])
	}
}

func TestRun_UpdatesWhenDestinationExists(t *testing.T) {
	f := &fakeRepo{
		sourceCSV:  "id\n1\n",
		destExists: true,
		destSHA:    "oldsha",
	}
	client := setup(t, f)

	var out bytes.Buffer
	res, err := Run(context.Background(), client, src, dest, types.PipelineConfig{CommitMessage: "sync"}, &out)
	if err != nil {
		t.Fatal(err)
	}

	if res.Created {
		t.Error("expected an update")
	}
	// One source read, one destination pre-check, one write.
	if got := atomic.LoadInt32(&f.gets); got != 2 {
		t.Errorf("gets = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&f.puts); got != 1 {
		t.Errorf("puts = %d, want 1", got)
	}

	_, sha, message := putBody(t, f)
	if sha != "oldsha" {
		t.Errorf("update sha = %q, want oldsha", sha)
	}
	if message != "sync" {
		t.Errorf("message = %q, want sync", message)
	}
}

func TestRun_AuthErrorOnReadBlocksWrite(t *testing.T) {
	f := &fakeRepo{sourceStatus: http.StatusUnauthorized}
	client := setup(t, f)

	var out bytes.Buffer
	_, err := Run(context.Background(), client, src, dest, types.PipelineConfig{}, &out)

	var authErr *github.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if got := atomic.LoadInt32(&f.puts); got != 0 {
		t.Errorf("puts = %d, want 0 after auth failure", got)
	}
}

func TestRun_ConflictOnWrite(t *testing.T) {
	f := &fakeRepo{
		sourceCSV:  "id\n1\n",
		destExists: true,
		destSHA:    "raced",
		putStatus:  http.StatusConflict,
	}
	client := setup(t, f)

	var out bytes.Buffer
	_, err := Run(context.Background(), client, src, dest, types.PipelineConfig{}, &out)

	var conflict *github.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestRun_ParseErrorBlocksWrite(t *testing.T) {
	f := &fakeRepo{sourceCSV: "id,name\n1,\"unclosed\n"}
	client := setup(t, f)

	var out bytes.Buffer
	_, err := Run(context.Background(), client, src, dest, types.PipelineConfig{}, &out)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if got := atomic.LoadInt32(&f.puts); got != 0 {
		t.Errorf("puts = %d, want 0 after parse failure", got)
	}
}

func TestRun_EmptyCSVPublishesEmptyArray(t *testing.T) {
	f := &fakeRepo{sourceCSV: "id,name\n"}
	client := setup(t, f)

	var out bytes.Buffer
	res, err := Run(context.Background(), client, src, dest, types.PipelineConfig{}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows != 0 {
		t.Errorf("rows = %d, want 0", res.Rows)
	}

	content, _, _ := putBody(t, f)
	if string(bytes.TrimSpace(content)) != "[]" {
		t.Errorf("published %q, want []", content)
	}
}

func TestRun_WritesReport(t *testing.T) {
	f := &fakeRepo{sourceCSV: "id\n1\n2\n"}
	client := setup(t, f)

	origNow := reportNow
	reportNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { reportNow = origNow })

	reportPath := filepath.Join(t.TempDir(), "report.yaml")
	cfg := types.PipelineConfig{ReportPath: reportPath}

	var out bytes.Buffer
	if _, err := Run(context.Background(), client, src, dest, cfg, &out); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	var report RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Rows != 2 {
		t.Errorf("report rows = %d, want 2", report.Rows)
	}
	if report.Action != "created" {
		t.Errorf("report action = %q, want created", report.Action)
	}
	if report.Source != "acme/data/stocks.csv" || report.Destination != "acme/vault/stocks.json" {
		t.Errorf("report handles = %q -> %q", report.Source, report.Destination)
	}
	if !report.CompletedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("report completed_at = %v", report.CompletedAt)
	}
}
