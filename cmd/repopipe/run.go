package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/repopipe/internal/github"
	"github.com/meshintel/repopipe/internal/history"
	"github.com/meshintel/repopipe/internal/pipeline"
	"github.com/meshintel/repopipe/internal/secrets"
	"github.com/meshintel/repopipe/internal/transform"
	"github.com/meshintel/repopipe/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "repopipe/0.1"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the CSV-to-JSON pipeline between two repositories",
	Long: `Run fetches the source CSV file, converts its rows to JSON records, and
publishes the JSON to the destination repository. When the destination file
already exists its blob SHA is fetched first and sent with the write, so a
concurrent change fails the run with a conflict instead of being overwritten.

The token is taken from --token, the REPOPIPE_TOKEN or GITHUB_TOKEN
environment variables, the config file, or .secrets/github-token, in that
order. It needs read access to the source repository and write access to
the destination.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("token", "", "GitHub personal access token")
	runCmd.Flags().String("source-owner", "", "source repository owner")
	runCmd.Flags().String("source-repo", "", "source repository name")
	runCmd.Flags().String("source-path", "", "path of the CSV file in the source repository")
	runCmd.Flags().String("source-branch", "", "source branch (default: repository default branch)")
	runCmd.Flags().String("dest-owner", "", "destination repository owner")
	runCmd.Flags().String("dest-repo", "", "destination repository name")
	runCmd.Flags().String("dest-path", "", "path of the JSON file in the destination repository")
	runCmd.Flags().String("dest-branch", "", "destination branch (default: repository default branch)")
	runCmd.Flags().String("message", "", "commit message for the destination write")
	runCmd.Flags().String("delimiter", "", `CSV delimiter: a single character, "tab", or "auto" (default: auto)`)
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	runCmd.Flags().String("report", "", "write a YAML run summary to this path")
	runCmd.Flags().String("history-db", "", "record the run in this SQLite database")
	runCmd.Flags().Bool("dry-run", false, "fetch and transform only; print the JSON, write nothing")

	rootCmd.AddCommand(runCmd)
}

// resolveToken applies the token precedence: flag, environment/config file,
// legacy GITHUB_TOKEN, then .secrets/github-token.
func resolveToken(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := viper.GetString("token"); v != "" {
		return v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		return v
	}
	return secrets.Resolve("", loadedSecrets, secrets.TokenKey)
}

func handleFromFlags(cmd *cobra.Command, prefix string) github.FileHandle {
	owner, _ := cmd.Flags().GetString(prefix + "-owner")
	repo, _ := cmd.Flags().GetString(prefix + "-repo")
	path, _ := cmd.Flags().GetString(prefix + "-path")
	branch, _ := cmd.Flags().GetString(prefix + "-branch")
	return github.FileHandle{Owner: owner, Repo: repo, Path: path, Branch: branch}
}

func requireHandle(h github.FileHandle, prefix string) error {
	if h.Owner == "" || h.Repo == "" || h.Path == "" {
		return fmt.Errorf("--%s-owner, --%s-repo and --%s-path are required", prefix, prefix, prefix)
	}
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	tokenFlag, _ := cmd.Flags().GetString("token")
	token := resolveToken(tokenFlag)
	if token == "" {
		return fmt.Errorf("no token: set --token, REPOPIPE_TOKEN, GITHUB_TOKEN, or .secrets/github-token")
	}
	if !github.TokenLooksValid(token) {
		fmt.Fprintln(os.Stderr, "warning: token does not look like a GitHub personal access token")
	}

	src := handleFromFlags(cmd, "source")
	if err := requireHandle(src, "source"); err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dest := handleFromFlags(cmd, "dest")
	if !dryRun {
		if err := requireHandle(dest, "dest"); err != nil {
			return err
		}
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	message, _ := cmd.Flags().GetString("message")
	delimiter, _ := cmd.Flags().GetString("delimiter")
	report, _ := cmd.Flags().GetString("report")
	historyDB, _ := cmd.Flags().GetString("history-db")

	cfg := types.PipelineConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		CommitMessage: message,
		Delimiter:     delimiter,
		ReportPath:    report,
		HistoryDB:     historyDB,
	}

	client := github.NewClient(token, cfg.HTTPConfig)
	ctx := cmd.Context()

	if dryRun {
		delim, err := transform.ParseDelimiter(cfg.Delimiter)
		if err != nil {
			return err
		}
		data, err := pipeline.Fetch(ctx, client, src, os.Stderr)
		if err != nil {
			return err
		}
		records, err := transform.Parse(data, delim)
		if err != nil {
			return fmt.Errorf("transforming %s: %w", src, err)
		}
		doc, err := transform.EncodeJSON(records)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(doc)
		return err
	}

	res, err := pipeline.Run(ctx, client, src, dest, cfg, os.Stdout)
	if err != nil {
		return err
	}

	if cfg.HistoryDB != "" {
		if err := recordRun(cfg.HistoryDB, res); err != nil {
			// The publish already happened; a history failure must not
			// turn a successful run into a failed one.
			fmt.Fprintf(os.Stderr, "warning: could not record run history: %v\n", err)
		}
	}

	if res.HTMLURL != "" {
		fmt.Printf("uploaded: %s\n", res.HTMLURL)
	}
	return nil
}

func recordRun(dbPath string, res *pipeline.Result) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	action := "updated"
	if res.Created {
		action = "created"
	}
	return store.Record(history.Entry{
		Source:      res.Source,
		Destination: res.Destination,
		Rows:        res.Rows,
		Action:      action,
		CommitSHA:   res.CommitSHA,
	})
}
