package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshintel/repopipe/internal/transform"
)

var transformCmd = &cobra.Command{
	Use:   "transform [file]",
	Short: "Convert a local CSV file to JSON records",
	Long: `Transform reads a CSV file (or stdin when no file is given) and prints the
rows as a JSON array of records. The first row names the fields. Short rows
are padded with empty strings; extra cells on long rows are kept under the
overflow key. No network access is involved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().String("delimiter", "", `CSV delimiter: a single character, "tab", or "auto" (default: auto)`)
	transformCmd.Flags().String("out", "", "write JSON to this file instead of stdout")

	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
	}

	delimiter, _ := cmd.Flags().GetString("delimiter")
	delim, err := transform.ParseDelimiter(delimiter)
	if err != nil {
		return err
	}

	records, err := transform.Parse(data, delim)
	if err != nil {
		return err
	}

	doc, err := transform.EncodeJSON(records)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err = os.Stdout.Write(doc)
		return err
	}
	if err := os.WriteFile(out, doc, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d records to %s\n", len(records), out)
	return nil
}
