package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/intercept/pkg/cli/internal/output"
	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/engine"
)

// ValidateOutput is the JSON form of the validate command.
type ValidateOutput struct {
	Valid       bool                 `json:"valid"`
	Files       []ValidateFileResult `json:"files"`
	Definitions int                  `json:"definitions"`
	// Errors are problems spanning files, such as an ID used twice.
	Errors []string `json:"errors,omitempty"`
}

// ValidateFileResult is the validation outcome of one fixture file.
type ValidateFileResult struct {
	Path   string   `json:"path"`
	Valid  bool     `json:"valid"`
	Mocks  int      `json:"mocks"`
	Errors []string `json:"errors,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <file|dir|glob>...",
	Short: "Validate fixture files",
	Long: `Validate checks every fixture file against the fixture schema and the
mock definition rules, then builds one pool from all of them so that
problems across files, such as duplicate IDs, are reported too.`,
	Example: `  mockd-intercept validate testdata/mocks
  mockd-intercept validate 'fixtures/**/*.yaml'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	result, err := loadFixtures(args)
	if err != nil {
		return err
	}

	out := ValidateOutput{Valid: len(result.Errors) == 0}
	for _, f := range result.Fixtures {
		out.Files = append(out.Files, ValidateFileResult{Path: f.Path, Valid: true, Mocks: len(f.Mocks)})
		out.Definitions += len(f.Mocks)
	}
	for _, le := range result.Errors {
		out.Files = append(out.Files, ValidateFileResult{Path: le.Path, Errors: errorLines(le.Err)})
	}

	if out.Valid {
		if _, err := engine.Build(config.Providers(result.Fixtures), engine.WithLogger(log)); err != nil {
			out.Valid = false
			out.Errors = joinedLines(err)
		}
	}

	if jsonOutput {
		if err := output.JSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		printValidate(cmd.OutOrStdout(), &out)
	}
	if !out.Valid {
		return exitWith(1, ErrInvalidFixture)
	}
	return nil
}

func printValidate(w io.Writer, out *ValidateOutput) {
	tw := output.Table(w)
	for _, f := range out.Files {
		if f.Valid {
			fmt.Fprintf(tw, "ok\t%s\t%d mock(s)\n", f.Path, f.Mocks)
		} else {
			fmt.Fprintf(tw, "FAIL\t%s\t\n", f.Path)
		}
	}
	_ = tw.Flush()

	for _, f := range out.Files {
		if f.Valid {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", f.Path)
		for _, line := range f.Errors {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	if len(out.Errors) > 0 {
		fmt.Fprintln(w, "\npool:")
		for _, line := range out.Errors {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}

	if out.Valid {
		fmt.Fprintf(w, "\n%d file(s), %d definition(s): valid\n", len(out.Files), out.Definitions)
	} else {
		fmt.Fprintln(w, "\nvalidation failed")
	}
}

// loadFixtures loads every fixture named by args, relative to the
// working directory.
func loadFixtures(args []string) (*config.LoadResult, error) {
	result, err := config.Load(".", args...)
	if err != nil {
		return nil, err
	}
	if len(result.Fixtures) == 0 && len(result.Errors) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFixtures, strings.Join(args, " "))
	}
	return result, nil
}

// errorLines flattens a load error into one line per problem.
func errorLines(err error) []string {
	var invalid *config.InvalidFixtureError
	if errors.As(err, &invalid) {
		lines := make([]string, len(invalid.Result.Errors))
		for i, e := range invalid.Result.Errors {
			lines[i] = e.Error()
		}
		return lines
	}
	return []string{err.Error()}
}

// joinedLines splits an errors.Join result back into its parts.
func joinedLines(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, e.Error())
		}
		return lines
	}
	return []string{err.Error()}
}
