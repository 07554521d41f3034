package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/portability"
)

var (
	importName           string
	importTimes          int
	importMatchHost      bool
	importQueryExamples  bool
	importStatus         int
	importSkipValidation bool
	importOutput         string
)

var importOpenAPICmd = &cobra.Command{
	Use:   "import-openapi <spec>",
	Short: "Generate a fixture from an OpenAPI or Swagger document",
	Long: `Import-openapi turns every operation of an OpenAPI 3 or Swagger 2
document into a mock definition answering with the documented example, or
with a value generated from the response schema.

The fixture is printed as YAML (JSON with --json), or written to the file
named by --output in the format its extension selects.`,
	Example: `  mockd-intercept import-openapi api/openapi.yaml
  mockd-intercept import-openapi --times 1 --match-host -o testdata/mocks/api.yaml api/openapi.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runImportOpenAPI,
}

func init() {
	f := importOpenAPICmd.Flags()
	f.StringVar(&importName, "name", "", "Fixture name; defaults to a slug of the API title")
	f.IntVar(&importTimes, "times", 0, "Consumption limit of every generated mock (0 = reusable)")
	f.BoolVar(&importMatchHost, "match-host", false, "Only match requests addressed to the first server's host")
	f.BoolVar(&importQueryExamples, "query-examples", false, "Require the example value of required query parameters")
	f.IntVar(&importStatus, "status", 0, "Preferred documented response status")
	f.BoolVar(&importSkipValidation, "skip-validation", false, "Accept documents that fail OpenAPI validation")
	f.StringVarP(&importOutput, "output", "o", "", "Write the fixture to this file instead of stdout")
	rootCmd.AddCommand(importOpenAPICmd)
}

func runImportOpenAPI(cmd *cobra.Command, args []string) error {
	if importTimes < 0 {
		return fmt.Errorf("--times must not be negative, got %d", importTimes)
	}
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	provider, err := portability.LoadOpenAPI(args[0], portability.ImportOptions{
		Name:           importName,
		Times:          importTimes,
		MatchHost:      importMatchHost,
		QueryExamples:  importQueryExamples,
		Status:         importStatus,
		SkipValidation: importSkipValidation,
	})
	if err != nil {
		return err
	}
	fixture := provider.Fixture()
	log.Info("imported OpenAPI document", "source", args[0], "name", fixture.Name(), "mocks", len(fixture.Mocks))

	if importOutput != "" {
		if err := config.SaveFile(importOutput, fixture); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d mock(s) to %s\n", len(fixture.Mocks), importOutput)
		return nil
	}

	format := config.FormatYAML
	if jsonOutput {
		format = config.FormatJSON
	}
	data, err := config.Marshal(fixture, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
