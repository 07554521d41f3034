package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/intercept/internal/matching"
	"github.com/getmockd/intercept/pkg/cli/internal/output"
	"github.com/getmockd/intercept/pkg/cli/internal/parse"
	"github.com/getmockd/intercept/pkg/config"
	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/mock"
)

var (
	explainMethod   string
	explainPath     string
	explainHeaders  []string
	explainBody     string
	explainBodyFile string
	explainResponse bool
)

// ExplainOutput is the JSON form of the explain command.
type ExplainOutput struct {
	Request    string               `json:"request"`
	Matched    bool                 `json:"matched"`
	Definition *ExplainDefinition   `json:"definition,omitempty"`
	PathParams map[string]string    `json:"pathParams,omitempty"`
	Response   *ExplainResponse     `json:"response,omitempty"`
	NearMisses []*matching.NearMiss `json:"nearMisses,omitempty"`
}

// ExplainDefinition identifies the winning definition.
type ExplainDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
}

// ExplainResponse is the response the winning definition produced.
type ExplainResponse struct {
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Body       string              `json:"body,omitempty"`
	DelayMs    int64               `json:"delayMs,omitempty"`
}

var explainCmd = &cobra.Command{
	Use:   "explain <file|dir|glob>...",
	Short: "Show which mock would answer a request",
	Long: `Explain builds a pool from the given fixtures and resolves one request
against it without a network. It prints the winning definition, or the
near-miss report when nothing matches, and exits with status 1 in that case.`,
	Example: `  mockd-intercept explain --method GET --path /users/42 fixtures/
  mockd-intercept explain --method POST --path 'https://api.test/orders?dry=1' \
      -H 'Content-Type: application/json' --body '{"sku":"A1"}' --response fixtures/orders.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&explainMethod, "method", "X", "GET", "Request method")
	explainCmd.Flags().StringVarP(&explainPath, "path", "p", "", "Request path or absolute URL, with an optional query")
	explainCmd.Flags().StringArrayVarP(&explainHeaders, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	explainCmd.Flags().StringVarP(&explainBody, "body", "d", "", "Request body")
	explainCmd.Flags().StringVar(&explainBodyFile, "body-file", "", "Read the request body from a file")
	explainCmd.Flags().BoolVar(&explainResponse, "response", false, "Produce and print the response of the winning mock")
	_ = explainCmd.MarkFlagRequired("path")
	explainCmd.MarkFlagsMutuallyExclusive("body", "body-file")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	req, err := explainRequest()
	if err != nil {
		return err
	}

	result, err := loadFixtures(args)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	pool, err := engine.Build(config.Providers(result.Fixtures), engine.WithLogger(log))
	if err != nil {
		return err
	}

	exp := pool.Explain(req)
	out := ExplainOutput{
		Request:    req.String(),
		Matched:    exp.Definition != nil,
		NearMisses: exp.NearMisses,
	}
	if exp.Definition != nil {
		out.Definition = &ExplainDefinition{
			ID:          exp.Definition.ID,
			Name:        exp.Definition.Name,
			Description: exp.Definition.Describe(),
		}
		out.PathParams = exp.PathParams
		if explainResponse {
			resp, err := pool.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			out.Response = &ExplainResponse{
				StatusCode: resp.StatusCode,
				Headers:    resp.Header,
				Body:       resp.Body.String(),
				DelayMs:    resp.Delay.Milliseconds(),
			}
		}
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := output.JSON(w, out); err != nil {
			return err
		}
	} else if out.Matched {
		printExplanation(w, &out)
	} else {
		fmt.Fprint(w, matching.FormatReport(req, exp.NearMisses))
	}
	if !out.Matched {
		return exitWith(1, ErrNoMatch)
	}
	return nil
}

func explainRequest() (*mock.Request, error) {
	req, err := mock.NewRequest(explainMethod, explainPath)
	if err != nil {
		return nil, err
	}
	if req.Header, err = parse.Headers(explainHeaders); err != nil {
		return nil, err
	}
	switch {
	case explainBodyFile != "":
		data, err := os.ReadFile(explainBodyFile)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		req.Body = data
	case explainBody != "":
		req.Body = mock.Body(explainBody)
	}
	return req, nil
}

func printExplanation(w io.Writer, out *ExplainOutput) {
	def := out.Definition
	label := def.ID
	if def.Name != "" {
		label = fmt.Sprintf("%s %q", def.ID, def.Name)
	}
	fmt.Fprintf(w, "%s matched %s [%s]\n", out.Request, label, def.Description)

	if len(out.PathParams) > 0 {
		names := make([]string, 0, len(out.PathParams))
		for name := range out.PathParams {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, len(names))
		for i, name := range names {
			pairs[i] = name + "=" + out.PathParams[name]
		}
		fmt.Fprintf(w, "  path params: %s\n", strings.Join(pairs, " "))
	}

	if resp := out.Response; resp != nil {
		fmt.Fprintf(w, "  response: %d\n", resp.StatusCode)
		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, v := range resp.Headers[name] {
				fmt.Fprintf(w, "  %s: %s\n", name, v)
			}
		}
		if resp.DelayMs > 0 {
			fmt.Fprintf(w, "  delay: %dms\n", resp.DelayMs)
		}
		if resp.Body != "" {
			fmt.Fprintf(w, "\n%s\n", resp.Body)
		}
	}
}
