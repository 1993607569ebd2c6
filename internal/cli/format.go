package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"gotest-mcp/internal/api"
)

// OutputFormat selects how responses are printed.
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected table, json or yaml)", s)
	}
}

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#007700", Dark: "#4EC94E"}).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5F5F"}).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8B008B", Dark: "#FF79C6"}).Bold(true)
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8A6D00", Dark: "#F1C40F"})
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#A0A0A0"})
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Formatter prints responses to a terminal or pipe.
type Formatter struct {
	out    io.Writer
	format OutputFormat
	width  int // max width of a message line; 0 disables truncation
}

// NewFormatter writes to out in the given format. width bounds message lines
// in table output.
func NewFormatter(out io.Writer, format OutputFormat, width int) *Formatter {
	return &Formatter{out: out, format: format, width: width}
}

// Discover prints a discover-tests response.
func (f *Formatter) Discover(resp *api.DiscoverTestsResponse) error {
	if f.format != OutputFormatTable {
		return f.structured(resp)
	}

	if resp.Count == 0 {
		fmt.Fprintln(f.out, skipStyle.Render("No tests found"))
	} else {
		t := f.newTable()
		t.AppendHeader(table.Row{"NODE ID", "MODULE", "LINE"})
		for _, dt := range resp.Tests {
			line := "-"
			if dt.Line != nil {
				line = fmt.Sprint(*dt.Line)
			}
			t.AppendRow(table.Row{dt.NodeID, dt.Module, line})
		}
		t.Render()
		fmt.Fprintf(f.out, "\n%s %d\n", headerStyle.Render("Total:"), resp.Count)
	}

	if len(resp.CollectionErrors) > 0 {
		fmt.Fprintf(f.out, "\n%s\n", failStyle.Render("Collection errors:"))
		for _, ce := range resp.CollectionErrors {
			fmt.Fprintf(f.out, "  %s\n", f.truncate(ce))
		}
	}
	return nil
}

// Execute prints an execute-tests response. The captured go test output is
// only shown when verbose is set.
func (f *Formatter) Execute(resp *api.ExecuteTestsResponse, verbose bool) error {
	if f.format != OutputFormatTable {
		return f.structured(resp)
	}

	if verbose && resp.TextOutput != "" {
		fmt.Fprint(f.out, dimStyle.Render(strings.TrimRight(resp.TextOutput, "\n")))
		fmt.Fprintln(f.out)
		fmt.Fprintln(f.out)
	}

	for _, tr := range resp.Tests {
		fmt.Fprintln(f.out, f.ResultLine(tr))
		if tr.Outcome == api.OutcomeFailed || tr.Outcome == api.OutcomeErrored {
			for _, line := range strings.Split(tr.Message, "\n") {
				if line != "" {
					fmt.Fprintf(f.out, "    %s\n", f.truncate(line))
				}
			}
		}
	}
	if len(resp.Tests) > 0 {
		fmt.Fprintln(f.out)
	}
	fmt.Fprintln(f.out, f.SummaryLine(resp))
	return nil
}

// ResultLine renders one result as "STATUS node_id (1.23s)".
func (f *Formatter) ResultLine(tr api.TestResult) string {
	return fmt.Sprintf("%s %s %s", outcomeLabel(tr.Outcome), tr.NodeID, dimStyle.Render(fmt.Sprintf("(%.2fs)", tr.Duration)))
}

// SummaryLine renders the counts and the exit code.
func (f *Formatter) SummaryLine(resp *api.ExecuteTestsResponse) string {
	s := resp.Summary
	parts := []string{
		passStyle.Render(fmt.Sprintf("%d passed", s.Passed)),
		failStyle.Render(fmt.Sprintf("%d failed", s.Failed)),
	}
	if s.Errors > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d errors", s.Errors)))
	}
	if s.Skipped > 0 {
		parts = append(parts, skipStyle.Render(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	return fmt.Sprintf("%s %s in %.2fs (exit %d: %s)",
		headerStyle.Render(fmt.Sprintf("%d tests:", s.Total)),
		strings.Join(parts, ", "),
		s.Duration, resp.ExitCode, resp.ExitCode)
}

// Tools prints the tool catalog.
func (f *Formatter) Tools(tools []api.Tool) error {
	if f.format != OutputFormatTable {
		return f.structured(tools)
	}
	t := f.newTable()
	t.AppendHeader(table.Row{"NAME", "ARGUMENTS", "DESCRIPTION"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: 60}})
	for _, tool := range tools {
		t.AppendRow(table.Row{tool.Name, strings.Join(schemaProperties(tool.InputSchema), ", "), tool.Description})
	}
	t.Render()
	return nil
}

// Raw prints a JSON text payload, for responses of unknown shape.
func (f *Formatter) Raw(payload string) error {
	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		fmt.Fprintln(f.out, payload)
		return nil
	}
	if f.format == OutputFormatYAML {
		return f.structured(data)
	}
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *Formatter) structured(v any) error {
	switch f.format {
	case OutputFormatYAML:
		// Round-trip through JSON so YAML keys match the wire names.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return fmt.Errorf("failed to convert to YAML: %w", err)
		}
		_, err = f.out.Write(out)
		return err
	default:
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func (f *Formatter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatUpper
	return t
}

func (f *Formatter) truncate(line string) string {
	if f.width <= 0 || runewidth.StringWidth(line) <= f.width {
		return line
	}
	return runewidth.Truncate(line, f.width-1, "") + "…"
}

func outcomeLabel(o api.Outcome) string {
	switch o {
	case api.OutcomePassed:
		return passStyle.Render("PASS   ")
	case api.OutcomeFailed:
		return failStyle.Render("FAIL   ")
	case api.OutcomeErrored:
		return errorStyle.Render("ERROR  ")
	case api.OutcomeSkipped:
		return skipStyle.Render("SKIP   ")
	default:
		return strings.ToUpper(string(o))
	}
}

// FailedNodeIDs lists the node ids that failed or errored, in result order.
func FailedNodeIDs(resp *api.ExecuteTestsResponse) []string {
	var ids []string
	for _, tr := range resp.Tests {
		if tr.Outcome == api.OutcomeFailed || tr.Outcome == api.OutcomeErrored {
			ids = append(ids, tr.NodeID)
		}
	}
	return ids
}

func schemaProperties(schema json.RawMessage) []string {
	var parsed struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(schema, &parsed); err != nil {
		return nil
	}
	names := make([]string, 0, len(parsed.Properties))
	for name := range parsed.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
