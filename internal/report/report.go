// Package report renders evaluation results as a table, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/Antonio-Ardigo/Remote-Project/internal/application"
	"github.com/Antonio-Ardigo/Remote-Project/internal/domain"
)

// Format is an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format name. An empty name selects the table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
}

// Renderer writes results in one format.
type Renderer struct {
	Format Format
	Writer io.Writer
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(format Format, w io.Writer) *Renderer {
	return &Renderer{Format: format, Writer: w}
}

// MethodStatus describes one configured method for the methods listing.
type MethodStatus struct {
	Method   domain.Method `json:"method" yaml:"method"`
	Priority int           `json:"priority" yaml:"priority"`
	Backend  string        `json:"backend" yaml:"backend"`
	Model    string        `json:"model,omitempty" yaml:"model,omitempty"`
	Ready    bool          `json:"ready" yaml:"ready"`
	Reason   string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Selection renders the result of one round.
func (r *Renderer) Selection(sel *domain.Selection) error {
	switch r.Format {
	case FormatJSON:
		return r.json(sel)
	case FormatYAML:
		return r.yaml(sel)
	}

	r.printf("Round %s (%s)\n", sel.RoundID, sel.Mode)
	r.printf("Winner: %s\n", sel.Winner)
	r.printf("Ensemble: %s  Judge: %s\n\n", yesNo(sel.Ensemble), judgeStatus(sel))

	rows := make([][]string, 0, len(sel.Candidates))
	for _, b := range sel.Candidates {
		rows = append(rows, []string{
			strconv.Itoa(b.Rank),
			b.Method.String(),
			score(b.HeuristicComposite),
			optional(b.Agreement),
			score(b.Blend),
			optional(b.JudgeComposite),
			score(b.FinalScore),
			strconv.FormatInt(b.LatencyMs, 10) + "ms",
			flags(b),
		})
	}
	r.table([]string{"Rank", "Method", "Heuristic", "Agreement", "Blend", "Judge", "Final", "Latency", "Notes"}, rows)
	r.failures(sel.Failures)

	r.printf("\n%s\n", sel.WinnerText)
	return nil
}

// Document renders a translated document with a per-chunk summary.
func (r *Renderer) Document(res *application.DocumentResult) error {
	switch r.Format {
	case FormatJSON:
		return r.json(res)
	case FormatYAML:
		return r.yaml(res)
	}

	if res.Skipped {
		r.printf("Skipped: %s\n", res.SkipReason)
		return nil
	}

	rows := make([][]string, 0, len(res.Chunks))
	for _, c := range res.Chunks {
		if c.Selection == nil {
			rows = append(rows, []string{strconv.Itoa(c.Index + 1), "-", "-", "-", c.Error})
			continue
		}
		final := "-"
		if len(c.Selection.Candidates) > 0 {
			final = score(c.Selection.Candidates[0].FinalScore)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Index + 1),
			c.Selection.Winner.String(),
			final,
			judgeStatus(c.Selection),
			"",
		})
	}
	r.table([]string{"Chunk", "Winner", "Final", "Judge", "Error"}, rows)

	methods := make([]domain.Method, 0, len(res.MethodsUsed))
	for m := range res.MethodsUsed {
		methods = append(methods, m)
	}
	domain.SortByPriority(methods)
	used := make([]string, len(methods))
	for i, m := range methods {
		used[i] = fmt.Sprintf("%s=%d", m, res.MethodsUsed[m])
	}
	r.printf("\nChunks: %d  Failed: %d  Judged: %d  Methods: %s  Duration: %s\n",
		len(res.Chunks), res.Failed, res.Judged, strings.Join(used, " "), res.Duration.Round(time.Millisecond))

	r.printf("\n%s\n", res.Text)
	return nil
}

// Methods renders the configured methods.
func (r *Renderer) Methods(statuses []MethodStatus) error {
	switch r.Format {
	case FormatJSON:
		return r.json(statuses)
	case FormatYAML:
		return r.yaml(statuses)
	}

	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		status := "ready"
		if !s.Ready {
			status = "unavailable: " + s.Reason
		}
		rows = append(rows, []string{strconv.Itoa(s.Priority), s.Method.String(), s.Backend, s.Model, status})
	}
	r.table([]string{"Priority", "Method", "Backend", "Model", "Status"}, rows)
	return nil
}

func (r *Renderer) json(v any) error {
	enc := json.NewEncoder(r.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) yaml(v any) error {
	enc := yaml.NewEncoder(r.Writer)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(v)
}

func (r *Renderer) table(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(r.Writer)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}

func (r *Renderer) failures(failures map[domain.Method]string) {
	if len(failures) == 0 {
		return
	}
	methods := make([]domain.Method, 0, len(failures))
	for m := range failures {
		methods = append(methods, m)
	}
	domain.SortByPriority(methods)

	r.printf("\nFailed methods:\n")
	for _, m := range methods {
		r.printf("  %s: %s\n", m, failures[m])
	}
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.Writer, format, args...)
}

func score(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return score(*v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func judgeStatus(sel *domain.Selection) string {
	switch {
	case sel.Judged:
		return "judged"
	case sel.JudgeSkipReason != "":
		return "skipped (" + sel.JudgeSkipReason + ")"
	}
	return "skipped"
}

func flags(b domain.CandidateBreakdown) string {
	var notes []string
	if b.Malformed {
		notes = append(notes, "malformed")
	}
	if b.NativeConfidence != nil {
		notes = append(notes, "confidence "+score(*b.NativeConfidence))
	}
	return strings.Join(notes, ", ")
}
