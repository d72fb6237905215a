package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

const (
	formatTableStringConstant = "table"
	formatYAMLStringConstant  = "yaml"
	formatJSONStringConstant  = "json"

	unsupportedFormatTemplateConstant  = "unsupported report format %q (expected table, yaml, or json)"
	writerNotConfiguredMessageConstant = "report writer not configured"
	renderFailureTemplateConstant      = "render %s report: %w"

	headlineTemplateConstant         = "Transplant %s: %s (%s) -> %s (%s)"
	dryRunSuffixConstant             = " [dry run]"
	summaryTemplateConstant          = "%s planned, %s created, %s skipped, %s failed in %s"
	lastTransplantedTemplateConstant = "Last transplanted source commit: %s"
	stepsTitleConstant               = "Steps"
	warningsTitleConstant            = "Warnings"
	errorsTitleConstant              = "Errors"
	emptyPlanMessageConstant         = "No commits touch the requested files."
	jsonIndentConstant               = "  "
	yamlIndentConstant               = 2
	subjectWidthLimitConstant        = 60
	subjectTruncationConstant        = "..."
	elapsedRoundingConstant          = time.Millisecond
	blankCellConstant                = ""
	lineBreakConstant                = "\n"
	outcomeReasonTemplateConstant    = "%s (%s)"
)

// Format selects the report encoding.
type Format string

// Supported report formats.
const (
	FormatTable Format = Format(formatTableStringConstant)
	FormatYAML  Format = Format(formatYAMLStringConstant)
	FormatJSON  Format = Format(formatJSONStringConstant)
)

// ErrWriterNotConfigured indicates the renderer was built without an output writer.
var ErrWriterNotConfigured = errors.New(writerNotConfiguredMessageConstant)

// ParseFormat converts a textual format into a Format.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatYAML:
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf(unsupportedFormatTemplateConstant, value)
	}
}

// Renderer writes reports to an output stream.
type Renderer struct {
	writer   io.Writer
	format   Format
	colorize bool
	clock    func() time.Time
}

// NewRenderer constructs a Renderer. Colors apply to the table format only.
func NewRenderer(writer io.Writer, format Format, colorize bool) (*Renderer, error) {
	if writer == nil {
		return nil, ErrWriterNotConfigured
	}
	parsedFormat, formatError := ParseFormat(string(format))
	if formatError != nil {
		return nil, formatError
	}
	return &Renderer{writer: writer, format: parsedFormat, colorize: colorize, clock: time.Now}, nil
}

// WithClock returns a copy of the renderer that measures relative times against clock.
func (renderer *Renderer) WithClock(clock func() time.Time) *Renderer {
	copied := *renderer
	if clock != nil {
		copied.clock = clock
	}
	return &copied
}

// Render writes the report.
func (renderer *Renderer) Render(runReport Report) error {
	var renderError error
	switch renderer.format {
	case FormatYAML:
		renderError = renderer.renderYAML(runReport)
	case FormatJSON:
		renderError = renderer.renderJSON(runReport)
	default:
		renderError = renderer.renderTable(runReport)
	}
	if renderError != nil {
		return fmt.Errorf(renderFailureTemplateConstant, renderer.format, renderError)
	}
	return nil
}

func (renderer *Renderer) renderYAML(runReport Report) error {
	encoder := yaml.NewEncoder(renderer.writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(runReport); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func (renderer *Renderer) renderJSON(runReport Report) error {
	encoder := json.NewEncoder(renderer.writer)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(runReport)
}

func (renderer *Renderer) renderTable(runReport Report) error {
	sections := []string{renderer.headline(runReport)}

	if len(runReport.Plan) == 0 {
		sections = append(sections, emptyPlanMessageConstant)
	} else {
		sections = append(sections, renderer.stepsTable(runReport))
	}
	if len(runReport.Warnings) > 0 {
		sections = append(sections, renderer.warningsTable(runReport.Warnings))
	}
	if len(runReport.Errors) > 0 {
		sections = append(sections, renderer.errorsTable(runReport.Errors))
	}

	sections = append(sections, renderer.summary(runReport))
	if !runReport.LastTransplanted.IsZero() {
		sections = append(sections, fmt.Sprintf(lastTransplantedTemplateConstant, runReport.LastTransplanted.Short()))
	}

	_, writeError := io.WriteString(renderer.writer, strings.Join(sections, lineBreakConstant+lineBreakConstant)+lineBreakConstant)
	return writeError
}

func (renderer *Renderer) headline(runReport Report) string {
	headline := fmt.Sprintf(headlineTemplateConstant,
		renderer.statusColor(runReport.Status).Sprint(runReport.Status),
		runReport.SourceRepository, runReport.Branch,
		runReport.TargetRepository, runReport.TargetBranch,
	)
	if runReport.DryRun {
		headline += dryRunSuffixConstant
	}
	return headline
}

func (renderer *Renderer) stepsTable(runReport Report) string {
	stepsBySource := make(map[string]Step, len(runReport.Steps))
	for _, step := range runReport.Steps {
		stepsBySource[step.SourceID.String()] = step
	}

	tableWriter := newTableWriter(stepsTitleConstant)
	tableWriter.AppendHeader(table.Row{"#", "Source", "Author", "When", "Subject", "Outcome", "Target"})
	now := renderer.clock()
	for entryIndex, entry := range runReport.Plan {
		outcomeCell := blankCellConstant
		targetCell := blankCellConstant
		if step, found := stepsBySource[entry.SourceID.String()]; found {
			outcomeCell = renderer.describeOutcome(step)
			targetCell = step.TargetID.Short()
		}
		tableWriter.AppendRow(table.Row{
			entryIndex + 1,
			entry.SourceID.Short(),
			entry.Author,
			humanize.RelTime(entry.AuthorAt, now, "ago", "from now"),
			truncateSubject(entry.Subject),
			outcomeCell,
			targetCell,
		})
	}
	return tableWriter.Render()
}

func (renderer *Renderer) warningsTable(warnings []Warning) string {
	tableWriter := newTableWriter(warningsTitleConstant)
	tableWriter.AppendHeader(table.Row{"Kind", "Commit", "Path", "Message"})
	warningColor := renderer.newColor(color.FgYellow)
	for _, warning := range warnings {
		tableWriter.AppendRow(table.Row{warningColor.Sprint(warning.Kind), warning.CommitID.Short(), warning.Path, warning.Message})
	}
	return tableWriter.Render()
}

func (renderer *Renderer) errorsTable(conditions []Condition) string {
	tableWriter := newTableWriter(errorsTitleConstant)
	tableWriter.AppendHeader(table.Row{"Condition", "Commit", "Path", "Message"})
	errorColor := renderer.newColor(color.FgRed)
	for _, condition := range conditions {
		tableWriter.AppendRow(table.Row{errorColor.Sprint(condition.Name), condition.CommitID.Short(), condition.Path, condition.Message})
	}
	return tableWriter.Render()
}

func (renderer *Renderer) summary(runReport Report) string {
	elapsed := runReport.FinishedAt.Sub(runReport.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return fmt.Sprintf(summaryTemplateConstant,
		humanize.Comma(int64(len(runReport.Plan))),
		humanize.Comma(int64(runReport.Count(StepCreated))),
		humanize.Comma(int64(runReport.Count(StepSkipped))),
		humanize.Comma(int64(runReport.Count(StepFailed))),
		elapsed.Round(elapsedRoundingConstant),
	)
}

func (renderer *Renderer) describeOutcome(step Step) string {
	label := string(step.Outcome)
	if len(step.Reason) > 0 {
		label = fmt.Sprintf(outcomeReasonTemplateConstant, step.Outcome, step.Reason)
	}
	switch step.Outcome {
	case StepCreated:
		return renderer.newColor(color.FgGreen).Sprint(label)
	case StepFailed:
		return renderer.newColor(color.FgRed).Sprint(label)
	case StepSkipped:
		return renderer.newColor(color.FgYellow).Sprint(label)
	default:
		return renderer.newColor(color.FgCyan).Sprint(label)
	}
}

func (renderer *Renderer) statusColor(status Status) *color.Color {
	switch status {
	case StatusSuccess:
		return renderer.newColor(color.FgGreen, color.Bold)
	case StatusPartial:
		return renderer.newColor(color.FgYellow, color.Bold)
	default:
		return renderer.newColor(color.FgRed, color.Bold)
	}
}

func (renderer *Renderer) newColor(attributes ...color.Attribute) *color.Color {
	colored := color.New(attributes...)
	if renderer.colorize {
		colored.EnableColor()
	} else {
		colored.DisableColor()
	}
	return colored
}

func newTableWriter(title string) table.Writer {
	tableWriter := table.NewWriter()
	tableWriter.SetTitle(title)
	tableWriter.SetStyle(table.StyleLight)
	tableWriter.Style().Options.SeparateRows = false
	return tableWriter
}

func truncateSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) <= subjectWidthLimitConstant {
		return subject
	}
	return string(runes[:subjectWidthLimitConstant-len(subjectTruncationConstant)]) + subjectTruncationConstant
}
