// Package observability provides logger construction and formatted output
// utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/scholarship-agent/internal/ledger"
	"github.com/jonathan/scholarship-agent/internal/mapper"
	"github.com/jonathan/scholarship-agent/internal/navigator"
	"github.com/jonathan/scholarship-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip truncates s to n runes, marking the cut with "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintProfile outputs the applicant profile. Essay and transcript text is
// summarized, never printed.
func (p *Printer) PrintProfile(profile *types.Profile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	for _, attr := range types.ProfileAttributes {
		value := profile.Get(attr)
		if value == "" {
			value = "-"
		}
		sb.WriteString(fmt.Sprintf("%-13s %s\n", attr+":", value))
	}
	sb.WriteString(fmt.Sprintf("\nEssays:       %d\n", len(profile.Essays)))
	if profile.Transcript != "" {
		sb.WriteString(fmt.Sprintf("Transcript:   %d chars\n", len(profile.Transcript)))
	}
	if missing := profile.MissingRequired(); len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠ Missing required: %s\n", strings.Join(missing, ", ")))
	}

	p.printBox("APPLICANT PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCandidates outputs the candidate links found by discovery.
func (p *Printer) PrintCandidates(links []types.CandidateLink) {
	if len(links) == 0 {
		p.printBox("CANDIDATE LINKS", "No candidates found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d candidates:\n\n", len(links)))
	for i, link := range links {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, link.URL))
		if link.Status != types.StatusNone {
			sb.WriteString(fmt.Sprintf("    Status: %s\n", link.Status))
		}
		if link.Details != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", link.Details))
		}
	}

	p.printBox("CANDIDATE LINKS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintNavigation outputs where form discovery ended and the fields it saw.
func (p *Printer) PrintNavigation(res *navigator.Result) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Outcome:  %s\n", res.State.Terminal))
	sb.WriteString(fmt.Sprintf("Page:     %s\n", res.State.CurrentPage))
	sb.WriteString(fmt.Sprintf("Steps:    %d\n", res.State.StepCount))
	if len(res.Interrupts) > 0 {
		kinds := make([]string, len(res.Interrupts))
		for i, in := range res.Interrupts {
			kinds[i] = string(in)
		}
		sb.WriteString(fmt.Sprintf("Waited:   %s\n", strings.Join(kinds, ", ")))
	}

	if len(res.Fields) > 0 {
		sb.WriteString(fmt.Sprintf("\nFields (%d):\n", len(res.Fields)))
		count := min(len(res.Fields), maxItemsToShow*2)
		for i := 0; i < count; i++ {
			f := res.Fields[i]
			label := f.Label
			if label == "" {
				label = f.Selector
			}
			sb.WriteString(fmt.Sprintf("  • [%s] %s\n", f.Kind, label))
		}
		if len(res.Fields) > count {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(res.Fields)-count))
		}
	}

	p.printBox("FORM DISCOVERY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFillReport outputs every fill decision, including skips and failures.
func (p *Printer) PrintFillReport(report *mapper.Report) {
	if report == nil || len(report.Results) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Filled %d of %d fields:\n\n", report.Filled(), len(report.Results)))
	for _, r := range report.Results {
		label := r.Label
		if label == "" {
			label = r.Selector
		}
		switch r.Action {
		case mapper.ActionFilled:
			value := r.Value
			if len(value) > 30 {
				value = fmt.Sprintf("%d chars", len(value))
			}
			sb.WriteString(fmt.Sprintf("✓ %s = %s\n", label, value))
		case mapper.ActionFailed:
			sb.WriteString(fmt.Sprintf("✗ %s: %s\n", label, r.Reason))
		default:
			sb.WriteString(fmt.Sprintf("- %s: %s\n", label, r.Reason))
		}
	}

	p.printBox("FIELD MAPPING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLedger outputs the effective status of every recorded link.
func (p *Printer) PrintLedger(entries []ledger.Entry) {
	if len(entries) == 0 {
		p.printBox("LEDGER", "No links recorded")
		return
	}

	statuses := ledger.EffectiveStatuses(entries)
	var order []string
	seen := make(map[string]bool)
	for _, e := range entries {
		url := ledger.NormalizeURL(e.URL)
		if !seen[url] {
			seen[url] = true
			order = append(order, url)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d links, %d entries:\n\n", len(order), len(entries)))
	for _, url := range order {
		status := statuses[url]
		if status == types.StatusNone {
			status = "-"
		}
		sb.WriteString(fmt.Sprintf("%-10s %s\n", status, url))
	}

	p.printBox("LEDGER", strings.TrimSuffix(sb.String(), "\n"))
}
