package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/applyload/internal/campaign"
	"github.com/wesleyorama2/applyload/internal/session"
)

// Format selects how the final summary is rendered.
type Format string

const (
	// FormatText is the human-readable summary.
	FormatText Format = "text"
	// FormatJSON renders the summary as indented JSON.
	FormatJSON Format = "json"
	// FormatYAML renders the summary as YAML.
	FormatYAML Format = "yaml"
)

// Formats lists the accepted summary formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown summary format %q (want text, json or yaml)", s)
}

// Summary is the machine-readable end-of-campaign report.
type Summary struct {
	Campaign  string           `json:"campaign" yaml:"campaign"`
	Phase     string           `json:"phase" yaml:"phase"`
	StartedAt string           `json:"startedAt" yaml:"startedAt"`
	WallTime  string           `json:"wallTime" yaml:"wallTime"`
	Launched  int64            `json:"launched" yaml:"launched"`
	Completed int64            `json:"completed" yaml:"completed"`
	Failed    int64            `json:"failed" yaml:"failed"`
	Cancelled int64            `json:"cancelled" yaml:"cancelled"`
	Outcomes  map[string]int64 `json:"outcomes" yaml:"outcomes"`

	Interrupted bool             `json:"interrupted" yaml:"interrupted"`
	Throttle    *ThrottleSummary `json:"throttle,omitempty" yaml:"throttle,omitempty"`
}

// ThrottleSummary reports the campaign-wide request cap.
type ThrottleSummary struct {
	Rate     float64 `json:"rate" yaml:"rate"`
	Admitted int64   `json:"admitted" yaml:"admitted"`
	Waited   string  `json:"waited" yaml:"waited"`
}

// NewSummary converts a campaign snapshot.
func NewSummary(snap campaign.Snapshot) Summary {
	outcomes := make(map[string]int64, len(snap.Outcomes))
	for status, n := range snap.Outcomes {
		outcomes[string(status)] = n
	}

	startedAt := ""
	if !snap.StartedAt.IsZero() {
		startedAt = snap.StartedAt.Format(time.RFC3339)
	}

	summary := Summary{
		Campaign:  snap.ID,
		Phase:     snap.Phase.String(),
		StartedAt: startedAt,
		WallTime:  snap.WallTime.Round(time.Millisecond).String(),
		Launched:  snap.Launched,
		Completed: snap.Completed,
		Failed:    snap.Failed,
		Cancelled: snap.Cancelled,
		Outcomes:  outcomes,

		Interrupted: snap.Interrupted,
	}
	if t := snap.Throttle; t != nil {
		summary.Throttle = &ThrottleSummary{
			Rate:     t.Rate,
			Admitted: t.Admitted,
			Waited:   t.Waited.Round(time.Millisecond).String(),
		}
	}
	return summary
}

// PrintSummary writes the final report for snap in format.
func PrintSummary(w io.Writer, snap campaign.Snapshot, format Format, colors *ColorScheme) error {
	summary := NewSummary(snap)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		if colors == nil {
			colors = SchemeFor(w)
		}
		printTextSummary(w, snap, colors)
		return nil
	default:
		return fmt.Errorf("unknown summary format %q", format)
	}
}

func printTextSummary(w io.Writer, snap campaign.Snapshot, colors *ColorScheme) {
	rule := colors.Rule.Sprint(strings.Repeat("━", 56))

	status := colors.Success.Sprint("Completed")
	if snap.Interrupted || snap.Cancelled > 0 {
		status = colors.Warn.Sprint("Interrupted")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Campaign %s - %s\n", colors.Highlight.Sprint(snap.ID), status)
	fmt.Fprintln(w, rule)

	row := func(label string, value string) {
		fmt.Fprintf(w, "%s %s\n", colors.Label.Sprintf("%-12s", label+":"), value)
	}
	row("Duration", colors.Value.Sprint(formatDuration(snap.WallTime)))
	row("Launched", colors.Value.Sprint(formatNumber(snap.Launched)))
	row("Completed", colors.Success.Sprint(formatNumber(snap.Completed)))

	failed := colors.Success.Sprint(formatNumber(snap.Failed))
	if snap.Failed > 0 {
		failed = colors.Error.Sprint(formatNumber(snap.Failed))
	}
	row("Failed", failed)
	if snap.Cancelled > 0 {
		row("Cancelled", colors.Warn.Sprint(formatNumber(snap.Cancelled)))
	}
	if t := snap.Throttle; t != nil {
		row("Throttle", colors.Value.Sprintf("%g req/s, %s requests held %s",
			t.Rate, formatNumber(t.Admitted), formatDuration(t.Waited)))
	}

	if len(snap.Outcomes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, colors.Label.Sprint("Decisions:"))

		statuses := make([]session.OfferStatus, 0, len(snap.Outcomes))
		for status := range snap.Outcomes {
			statuses = append(statuses, status)
		}
		sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
		for _, status := range statuses {
			fmt.Fprintf(w, "  %-12s %s\n", status, formatNumber(snap.Outcomes[status]))
		}
	}
	fmt.Fprintln(w)
}
