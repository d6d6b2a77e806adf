// Package cli renders search results and index status for the tansaku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/tansaku/internal/indexer"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// summaryFields are shown for each result, in this order, when present.
var summaryFields = []string{
	models.FieldCompany,
	models.FieldTypeName,
	models.FieldRam,
	models.FieldCpuBrand,
	models.FieldSSD,
	models.FieldHDD,
	models.FieldGpuBrand,
	models.FieldOs,
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (%d retrieved, %d after filters)\n",
		len(response.Results), response.QueryTime, response.Retrieved, response.Filtered)
	if response.ExpandedQuery != "" && response.ExpandedQuery != response.Query {
		fmt.Fprintf(w, "Expanded query: %s\n", response.ExpandedQuery)
	}
	if specs := FormatSpecs(response.Specs); specs != "" {
		fmt.Fprintf(w, "Parsed specs: %s\n", specs)
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Rerank: %.4f | Similarity: %.4f\n", result.Rank, result.RerankScore, result.Score)
		fmt.Fprintf(w, "ID: %s\n", result.ID)
		if summary := summarize(result.Record); summary != "" {
			fmt.Fprintf(w, "%s\n", summary)
		}
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Text, 200))
		fmt.Fprintln(w)
	}
}

func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for _, result := range response.Results {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\n", result.Rank, result.ID, result.RerankScore, summarize(result.Record))
	}
}

func summarize(r *models.Record) string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(summaryFields))
	for _, f := range summaryFields {
		if v := r.Field(f); v != "" && v != "0" {
			parts = append(parts, f+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

// FormatSpecs renders the non-null parsed specs as "key=value" pairs in key order.
func FormatSpecs(specs map[string]any) string {
	keys := make([]string, 0, len(specs))
	for k, v := range specs {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, specs[k])
	}
	return strings.Join(parts, " ")
}

// WriteStatus prints an index status report.
func WriteStatus(w io.Writer, st *indexer.Status) {
	fmt.Fprintf(w, "State:          %s\n", st.State)
	fmt.Fprintf(w, "Records:        %d\n", st.Records)
	fmt.Fprintf(w, "Vectors:        %d (%s)\n", st.Vectors, st.VectorIndexType)
	fmt.Fprintf(w, "Disk usage:     %s\n", FormatBytes(st.DiskUsageBytes))
	if m := st.Manifest; m != nil {
		fmt.Fprintf(w, "Build ID:       %s\n", m.BuildID)
		fmt.Fprintf(w, "Built at:       %s\n", m.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	}
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
