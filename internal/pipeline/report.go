// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

// Output formats accepted by WriteReport.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteReport renders r to w. The text format prints the summary, the
// evaluation (or the raw judge reply) and the KPI record.
func WriteReport(w io.Writer, r types.RunReport, format string) error {
	switch format {
	case "", FormatText:
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

func writeText(w io.Writer, r types.RunReport) error {
	var evaluation string
	switch {
	case r.Evaluation != nil:
		data, err := json.MarshalIndent(r.Evaluation, "", "  ")
		if err != nil {
			return err
		}
		evaluation = string(data)
	case r.EvaluationRaw != "":
		evaluation = r.EvaluationRaw
	default:
		evaluation = "(skipped)"
	}

	kpis, err := json.MarshalIndent(r.KPIs, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "\n--- Summary ---\n%s\n\n--- Evaluation ---\n%s\n\n--- KPIs ---\n%s\n",
		r.Summary, evaluation, kpis)
	return err
}
