// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

const unknownTitle = "Unknown Title"

// requestPromptTmpl is the user turn sent with the retrieved excerpts.
var requestPromptTmpl = template.Must(template.New("summary").Parse(`Research Question:
{{.Question}}

Scientific Articles:
{{.Excerpts}}

Please write a concise and informative summary (≤5,000 characters), tailored for a {{.Role}}, and cite sources using [PMID...] or [PMC...].

Focus **only** on answering the research question. Prioritize treatment options and clinically actionable insights. Avoid including unrelated background information, pathophysiology, etiology, or diagnosis unless directly relevant to understanding treatment decisions. The summary should be useful for a clinician in practice.`))

// CitationTag returns the label a Document is cited by. pos is the 1-based
// position of the Document in the retrieved list.
func CitationTag(meta types.DocumentMetadata, pos int) string {
	pmid := knownID(meta.PMID)
	pmcid := knownID(meta.PMCID)
	switch {
	case pmid != "" && !strings.HasPrefix(pmid, "PMID"):
		return "PMID" + pmid
	case pmcid != "" && !strings.HasPrefix(pmcid, "PMC"):
		return "PMC" + pmcid
	case pmid != "":
		return pmid
	case pmcid != "":
		return pmcid
	}
	return fmt.Sprintf("Doc%d", pos)
}

func knownID(id string) string {
	if id == types.UnknownID {
		return ""
	}
	return id
}

// Excerpts renders the retrieved Documents as tagged snippets in order.
func Excerpts(docs []types.Document) string {
	var b strings.Builder
	for i, d := range docs {
		title := d.Metadata.Title
		if title == "" {
			title = unknownTitle
		}
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n", CitationTag(d.Metadata, i+1), title, strings.TrimSpace(d.Content))
	}
	return b.String()
}

func renderRequest(role, question string, docs []types.Document) (string, error) {
	var buf bytes.Buffer
	err := requestPromptTmpl.Execute(&buf, struct {
		Role, Question, Excerpts string
	}{role, question, Excerpts(docs)})
	if err != nil {
		return "", fmt.Errorf("executing summary template: %w", err)
	}
	return buf.String(), nil
}
