// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package articles

import (
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

// pmcIDTypes are the article-id pub-id-type values that carry a PMC
// identifier, in preference order.
var pmcIDTypes = []string{"pmc", "pmcid"}

// PMCParser reads one JATS document per file. The article is either the
// root element or nested inside a wrapper such as pmc-articleset.
type PMCParser struct{}

// Schema implements Parser.
func (PMCParser) Schema() types.Schema { return types.SchemaPMC }

// Parse implements Parser. Malformed XML yields no articles and no error.
func (p PMCParser) Parse(r io.Reader, opts Options) ([]types.Article, error) {
	var root element
	if err := newDecoder(r).Decode(&root); err != nil {
		return nil, nil
	}

	art := &root
	if root.name != "article" {
		if art = root.first("article"); art == nil {
			return nil, nil
		}
	}

	a, ok := p.article(art, opts)
	if !ok {
		return nil, nil
	}
	return []types.Article{a}, nil
}

func (PMCParser) article(el *element, opts Options) (types.Article, bool) {
	absEl := el.first("abstract")
	if absEl == nil {
		return types.Article{}, false
	}
	abstract := strings.TrimSpace(absEl.joinedText(" "))
	if abstract == "" {
		return types.Article{}, false
	}

	// Only <publication-type> text excludes; the root article-type attribute
	// is not consulted.
	if excluded(publicationTypes(el.descendants("publication-type"))) {
		return types.Article{}, false
	}

	a := types.Article{
		Schema:   types.SchemaPMC,
		ID:       pmcID(el),
		Abstract: abstract,
		Keywords: terms(el.findAll("kwd-group/kwd")),
	}
	if titles := el.findAll("title-group/article-title"); len(titles) > 0 {
		a.Title = strings.TrimSpace(titles[0].joinedText(""))
	}
	if years := el.findAll("pub-date/year"); len(years) > 0 {
		if text := years[0].leadingText(); isDigits(text) {
			if y, err := strconv.Atoi(text); err == nil {
				a.PublicationYear = &y
			}
		}
	}
	if opts.IncludeBody {
		if body := el.first("body"); body != nil {
			a.Body = strings.TrimSpace(body.joinedText(" "))
		}
	}
	return a, true
}

// pmcID returns the first article-id whose pub-id-type names a PMC id.
func pmcID(el *element) string {
	ids := el.descendants("article-id")
	for _, want := range pmcIDTypes {
		for _, id := range ids {
			if id.attr("pub-id-type") == want {
				return strings.TrimSpace(id.joinedText(""))
			}
		}
	}
	return ""
}
