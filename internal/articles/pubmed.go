// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package articles

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

// medlineYearRe finds a year inside free-text MedlineDate values such as
// "2019 Nov-Dec".
var medlineYearRe = regexp.MustCompile(`\d{4}`)

// PubMedParser reads PubmedArticleSet files. Each PubmedArticle element is
// decoded independently so large baseline files are streamed.
type PubMedParser struct{}

// Schema implements Parser.
func (PubMedParser) Schema() types.Schema { return types.SchemaPubMed }

// Parse implements Parser. A decoding error anywhere in the file discards
// the whole file.
func (p PubMedParser) Parse(r io.Reader, _ Options) ([]types.Article, error) {
	d := newDecoder(r)
	var out []types.Article
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "PubmedArticle" {
			continue
		}
		var el element
		if err := d.DecodeElement(&el, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if a, ok := p.article(&el); ok {
			out = append(out, a)
		}
	}
}

// article converts one PubmedArticle subtree. It returns false when the
// record is excluded or has no abstract.
func (PubMedParser) article(el *element) (types.Article, bool) {
	if excluded(publicationTypes(el.findAll("PublicationTypeList/PublicationType"))) {
		return types.Article{}, false
	}

	segments := el.findAll("Abstract/AbstractText")
	if len(segments) == 0 {
		return types.Article{}, false
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := seg.joinedText("")
		if label := seg.attr("Label"); label != "" {
			parts = append(parts, label+": "+text)
			continue
		}
		parts = append(parts, text)
	}
	abstract := strings.Join(parts, " ")
	if strings.TrimSpace(abstract) == "" {
		return types.Article{}, false
	}

	a := types.Article{
		Schema:    types.SchemaPubMed,
		Abstract:  abstract,
		MeSHTerms: terms(el.findAll("MeshHeadingList/MeshHeading/DescriptorName")),
	}
	if pmid := el.first("PMID"); pmid != nil {
		a.ID = strings.TrimSpace(pmid.joinedText(""))
	}
	if title := el.first("ArticleTitle"); title != nil {
		a.Title = strings.TrimSpace(title.joinedText(""))
	}
	if pubDate := el.first("PubDate"); pubDate != nil {
		a.PublicationYear = pubMedYear(pubDate)
	}
	return a, true
}

// pubMedYear reads the Year child when it is all digits, otherwise the first
// four-digit run in MedlineDate.
func pubMedYear(pubDate *element) *int {
	if years := pubDate.children("Year"); len(years) > 0 {
		if text := years[0].leadingText(); isDigits(text) {
			if y, err := strconv.Atoi(text); err == nil {
				return &y
			}
		}
	}
	if dates := pubDate.children("MedlineDate"); len(dates) > 0 {
		if m := medlineYearRe.FindString(dates[0].leadingText()); m != "" {
			y, _ := strconv.Atoi(m)
			return &y
		}
	}
	return nil
}
