// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package articles turns raw literature XML into normalized Article records
// and filters them by topic. Two schemas are supported: PubMed article sets,
// which carry many abstract-only records per file, and PMC JATS documents,
// which carry one full-text article per file.
package articles

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

// ErrMalformed marks a document that could not be decoded as XML.
var ErrMalformed = errors.New("malformed XML")

// Options control optional extraction work.
type Options struct {
	// IncludeBody extracts full body text where the schema carries one.
	IncludeBody bool
}

// Parser turns one XML document into zero or more Articles. Records that
// lack an abstract or carry an excluded publication type are dropped
// silently; they are never an error.
type Parser interface {
	Schema() types.Schema
	Parse(r io.Reader, opts Options) ([]types.Article, error)
}

// ParseFile opens path and runs p over it.
func ParseFile(p Parser, path string, opts Options) ([]types.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	arts, err := p.Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return arts, nil
}

// newDecoder returns a strict decoder that also resolves HTML named
// entities, which appear in JATS full text.
func newDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.Strict = true
	d.Entity = xml.HTMLEntity
	return d
}

// excluded reports whether any publication type is in the excluded set.
func excluded(pubTypes []string) bool {
	for _, pt := range pubTypes {
		for _, ex := range types.ExcludedPublicationTypes {
			if pt == ex {
				return true
			}
		}
	}
	return false
}

// publicationTypes collects trimmed, lower-cased, non-empty text of els.
func publicationTypes(els []*element) []string {
	var out []string
	for _, el := range els {
		if t := strings.ToLower(strings.TrimSpace(el.joinedText(""))); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// terms collects trimmed, non-empty text of els. It returns nil, not an
// empty slice, when nothing is found.
func terms(els []*element) []string {
	var out []string
	for _, el := range els {
		if t := strings.TrimSpace(el.joinedText("")); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
