// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chunk

import (
	"strings"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

// Documents converts one Article into Documents: one abstract Document with
// chunk_id -1, followed by one Document per body chunk with chunk_id 0..n-1.
// PubMed abstracts are prefixed with the title on their own line.
func Documents(a types.Article, s Splitter) []types.Document {
	meta := types.DocumentMetadata{
		Source: a.Schema,
		Title:  a.Title,
	}
	id := a.ID
	if id == "" {
		id = types.UnknownID
	}
	if a.Schema == types.SchemaPubMed {
		meta.PMID = id
	} else {
		meta.PMCID = id
	}

	var docs []types.Document

	if abstract := strings.TrimSpace(a.Abstract); abstract != "" {
		if a.Schema == types.SchemaPubMed {
			abstract = strings.TrimSpace(a.Title + "\n" + a.Abstract)
		}
		m := meta
		m.ChunkID = types.AbstractChunkID
		m.Section = types.SectionAbstract
		docs = append(docs, types.Document{Content: abstract, Metadata: m})
	}

	body := strings.TrimSpace(a.Body)
	if body == "" || s == nil {
		return docs
	}
	for i, text := range s.Split(body) {
		m := meta
		m.ChunkID = i
		m.Section = types.SectionBody
		docs = append(docs, types.Document{Content: strings.TrimSpace(text), Metadata: m})
	}
	return docs
}

// All converts every Article in order.
func All(arts []types.Article, s Splitter) []types.Document {
	var docs []types.Document
	for _, a := range arts {
		docs = append(docs, Documents(a, s)...)
	}
	return docs
}
