// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Schema identifies the XML encoding an article was read from. The value is
// also the document "source" tag carried into retrieval metadata.
type Schema string

const (
	// SchemaPubMed is the abstract-oriented PubmedArticleSet encoding.
	SchemaPubMed Schema = "PubMed"

	// SchemaPMC is the full-text JATS encoding used by PubMed Central.
	SchemaPMC Schema = "PMC"
)

// ExcludedPublicationTypes lists lower-cased publication types that disqualify
// an article regardless of its content.
var ExcludedPublicationTypes = []string{"letter", "comment"}

// Article is one normalized literature record. An Article is only produced
// when its abstract is non-empty and none of its publication types is excluded.
type Article struct {
	// Schema is the encoding the article was parsed from.
	Schema Schema `json:"schema" yaml:"schema"`

	// ID is the PMID (PubMed) or PMC identifier. Empty when the source has none.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Title is the article title, if present.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Abstract is the space-joined abstract text, with "Label: " prefixes on
	// labeled PubMed segments.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Body is the full text. Only PMC articles parsed with body extraction
	// enabled carry one.
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// MeSHTerms are the PubMed descriptor names. Nil when the record has none.
	MeSHTerms []string `json:"mesh_terms,omitempty" yaml:"mesh_terms,omitempty"`

	// Keywords are the PMC kwd-group terms. Nil when the record has none.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// PublicationYear is nil when no year could be derived.
	PublicationYear *int `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`
}

// Terms returns the controlled-vocabulary list used for topic matching:
// MeSH terms for PubMed records, keywords for PMC records.
func (a Article) Terms() []string {
	if a.MeSHTerms != nil {
		return a.MeSHTerms
	}
	return a.Keywords
}

// Section names the part of an article a Document was cut from.
type Section string

const (
	SectionAbstract Section = "abstract"
	SectionBody     Section = "body"
)

// AbstractChunkID is the chunk_id reserved for the abstract Document.
const AbstractChunkID = -1

// UnknownID is the identifier recorded when an article carries none.
const UnknownID = "unknown"

// DocumentMetadata is the provenance attached to every Document.
type DocumentMetadata struct {
	Source  Schema  `json:"source" yaml:"source"`
	PMID    string  `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	PMCID   string  `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`
	Title   string  `json:"title" yaml:"title"`
	ChunkID int     `json:"chunk_id" yaml:"chunk_id"`
	Section Section `json:"section" yaml:"section"`
}

// Document is a retrievable unit of text (an abstract or a body chunk) plus
// its provenance. Documents are immutable once created.
type Document struct {
	Content  string           `json:"content" yaml:"content"`
	Metadata DocumentMetadata `json:"metadata" yaml:"metadata"`
}
