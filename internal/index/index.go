// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index is an in-memory vector index over Documents using
// brute-force cosine similarity. It is built once per question and
// discarded afterwards.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/biomed-rag/internal/llm"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// ErrDimension is returned when embeddings disagree in length.
var ErrDimension = errors.New("embedding dimension mismatch")

// Hit is one search result.
type Hit struct {
	Document types.Document
	Score    float64
}

// Index holds Documents and their embeddings.
type Index struct {
	emb     llm.Embedder
	docs    []types.Document
	vectors [][]float32
	norms   []float64
}

// Build embeds the content of every Document. An empty collection builds an
// empty index without calling the embedder.
func Build(ctx context.Context, emb llm.Embedder, docs []types.Document) (*Index, error) {
	ix := &Index{emb: emb, docs: docs}
	if len(docs) == 0 {
		return ix, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}
	if len(vecs) != len(docs) {
		return nil, fmt.Errorf("embedding %d documents: got %d vectors", len(docs), len(vecs))
	}

	dim := len(vecs[0])
	ix.norms = make([]float64, len(vecs))
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: document %d has %d, want %d", ErrDimension, i, len(v), dim)
		}
		ix.norms[i] = norm(v)
	}
	ix.vectors = vecs
	return ix, nil
}

// Len returns the number of indexed Documents.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Search returns at most k Documents most similar to probe, best first. Ties
// keep index order.
func (ix *Index) Search(ctx context.Context, probe string, k int) ([]Hit, error) {
	if k <= 0 || len(ix.docs) == 0 {
		return nil, nil
	}

	vecs, err := ix.emb.Embed(ctx, []string{probe})
	if err != nil {
		return nil, fmt.Errorf("embedding probe: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding probe: got %d vectors", len(vecs))
	}
	q := vecs[0]
	if len(q) != len(ix.vectors[0]) {
		return nil, fmt.Errorf("%w: probe has %d, index has %d", ErrDimension, len(q), len(ix.vectors[0]))
	}
	qn := norm(q)

	hits := make([]Hit, len(ix.docs))
	for i, v := range ix.vectors {
		hits[i] = Hit{Document: ix.docs[i], Score: cosine(q, v, qn, ix.norms[i])}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Documents returns the Documents of hits in order.
func Documents(hits []Hit) []types.Document {
	docs := make([]types.Document, len(hits))
	for i, h := range hits {
		docs[i] = h.Document
	}
	return docs
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
