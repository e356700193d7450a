// Package index builds a vector index over document texts and performs
// nearest-neighbor retrieval for a query.
//
// An Index is session-scoped: each request owns its own instance, so there is
// no process-global state to race on and tests can reset freely.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/formhive/form-agent/internal/common"
	"github.com/formhive/form-agent/internal/llm"
)

// Document is the unit of indexing. Every document fed into the index must
// carry a unique DocID.
type Document struct {
	DocID string
	Text  string
}

const defaultTopK = 3

// Index is a searchable collection of texts with vector embeddings.
type Index struct {
	st       *store
	embedder llm.Embedder
	logger   *slog.Logger
	built    bool
}

// New opens an index backed by the SQLite database at dbPath (in-memory when
// empty). The caller owns it and should Close it when the session ends.
func New(embedder llm.Embedder, dbPath string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	return &Index{st: st, embedder: embedder, logger: logger}, nil
}

func (ix *Index) Close() error { return ix.st.Close() }

// Build indexes the given documents. The first call embeds all texts in one
// batch; later calls embed and append each new document individually. The two
// paths intentionally use the embeddings API differently (batch vs per-item).
func (ix *Index) Build(ctx context.Context, docs []Document) error {
	// An empty build is a no-op: built flips only once something is indexed,
	// so Retrieve keeps failing loudly instead of returning nothing.
	if len(docs) == 0 {
		return nil
	}

	if !ix.built {
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		vecs, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return common.WrapError(err, "embed documents")
		}
		if len(vecs) != len(docs) {
			return fmt.Errorf("embedding count mismatch: %d != %d", len(vecs), len(docs))
		}
		for i, d := range docs {
			if err := ix.st.insert(ctx, d.DocID, d.Text, vecs[i]); err != nil {
				return err
			}
		}
		ix.built = true
		ix.logger.Info("index.built", "docs", len(docs))
		return nil
	}

	for _, d := range docs {
		vec, err := ix.embedder.EmbedQuery(ctx, d.Text)
		if err != nil {
			return common.WrapError(err, "embed document")
		}
		if err := ix.st.insert(ctx, d.DocID, d.Text, vec); err != nil {
			return err
		}
	}
	total, _ := ix.st.count(ctx)
	ix.logger.Info("index.extended", "docs", len(docs), "total", total)
	return nil
}

// Retrieve returns the k most relevant indexed texts for the query, most
// relevant first. Metadata is discarded: callers receive text content only.
// Calling Retrieve before any Build is a programming-sequence error.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if !ix.built {
		return nil, common.ErrNoIndex
	}
	if k <= 0 {
		k = defaultTopK
	}

	qvec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, common.WrapError(err, "embed query")
	}

	rows, err := ix.st.all(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(rows))
	for _, r := range rows {
		ranked = append(ranked, scored{text: r.Text, score: cosine(qvec, r.Embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, s := range ranked[:k] {
		out = append(out, s.text)
	}
	ix.logger.Debug("index.retrieve", "query_len", len(strings.TrimSpace(query)), "hits", len(out))
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
