package catalog

import (
	"context"
	"math"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mediclaim/claims-cli/internal/oracle"
)

// DefaultMatchThreshold is the minimum cosine similarity between a raw
// description and its nearest catalog entry for the match to count.
const DefaultMatchThreshold = 0.5

const (
	defaultCacheTTL     = time.Hour
	defaultCacheCleanup = 10 * time.Minute
)

// Embedder turns texts into vectors. Implemented by the OpenAI adapter.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Service resolves raw bill descriptions against the master item catalog by
// nearest-neighbor search over embeddings. It is constructed once with the
// whole catalog pre-embedded and is safe for concurrent use; query embeddings
// are cached with expiry.
type Service struct {
	embedder  Embedder
	items     []Item
	vectors   [][]float32
	threshold float64
	cache     *gocache.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithThreshold overrides the minimum match similarity.
func WithThreshold(t float64) Option {
	return func(s *Service) { s.threshold = t }
}

// WithCacheTTL overrides how long query embeddings stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cache = gocache.New(ttl, defaultCacheCleanup) }
}

// NewService embeds the full catalog up front and returns a ready service.
// The embedding call is the expensive part of construction; callers should
// build one Service per process and share it.
func NewService(ctx context.Context, embedder Embedder, items []Item, opts ...Option) (*Service, error) {
	if embedder == nil {
		return nil, eris.New("catalog: embedder is required")
	}
	if len(items) == 0 {
		return nil, eris.New("catalog: empty item list")
	}

	s := &Service{
		embedder:  embedder,
		items:     items,
		threshold: DefaultMatchThreshold,
		cache:     gocache.New(defaultCacheTTL, defaultCacheCleanup),
	}
	for _, opt := range opts {
		opt(s)
	}

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	vectors, err := embedder.EmbedTexts(ctx, names)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: embed master item list")
	}
	if len(vectors) != len(items) {
		return nil, eris.Errorf("catalog: embedder returned %d vectors for %d items", len(vectors), len(items))
	}
	s.vectors = vectors

	zap.L().Info("catalog: normalization service ready",
		zap.Int("items", len(items)),
		zap.Float64("threshold", s.threshold),
	)
	return s, nil
}

// Classify resolves a raw description to its nearest catalog entry. A nil
// result with nil error means the best match fell below the threshold.
func (s *Service) Classify(ctx context.Context, description string) (*oracle.Classification, error) {
	query, err := s.embed(ctx, description)
	if err != nil {
		return nil, err
	}

	bestIdx, bestSim := -1, -1.0
	for i, vec := range s.vectors {
		if sim := cosine(query, vec); sim > bestSim {
			bestIdx, bestSim = i, sim
		}
	}
	if bestIdx < 0 || bestSim < s.threshold {
		zap.L().Debug("catalog: no confident match",
			zap.String("description", description),
			zap.Float64("best_similarity", bestSim),
		)
		return nil, nil
	}

	it := s.items[bestIdx]
	return &oracle.Classification{
		CanonicalID: it.ID,
		Name:        it.Name,
		Category:    it.Category,
	}, nil
}

// Similarity reports the cosine similarity of two descriptions, clamped to
// [0,1].
func (s *Service) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := s.embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.embed(ctx, b)
	if err != nil {
		return 0, err
	}
	sim := cosine(va, vb)
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, nil
}

// embed returns the cached embedding for text, calling the embedder on a miss.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]float32), nil
	}
	vectors, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: embed %q", text)
	}
	if len(vectors) != 1 {
		return nil, eris.Errorf("catalog: embedder returned %d vectors for one text", len(vectors))
	}
	s.cache.Set(key, vectors[0], gocache.DefaultExpiration)
	return vectors[0], nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var (
	_ oracle.NormalizationOracle = (*Service)(nil)
	_ oracle.SimilarityOracle    = (*Service)(nil)
)
