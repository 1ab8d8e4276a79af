package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mediclaim/claims-cli/internal/catalog"
	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/oracle"
	"github.com/mediclaim/claims-cli/internal/resilience"
	"github.com/mediclaim/claims-cli/internal/store"
	anthropicpkg "github.com/mediclaim/claims-cli/pkg/anthropic"
	geminipkg "github.com/mediclaim/claims-cli/pkg/gemini"
)

func initStore() (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(context.Background(), cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func retryConfig() resilience.RetryConfig {
	return resilience.FromRetryConfig(cfg.Oracles.RetryMaxAttempts, cfg.Oracles.RetryBackoffMs, 0, 0, -1)
}

func newGeminiOracle() *oracle.Gemini {
	client := geminipkg.NewClient(cfg.Gemini.Key, geminipkg.WithBaseURL(cfg.Gemini.BaseURL))
	return oracle.NewGemini(client,
		oracle.WithGeminiModels(cfg.Gemini.Model, cfg.Gemini.ProModel),
		oracle.WithGeminiRPS(cfg.Gemini.RPS),
		oracle.WithGeminiRetry(retryConfig()),
	)
}

func newOpenAIOracle() *oracle.OpenAI {
	return oracle.NewOpenAI(goopenai.NewClient(cfg.OpenAI.Key),
		oracle.WithOpenAIModels(cfg.OpenAI.Model, cfg.OpenAI.EmbeddingModel),
		oracle.WithOpenAIRPS(cfg.OpenAI.RPS),
		oracle.WithOpenAIRetry(retryConfig()),
	)
}

func newAnthropicOracle() *oracle.Anthropic {
	return oracle.NewAnthropic(anthropicpkg.NewClient(cfg.Anthropic.Key),
		oracle.WithAnthropicModel(cfg.Anthropic.Model),
		oracle.WithAnthropicRPS(cfg.Anthropic.RPS),
		oracle.WithAnthropicRetry(retryConfig()),
	)
}

// extractionProviders builds the configured extraction oracle set in the
// configured priority order.
func extractionProviders() ([]oracle.ExtractionOracle, error) {
	providers := make([]oracle.ExtractionOracle, 0, len(cfg.Oracles.ExtractProviders))
	for _, name := range cfg.Oracles.ExtractProviders {
		switch name {
		case "gemini":
			providers = append(providers, newGeminiOracle())
		case "openai":
			providers = append(providers, newOpenAIOracle())
		case "anthropic":
			providers = append(providers, newAnthropicOracle())
		default:
			return nil, eris.Errorf("unknown extract provider %s", name)
		}
	}
	return providers, nil
}

// initCatalog builds the embedding-backed normalization service. The catalog
// is embedded at startup, so this makes one embeddings call per process.
func initCatalog(ctx context.Context) (*catalog.Service, error) {
	items, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	return catalog.NewService(ctx, newOpenAIOracle(), items,
		catalog.WithThreshold(cfg.Catalog.MatchThreshold),
		catalog.WithCacheTTL(time.Duration(cfg.Catalog.CacheTTLHours)*time.Hour),
	)
}

// newAdjudicationProvider wires the primary-with-fallback reasoning provider
// used for rule matching, rule application, and the sanity review.
func newAdjudicationProvider() *oracle.Failover {
	return oracle.NewFailover(newGeminiOracle(), newOpenAIOracle())
}

// loadDocument reads the bill input. A single .json path is a pre-extracted
// canonical record; anything else is one or more JPEG page images of one
// bill.
func loadDocument(paths []string) (*model.ExtractionRecord, *oracle.Document, error) {
	if len(paths) == 0 {
		return nil, nil, eris.New("no bill input given")
	}

	if len(paths) == 1 && strings.EqualFold(filepath.Ext(paths[0]), ".json") {
		data, err := os.ReadFile(paths[0])
		if err != nil {
			return nil, nil, eris.Wrap(err, "read bill record")
		}
		var rec model.ExtractionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, nil, eris.Wrap(err, "parse bill record")
		}
		return &rec, nil, nil
	}

	doc := &oracle.Document{Name: filepath.Base(paths[0])}
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".jpg", ".jpeg":
		default:
			return nil, nil, eris.Errorf("unsupported bill input %s: expected .jpg/.jpeg page images or a single .json record", p)
		}
		page, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "read bill page %s", p)
		}
		doc.Pages = append(doc.Pages, page)
	}
	return nil, doc, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
