package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"narrativelens/internal/model"
)

type NarrativeStore interface {
	List(ctx context.Context) ([]model.Narrative, error)
	Get(ctx context.Context, id string) (*model.Narrative, error)
	ListEdges(ctx context.Context) ([]model.BeliefEdge, error)
	Ping(ctx context.Context) error
}

type NarrativeCache interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, value []byte) error
}

// Catalog reads narratives through the Redis cache when one is configured.
// Cache failures fall through to the database.
type Catalog struct {
	store NarrativeStore
	cache NarrativeCache
}

func NewCatalog(store NarrativeStore, cache NarrativeCache) *Catalog {
	return &Catalog{store: store, cache: cache}
}

func (c *Catalog) Narratives(ctx context.Context) ([]model.Narrative, error) {
	if c.cache != nil {
		data, err := c.cache.Get(ctx)
		if err != nil {
			slog.Warn("error reading narrative cache", "error", err)
		} else if data != nil {
			var cached []model.Narrative
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			slog.Warn("discarding corrupt narrative cache", "error", err)
		}
	}

	narratives, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		data, err := json.Marshal(narratives)
		if err == nil {
			err = c.cache.Set(ctx, data)
		}
		if err != nil {
			slog.Warn("error writing narrative cache", "error", err)
		}
	}

	return narratives, nil
}

func (c *Catalog) Narrative(ctx context.Context, id string) (*model.Narrative, error) {
	return c.store.Get(ctx, id)
}

func (c *Catalog) Edges(ctx context.Context) ([]model.BeliefEdge, error) {
	return c.store.ListEdges(ctx)
}

func (c *Catalog) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
