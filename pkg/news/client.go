package news

import (
	"context"

	"narrativelens/internal/model"
)

// NewsClient pulls the latest market headlines from one provider.
type NewsClient interface {
	Fetch(ctx context.Context, limit int) ([]model.Headline, error)
	Name() string
}

// FetchAll queries every client and keeps going past provider failures. The
// returned map carries the error of each client that failed.
func FetchAll(ctx context.Context, clients []NewsClient, limit int) ([]model.Headline, map[string]error) {
	var headlines []model.Headline
	failed := make(map[string]error)

	for _, c := range clients {
		items, err := c.Fetch(ctx, limit)
		if err != nil {
			failed[c.Name()] = err
			continue
		}
		headlines = append(headlines, items...)
	}
	return headlines, failed
}
