package fetching

import (
	"context"

	"hackstats/internal/model"
)

type SiteScraper interface {
	Source() string
	Scrape(ctx context.Context) (model.FetchResult, error)
}

// Archive remembers every hackathon ever fetched. CreateIfNotExists reports
// whether the record was new.
type Archive interface {
	CreateIfNotExists(ctx context.Context, h model.Hackathon) (bool, error)
}

type Notifier interface {
	SendAlert(h model.Hackathon)
}
