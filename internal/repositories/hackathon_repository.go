package repositories

import (
	"context"

	"hackstats/internal/model"
)

// HackathonRepository archives fetched listings keyed by their Devpost ID.
type HackathonRepository interface {
	CreateIfNotExists(ctx context.Context, h model.Hackathon) (bool, error)
}
