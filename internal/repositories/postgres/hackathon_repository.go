package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hackstats/internal/model"
)

const insertHackathon = `
INSERT INTO hackathons (
	id, title, url, organization_name, location, open_state,
	submission_period_dates, prize_amount, prize_value,
	cash_prizes_count, other_prizes_count, registrations_count, themes,
	featured, winners_announced, invite_only, managed_by_devpost
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO NOTHING
RETURNING id`

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type HackathonRepository struct {
	db DBTX
}

func NewHackathonRepository(db DBTX) *HackathonRepository {
	return &HackathonRepository{db: db}
}

func (r *HackathonRepository) CreateIfNotExists(ctx context.Context, h model.Hackathon) (bool, error) {
	var id int64
	err := r.db.QueryRow(ctx, insertHackathon,
		h.ID, h.Title, h.URL, h.OrganizationName, h.Location, h.OpenState,
		h.SubmissionPeriodDates, h.PrizeAmount, h.PrizeValue(),
		h.CashPrizesCount, h.OtherPrizesCount, h.RegistrationsCount, h.Themes,
		h.Featured, h.WinnersAnnounced, h.InviteOnly, h.ManagedByDevpost,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
