package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrProviderUnavailable = errors.New("provider not available")
	ErrSlotTaken           = errors.New("slot not available")
)

const providerColumns = `id, name, email, image, speciality, degree, experience, about, fees, available, address, slots_booked`

type ProviderRepository struct {
	db db.Querier
}

func NewProviderRepository(q db.Querier) *ProviderRepository {
	return &ProviderRepository{db: q}
}

// List returns every provider ordered by name. Booked slots are included so callers
// can compute availability without a second read.
func (r *ProviderRepository) List(ctx context.Context) ([]model.Provider, error) {
	rows, err := r.db.Query(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *ProviderRepository) Provider(ctx context.Context, id string) (model.Provider, error) {
	p, err := scanProvider(r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Provider{}, ErrNotFound
	}
	return p, err
}

func (r *ProviderRepository) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Provider, error) {
	p, err := scanProvider(tx.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Provider{}, ErrNotFound
	}
	return p, err
}

func (r *ProviderRepository) saveSlots(ctx context.Context, tx pgx.Tx, id string, slots model.BookedSlots) error {
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE providers SET slots_booked = $2, updated_at = now() WHERE id = $1`, id, raw)
	return err
}

func scanProvider(row pgx.Row) (model.Provider, error) {
	var (
		p       model.Provider
		address []byte
		slots   []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Image, &p.Speciality, &p.Degree, &p.Experience, &p.About,
		&p.Fees, &p.Available, &address, &slots)
	if err != nil {
		return model.Provider{}, err
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &p.Address); err != nil {
			return model.Provider{}, fmt.Errorf("decode address of provider %s: %w", p.ID, err)
		}
	}
	p.SlotsBooked = model.BookedSlots{}
	if len(slots) > 0 {
		if err := json.Unmarshal(slots, &p.SlotsBooked); err != nil {
			return model.Provider{}, fmt.Errorf("decode slots of provider %s: %w", p.ID, err)
		}
	}
	return p, nil
}
