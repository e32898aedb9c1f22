package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
)

const appointmentColumns = `id, user_id, provider_id, slot_date, slot_time, amount, payment, cancelled, completed, created_at`

type AppointmentRepository struct {
	db        db.Querier
	providers *ProviderRepository
	outbox    *outbox.Repository
	now       func() time.Time
}

func NewAppointmentRepository(q db.Querier, providers *ProviderRepository, events *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{db: q, providers: providers, outbox: events, now: time.Now}
}

type appointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	UserID        string `json:"user_id"`
	ProviderID    string `json:"provider_id"`
	SlotDate      string `json:"slot_date"`
	SlotTime      string `json:"slot_time"`
	Amount        int64  `json:"amount"`
}

// Book reserves req.SlotTime on req.SlotDate for userID. The provider row is locked
// for the duration of the transaction, so two concurrent requests for the same slot
// cannot both succeed: the loser gets ErrSlotTaken.
func (r *AppointmentRepository) Book(ctx context.Context, userID string, req model.BookingRequest) (model.Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	provider, err := r.providers.getForUpdate(ctx, tx, req.ProviderID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !provider.Available {
		return model.Appointment{}, ErrProviderUnavailable
	}
	if provider.SlotsBooked.IsBooked(req.SlotDate, req.SlotTime) {
		return model.Appointment{}, ErrSlotTaken
	}

	appt := model.Appointment{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProviderID: provider.ID,
		SlotDate:   req.SlotDate,
		SlotTime:   req.SlotTime,
		Amount:     provider.Fees,
		CreatedAt:  r.now().UTC(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, user_id, provider_id, slot_date, slot_time, amount, payment, cancelled, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, false, false, $7)
	`, appt.ID, appt.UserID, appt.ProviderID, appt.SlotDate, appt.SlotTime, appt.Amount, appt.CreatedAt)
	if err != nil {
		return model.Appointment{}, err
	}

	slots := provider.SlotsBooked.Clone()
	slots[req.SlotDate] = append(slots[req.SlotDate], req.SlotTime)
	if err := r.providers.saveSlots(ctx, tx, provider.ID, slots); err != nil {
		return model.Appointment{}, err
	}

	payload, err := json.Marshal(appointmentEvent{
		AppointmentID: appt.ID,
		UserID:        appt.UserID,
		ProviderID:    appt.ProviderID,
		SlotDate:      appt.SlotDate,
		SlotTime:      appt.SlotTime,
		Amount:        appt.Amount,
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if _, err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: outbox.AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentRequested,
		Payload:       payload,
	}); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// Cancel marks an appointment cancelled and releases its slot. Cancelling twice is a no-op.
func (r *AppointmentRepository) Cancel(ctx context.Context, appointmentID string) (model.Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Cancelled {
		return appt, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `UPDATE appointments SET cancelled = true WHERE id = $1`, appt.ID); err != nil {
		return model.Appointment{}, err
	}
	appt.Cancelled = true

	provider, err := r.providers.getForUpdate(ctx, tx, appt.ProviderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.Appointment{}, err
	}
	if err == nil {
		slots := provider.SlotsBooked.Clone()
		slots[appt.SlotDate] = removeTime(slots[appt.SlotDate], appt.SlotTime)
		if len(slots[appt.SlotDate]) == 0 {
			delete(slots, appt.SlotDate)
		}
		if err := r.providers.saveSlots(ctx, tx, provider.ID, slots); err != nil {
			return model.Appointment{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// UpdateStatus sets the payment and completed flags; nil leaves a flag unchanged.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, appointmentID string, payment, completed *bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET payment = COALESCE($2, payment),
			completed = COALESCE($3, completed)
		WHERE id = $1
	`, appointmentID, payment, completed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all appointments, newest first.
func (r *AppointmentRepository) List(ctx context.Context) ([]model.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY created_at DESC`)
}

func (r *AppointmentRepository) ListByUser(ctx context.Context, userID string) ([]model.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *AppointmentRepository) query(ctx context.Context, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.ProviderID, &a.SlotDate, &a.SlotTime, &a.Amount,
		&a.Payment, &a.Cancelled, &a.Completed, &a.CreatedAt)
	return a, err
}

func removeTime(times []string, slotTime string) []string {
	out := times[:0]
	for _, t := range times {
		if t != slotTime {
			out = append(out, t)
		}
	}
	return out
}
