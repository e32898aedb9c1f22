package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var providerCols = []string{"id", "name", "email", "image", "speciality", "degree", "experience", "about", "fees", "available", "address", "slots_booked"}

func providerRow(available bool, slots string) *pgxmock.Rows {
	return pgxmock.NewRows(providerCols).AddRow(
		"doc-1", "Dr. Rivera", "rivera@example.com", "", "Dermatologist", "MD", "4 Years", "",
		int64(500), available, []byte(`{"line1":"12 Main St"}`), []byte(slots),
	)
}

func newRepos(t *testing.T) (pgxmock.PgxPoolIface, *ProviderRepository, *AppointmentRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	providers := NewProviderRepository(mock)
	appts := NewAppointmentRepository(mock, providers, outbox.NewRepository())
	appts.now = func() time.Time { return time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC) }
	return mock, providers, appts
}

func TestProviderGet(t *testing.T) {
	mock, providers, _ := newRepos(t)
	mock.ExpectQuery("FROM providers WHERE id").WithArgs("doc-1").
		WillReturnRows(providerRow(true, `{"12_6_2024":["03:00 PM"]}`))

	p, err := providers.Provider(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Address.Line1 != "12 Main St" || p.Fees != 500 || !p.SlotsBooked.IsBooked("12_6_2024", "03:00 PM") {
		t.Fatalf("unexpected provider: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProviderGetNotFound(t *testing.T) {
	mock, providers, _ := newRepos(t)
	mock.ExpectQuery("FROM providers WHERE id").WithArgs("missing").WillReturnRows(pgxmock.NewRows(providerCols))

	if _, err := providers.Provider(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProviderListNullSlots(t *testing.T) {
	mock, providers, _ := newRepos(t)
	mock.ExpectQuery("FROM providers ORDER BY").WillReturnRows(providerRow(true, ``))

	list, err := providers.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].SlotsBooked == nil {
		t.Fatalf("expected one provider with an empty index, got %+v", list)
	}
}

func TestBookCommitsAppointmentSlotAndEvent(t *testing.T) {
	mock, _, appts := newRepos(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM providers WHERE id").WithArgs("doc-1").
		WillReturnRows(providerRow(true, `{"12_6_2024":["03:00 PM"]}`))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "user-1", "doc-1", "12_6_2024", "03:30 PM", int64(500), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE providers SET slots_booked").
		WithArgs("doc-1", []byte(`{"12_6_2024":["03:00 PM","03:30 PM"]}`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(pgxmock.AnyArg(), outbox.AggregateAppointment, pgxmock.AnyArg(), outbox.EventAppointmentRequested, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	appt, err := appts.Book(context.Background(), "user-1", model.BookingRequest{ProviderID: "doc-1", SlotDate: "12_6_2024", SlotTime: "03:30 PM"})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.ID == "" || appt.Amount != 500 || appt.SlotTime != "03:30 PM" {
		t.Fatalf("unexpected appointment: %+v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookRejects(t *testing.T) {
	cases := []struct {
		name      string
		available bool
		slots     string
		want      error
	}{
		{name: "slot taken", available: true, slots: `{"12_6_2024":["03:30 PM"]}`, want: ErrSlotTaken},
		{name: "provider unavailable", available: false, slots: `{}`, want: ErrProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock, _, appts := newRepos(t)
			mock.ExpectBegin()
			mock.ExpectQuery("FROM providers WHERE id").WithArgs("doc-1").WillReturnRows(providerRow(tc.available, tc.slots))
			mock.ExpectRollback()

			_, err := appts.Book(context.Background(), "user-1", model.BookingRequest{ProviderID: "doc-1", SlotDate: "12_6_2024", SlotTime: "03:30 PM"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestBookUnknownProvider(t *testing.T) {
	mock, _, appts := newRepos(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM providers WHERE id").WithArgs("nope").WillReturnRows(pgxmock.NewRows(providerCols))
	mock.ExpectRollback()

	_, err := appts.Book(context.Background(), "user-1", model.BookingRequest{ProviderID: "nope", SlotDate: "12_6_2024", SlotTime: "03:30 PM"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	mock, _, appts := newRepos(t)
	created := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM appointments WHERE id").WithArgs("appt-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "provider_id", "slot_date", "slot_time", "amount", "payment", "cancelled", "completed", "created_at"}).
			AddRow("appt-1", "user-1", "doc-1", "12_6_2024", "03:00 PM", int64(500), false, false, false, created))
	mock.ExpectExec("UPDATE appointments SET cancelled").WithArgs("appt-1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("FROM providers WHERE id").WithArgs("doc-1").
		WillReturnRows(providerRow(true, `{"12_6_2024":["03:00 PM"],"13_6_2024":["10:00 AM"]}`))
	mock.ExpectExec("UPDATE providers SET slots_booked").
		WithArgs("doc-1", []byte(`{"13_6_2024":["10:00 AM"]}`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	appt, err := appts.Cancel(context.Background(), "appt-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !appt.Cancelled {
		t.Fatal("expected appointment to be cancelled")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	mock, _, appts := newRepos(t)
	paid := true
	mock.ExpectExec("UPDATE appointments").WithArgs("appt-1", &paid, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE appointments").WithArgs("gone", &paid, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := appts.UpdateStatus(context.Background(), "appt-1", &paid, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := appts.UpdateStatus(context.Background(), "gone", &paid, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
