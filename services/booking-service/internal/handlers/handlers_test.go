package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/storage"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

type fakeProviders struct {
	providers map[string]model.Provider
}

func (f *fakeProviders) List(context.Context) ([]model.Provider, error) {
	var out []model.Provider
	for _, p := range f.providers {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProviders) Provider(_ context.Context, id string) (model.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return model.Provider{}, storage.ErrNotFound
	}
	return p, nil
}

type fakeAppointments struct {
	booked    []model.BookingRequest
	bookedBy  []string
	bookErr   error
	all       []model.Appointment
	cancelled []string
}

func (f *fakeAppointments) Book(_ context.Context, userID string, req model.BookingRequest) (model.Appointment, error) {
	if f.bookErr != nil {
		return model.Appointment{}, f.bookErr
	}
	f.booked = append(f.booked, req)
	f.bookedBy = append(f.bookedBy, userID)
	return model.Appointment{ID: "appt-1", UserID: userID, ProviderID: req.ProviderID, SlotDate: req.SlotDate, SlotTime: req.SlotTime}, nil
}

func (f *fakeAppointments) Cancel(_ context.Context, id string) (model.Appointment, error) {
	for _, a := range f.all {
		if a.ID == id {
			f.cancelled = append(f.cancelled, id)
			a.Cancelled = true
			return a, nil
		}
	}
	return model.Appointment{}, storage.ErrNotFound
}

func (f *fakeAppointments) List(context.Context) ([]model.Appointment, error) { return f.all, nil }

func (f *fakeAppointments) ListByUser(_ context.Context, userID string) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.all {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeCache struct{ invalidated []string }

func (f *fakeCache) Invalidate(_ context.Context, id string) { f.invalidated = append(f.invalidated, id) }

type fixture struct {
	mux   *http.ServeMux
	appts *fakeAppointments
	cache *fakeCache
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providers := &fakeProviders{providers: map[string]model.Provider{
		"doc-1": {ID: "doc-1", Name: "Dr. Rivera", Available: true, Fees: 500, SlotsBooked: model.BookedSlots{"12_6_2024": {"03:00 PM"}}},
	}}
	f := &fixture{mux: http.NewServeMux(), appts: &fakeAppointments{}, cache: &fakeCache{}, now: testNow}

	ph := NewProviderHandler(providers, nil, logger)
	ph.now = func() time.Time { return f.now }
	bh := NewBookingHandler(f.appts, f.cache, nil, logger)
	bh.now = func() time.Time { return f.now }

	Register(f.mux, ph, bh, testSecret)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if role != "" {
		tok, err := auth.IssueHS256("user-1", role, time.Hour, testSecret)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set(auth.TokenHeader, tok)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) model.BookingAck {
	t.Helper()
	var ack model.BookingAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return ack
}

func TestSlotsWeek(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/public/providers/doc-1/slots?week=0", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Week    int  `json:"week"`
		AtStart bool `json:"at_start"`
		AtEnd   bool `json:"at_end"`
		Days    []struct {
			Key   string `json:"key"`
			Slots []struct {
				Time string `json:"time"`
			} `json:"slots"`
		} `json:"days"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.AtStart || resp.AtEnd || len(resp.Days) != 7 {
		t.Fatalf("unexpected page: %+v", resp)
	}
	if resp.Days[0].Key != "10_6_2024" || resp.Days[0].Slots[0].Time != "10:00 AM" || len(resp.Days[0].Slots) != 22 {
		t.Fatalf("unexpected first day: %+v", resp.Days[0])
	}
	if resp.Days[2].Key != "12_6_2024" || len(resp.Days[2].Slots) != 21 {
		t.Fatalf("booked slot should be excluded: %+v", resp.Days[2])
	}
	for _, s := range resp.Days[2].Slots {
		if s.Time == "03:00 PM" {
			t.Fatal("03:00 PM is booked on 12_6_2024")
		}
	}
}

func TestSlotsRejectsBadWeekAndUnknownProvider(t *testing.T) {
	f := newFixture(t)
	for _, week := range []string{"-1", "52", "x"} {
		if rec := f.do(t, http.MethodGet, "/api/v1/public/providers/doc-1/slots?week="+week, "", ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("week=%s: expected 400, got %d", week, rec.Code)
		}
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/public/providers/doc-9/slots", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/public/providers/doc-1/slots?week=51", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"at_end":true`) {
		t.Fatalf("last page should be served: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProvidersListAndGet(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/api/v1/public/providers", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"_id":"doc-1"`) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodGet, "/api/v1/public/providers/doc-1", "", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"slots_booked"`) {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
}

func TestBookRequiresCredential(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/user/book-appointment", `{"provider_id":"doc-1","slot_date":"12_6_2024","slot_time":"03:30 PM"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if ack := decodeAck(t, rec); ack.Success {
		t.Fatal("expected success=false")
	}
	if len(f.appts.booked) != 0 {
		t.Fatal("store must not be called")
	}
}

func TestBookSuccess(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/user/book-appointment", `{"provider_id":"doc-1","slot_date":"12_6_2024","slot_time":"03:30 PM"}`, auth.RolePatient)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ack := decodeAck(t, rec); !ack.Success || ack.Message != msgBooked {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if len(f.appts.booked) != 1 || f.appts.bookedBy[0] != "user-1" {
		t.Fatalf("unexpected store calls: %+v by %v", f.appts.booked, f.appts.bookedBy)
	}
	if len(f.cache.invalidated) != 1 || f.cache.invalidated[0] != "doc-1" {
		t.Fatalf("provider cache should be invalidated, got %v", f.cache.invalidated)
	}
}

func TestBookStoreRejections(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{storage.ErrSlotTaken, http.StatusConflict, msgSlotTaken},
		{storage.ErrProviderUnavailable, http.StatusConflict, msgUnavailable},
		{storage.ErrNotFound, http.StatusNotFound, msgProviderMissing},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.appts.bookErr = tc.err
		rec := f.do(t, http.MethodPost, "/api/v1/user/book-appointment", `{"provider_id":"doc-1","slot_date":"12_6_2024","slot_time":"03:30 PM"}`, auth.RolePatient)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if ack := decodeAck(t, rec); ack.Success || ack.Message != tc.msg {
			t.Fatalf("%v: unexpected ack %+v", tc.err, ack)
		}
		if len(f.cache.invalidated) != 0 {
			t.Fatal("cache must not be touched on rejection")
		}
	}
}

func TestBookRejectsSlotsOutsideTheRules(t *testing.T) {
	bodies := map[string]string{
		"quarter hour":   `{"provider_id":"doc-1","slot_date":"12_6_2024","slot_time":"10:15 AM"}`,
		"before opening": `{"provider_id":"doc-1","slot_date":"12_6_2024","slot_time":"09:30 AM"}`,
		"at closing":     `{"provider_id":"doc-1","slot_date":"12_6_2024","slot_time":"09:00 PM"}`,
		"past":           `{"provider_id":"doc-1","slot_date":"9_6_2024","slot_time":"03:00 PM"}`,
		"padded key":     `{"provider_id":"doc-1","slot_date":"12_06_2024","slot_time":"03:00 PM"}`,
		"zero month key": `{"provider_id":"doc-1","slot_date":"12_0_2024","slot_time":"03:00 PM"}`,
		"past horizon":   `{"provider_id":"doc-1","slot_date":"10_6_2025","slot_time":"03:00 PM"}`,
		"24h time":       `{"provider_id":"doc-1","slot_date":"12_6_2024","slot_time":"15:00"}`,
	}
	for name, body := range bodies {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/user/book-appointment", body, auth.RolePatient)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", name, rec.Code)
		}
		if len(f.appts.booked) != 0 {
			t.Fatalf("%s: store must not be called", name)
		}
	}

	f := newFixture(t)
	if rec := f.do(t, http.MethodPost, "/api/v1/user/book-appointment", `{"provider_id":"doc-1"}`, auth.RolePatient); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: expected 400, got %d", rec.Code)
	}
}

func TestBookHonoursSameDayLeadTime(t *testing.T) {
	cases := []struct {
		slotTime string
		status   int
	}{
		{"02:00 PM", http.StatusUnprocessableEntity},
		{"02:30 PM", http.StatusUnprocessableEntity},
		{"03:00 PM", http.StatusOK},
	}
	for _, tc := range cases {
		f := newFixture(t)
		f.now = time.Date(2024, time.June, 10, 14, 20, 0, 0, time.UTC)
		body := `{"provider_id":"doc-1","slot_date":"10_6_2024","slot_time":"` + tc.slotTime + `"}`
		rec := f.do(t, http.MethodPost, "/api/v1/user/book-appointment", body, auth.RolePatient)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.slotTime, tc.status, rec.Code)
		}
	}
}

func TestRevenueIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	f.appts.all = []model.Appointment{
		{ID: "a", SlotDate: "12_6_2024", Amount: 500, Payment: true},
		{ID: "b", SlotDate: "13_6_2024", Amount: 300},
		{ID: "c", SlotDate: "1_7_2024", Amount: 700, Completed: true},
	}
	path := "/api/v1/admin/revenue?start=2024-06-01&end=2024-06-30"
	if rec := f.do(t, http.MethodGet, path, "", auth.RolePatient); rec.Code != http.StatusForbidden {
		t.Fatalf("patient: expected 403, got %d", rec.Code)
	}

	rec := f.do(t, http.MethodGet, path, "", auth.RoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success      bool                `json:"success"`
		Total        int64               `json:"total"`
		Appointments []model.Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Total != 500 || len(resp.Appointments) != 2 {
		t.Fatalf("unexpected report: %+v", resp)
	}

	if rec := f.do(t, http.MethodGet, "/api/v1/admin/revenue?start=2024-06-30&end=2024-06-01", "", auth.RoleAdmin); rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: expected 400, got %d", rec.Code)
	}
}

func TestCancelAndMyAppointments(t *testing.T) {
	f := newFixture(t)
	f.appts.all = []model.Appointment{{ID: "appt-1", UserID: "user-1", ProviderID: "doc-1", SlotDate: "12_6_2024", SlotTime: "03:00 PM"}}

	if rec := f.do(t, http.MethodGet, "/api/v1/user/appointments", "", auth.RolePatient); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"appt-1"`) {
		t.Fatalf("my appointments: %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/admin/appointments/appt-1/cancel", "", auth.RolePatient); rec.Code != http.StatusForbidden {
		t.Fatalf("patient cancel: expected 403, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/admin/appointments/appt-1/cancel", "", auth.RoleAdmin); rec.Code != http.StatusOK {
		t.Fatalf("admin cancel: expected 200, got %d", rec.Code)
	}
	if len(f.appts.cancelled) != 1 || len(f.cache.invalidated) != 1 {
		t.Fatalf("cancel should hit the store and invalidate the cache: %v %v", f.appts.cancelled, f.cache.invalidated)
	}
	if rec := f.do(t, http.MethodPost, "/api/v1/admin/appointments/nope/cancel", "", auth.RoleAdmin); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown appointment: expected 404, got %d", rec.Code)
	}
}
