package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
)

// Register mounts the public, patient and admin routes on mux.
func Register(mux *http.ServeMux, providers *ProviderHandler, bookings *BookingHandler, jwtSecret string) {
	mux.HandleFunc("GET /api/v1/public/providers", providers.List)
	mux.HandleFunc("GET /api/v1/public/providers/{id}", providers.Get)
	mux.HandleFunc("GET /api/v1/public/providers/{id}/slots", providers.Slots)

	patient := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h, jwtSecret)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(auth.RequireRole(h, auth.RoleAdmin), jwtSecret)
	}
	mux.Handle("POST /api/v1/user/book-appointment", patient(bookings.Book))
	mux.Handle("GET /api/v1/user/appointments", patient(bookings.MyAppointments))
	mux.Handle("GET /api/v1/admin/revenue", admin(bookings.Revenue))
	mux.Handle("POST /api/v1/admin/appointments/{id}/cancel", admin(bookings.Cancel))
}
