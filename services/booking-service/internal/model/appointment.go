package model

import "time"

// Appointment is one booked slot. SlotDate uses the same "D_M_YYYY" key as the
// provider's booked-slot index.
type Appointment struct {
	ID         string    `json:"_id"`
	UserID     string    `json:"user_id"`
	ProviderID string    `json:"provider_id"`
	SlotDate   string    `json:"slot_date"`
	SlotTime   string    `json:"slot_time"`
	Amount     int64     `json:"amount"`
	Payment    bool      `json:"payment"`
	Cancelled  bool      `json:"cancelled"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
}

// BookingRequest is what a client submits to reserve one slot.
type BookingRequest struct {
	ProviderID string `json:"provider_id"`
	SlotDate   string `json:"slot_date"`
	SlotTime   string `json:"slot_time"`
}

// BookingAck is the backend's answer to a booking request.
type BookingAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
