package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slotkey"
)

// Transport sends a booking request to the backend.
type Transport interface {
	SubmitBooking(ctx context.Context, req model.BookingRequest, credential string) (model.BookingAck, error)
}

// Directory re-reads a provider after a booking so the new reservation shows up.
type Directory interface {
	Refresh(ctx context.Context, providerID string) (model.Provider, error)
}

// Credentials exposes the caller's current token; empty means signed out.
type Credentials interface {
	Credential(ctx context.Context) string
}

type Navigator interface {
	ToLogin()
	ToConfirmation()
}

type Notifier interface {
	Success(msg string)
	Warn(msg string)
	Error(msg string)
}

type Outcome int

const (
	OutcomeBooked Outcome = iota
	OutcomeRejected
	OutcomeFailed
	OutcomeRedirected
	OutcomeIncomplete
	OutcomeBusy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBooked:
		return "booked"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeRedirected:
		return "redirected"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeBusy:
		return "busy"
	default:
		return "unknown"
	}
}

var ErrTransport = errors.New("booking transport failed")

const (
	msgLoginRequired = "Login to book appointment"
	msgPickSlot      = "Select a day and time first"
	msgGenericError  = "Could not book the appointment, please try again"
)

type Config struct {
	Transport   Transport
	Directory   Directory
	Credentials Credentials
	Navigator   Navigator
	Notifier    Notifier
	Logger      *slog.Logger
	// OnRefreshed receives the provider re-read after a successful booking.
	OnRefreshed func(model.Provider)
	// OnSettled, if set, is called with the outcome of every attempt.
	OnSettled func(Outcome)
}

// Submitter turns a selection into one booking request. At most one request is in
// flight; further calls are refused until it settles.
type Submitter struct {
	cfg      Config
	inFlight atomic.Bool
}

func NewSubmitter(cfg Config) *Submitter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Navigator == nil {
		cfg.Navigator = nopNavigator{}
	}
	return &Submitter{cfg: cfg}
}

// InFlight reports whether a request is outstanding; UIs disable the book action while true.
func (s *Submitter) InFlight() bool { return s.inFlight.Load() }

// Submit books the slot described by snap. snap is a value captured before the call;
// nothing is re-read from the engine while the request is outstanding, so the user
// may keep browsing weeks meanwhile.
func (s *Submitter) Submit(ctx context.Context, snap engine.Snapshot) (outcome Outcome, err error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return OutcomeBusy, nil
	}
	defer s.inFlight.Store(false)
	defer func() {
		if s.cfg.OnSettled != nil {
			s.cfg.OnSettled(outcome)
		}
	}()

	var credential string
	if s.cfg.Credentials != nil {
		credential = s.cfg.Credentials.Credential(ctx)
	}
	if credential == "" {
		s.cfg.Notifier.Warn(msgLoginRequired)
		s.cfg.Navigator.ToLogin()
		return OutcomeRedirected, nil
	}

	if !snap.Complete() || snap.ProviderID == "" {
		s.cfg.Notifier.Warn(msgPickSlot)
		return OutcomeIncomplete, nil
	}

	req := model.BookingRequest{
		ProviderID: snap.ProviderID,
		SlotDate:   slotkey.Derive(snap.Group.Date),
		SlotTime:   snap.Selection.Slot.Time,
	}
	logger := s.cfg.Logger.With("provider_id", req.ProviderID, "slot_date", req.SlotDate, "slot_time", req.SlotTime)

	ack, err := s.cfg.Transport.SubmitBooking(ctx, req, credential)
	if err != nil {
		logger.Error("booking submission failed", "err", err)
		s.cfg.Notifier.Error(msgGenericError)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if !ack.Success {
		logger.Info("booking rejected", "message", ack.Message)
		s.cfg.Notifier.Error(ack.Message)
		return OutcomeRejected, nil
	}

	logger.Info("booking accepted")
	s.cfg.Notifier.Success(ack.Message)
	if s.cfg.Directory != nil {
		provider, err := s.cfg.Directory.Refresh(ctx, req.ProviderID)
		if err != nil {
			// The booking stands; a stale view only risks a server-side rejection later.
			logger.Warn("provider refresh after booking failed", "err", err)
		} else if s.cfg.OnRefreshed != nil {
			s.cfg.OnRefreshed(provider)
		}
	}
	s.cfg.Navigator.ToConfirmation()
	return OutcomeBooked, nil
}

// StaticCredentials is a fixed token, e.g. read from the environment by a CLI.
type StaticCredentials string

func (c StaticCredentials) Credential(context.Context) string { return string(c) }

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Warn(string)    {}
func (nopNotifier) Error(string)   {}

type nopNavigator struct{}

func (nopNavigator) ToLogin()        {}
func (nopNavigator) ToConfirmation() {}
