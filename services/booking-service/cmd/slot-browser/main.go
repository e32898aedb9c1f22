// Command slot-browser pages through a provider's available slots and books one.
//
//	slot-browser -provider doc-1            interactive
//	slot-browser -provider doc-1 -week 2    print one week and exit
//
// Interactive commands: n (next week), p (previous week), d <n> (pick day),
// t <hh:mm AM|PM> (pick time), b (book), r (reload), q (quit).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/clinicbook/libs/config"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/transport"
)

func main() {
	_ = config.LoadDotenv()
	var (
		baseURL    = flag.String("base-url", config.String("BOOKING_BASE_URL", "http://localhost:8083"), "booking-service base url")
		providerID = flag.String("provider", config.String("PROVIDER_ID", ""), "provider id")
		token      = flag.String("token", config.String("BOOKING_TOKEN", ""), "patient token; empty means signed out")
		week       = flag.Int("week", -1, "print this week page (0-51) and exit")
	)
	flag.Parse()

	if strings.TrimSpace(*providerID) == "" {
		fatal("PROVIDER_ID is required")
	}

	ctx := context.Background()
	dir := directory.NewHTTPClient(*baseURL, nil)
	provider, err := dir.Provider(ctx, *providerID)
	if err != nil {
		fatal(err.Error())
	}

	eng := engine.New(nil)
	eng.SetProvider(provider)

	out := os.Stdout
	if *week >= 0 {
		if *week > 0 && !eng.JumpTo(*week) {
			fatal(fmt.Sprintf("week must be between 0 and %d", engine.MaxWeekOffset))
		}
		render(out, provider, eng)
		return
	}

	ui := &terminal{out: out}
	submitter := booking.NewSubmitter(booking.Config{
		Transport:   transport.NewClient(*baseURL, nil),
		Directory:   dir,
		Credentials: booking.StaticCredentials(*token),
		Navigator:   ui,
		Notifier:    ui,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnRefreshed: func(p model.Provider) {
			provider = p
			eng.SetProvider(p)
		},
	})

	render(out, provider, eng)
	run(ctx, bufio.NewScanner(os.Stdin), out, eng, submitter, dir, &provider)
}

func run(ctx context.Context, in *bufio.Scanner, out io.Writer, eng *engine.Engine, submitter *booking.Submitter, dir *directory.HTTPClient, provider *model.Provider) {
	fmt.Fprint(out, "> ")
	for in.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(in.Text()), " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "q", "quit":
			return
		case "n":
			if !eng.Advance() {
				fmt.Fprintln(out, "already at the last week")
			}
		case "p":
			if !eng.Retreat() {
				fmt.Fprintln(out, "already at the first week")
			}
		case "d":
			n, err := strconv.Atoi(arg)
			if err != nil || !eng.SelectGroup(n) {
				fmt.Fprintln(out, "no such day")
			}
		case "t":
			if !eng.SelectTime(strings.ToUpper(arg)) {
				fmt.Fprintln(out, "time not offered on the selected day")
			}
		case "b":
			outcome, err := submitter.Submit(ctx, eng.Snapshot())
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
			fmt.Fprintln(out, "result:", outcome)
		case "r":
			p, err := dir.Refresh(ctx, provider.ID)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				break
			}
			*provider = p
			eng.SetProvider(p)
		case "":
		default:
			fmt.Fprintln(out, "commands: n p d <n> t <time> b r q")
		}
		render(out, *provider, eng)
		fmt.Fprint(out, "> ")
	}
}

func render(w io.Writer, p model.Provider, eng *engine.Engine) {
	win := eng.Window()
	sel := eng.Selection()
	fmt.Fprintf(w, "\n%s (%s)  week %d/%d", p.Name, p.Speciality, eng.Offset()+1, engine.MaxWeekOffset+1)
	if eng.AtStart() {
		fmt.Fprint(w, "  [first]")
	}
	if eng.AtEnd() {
		fmt.Fprint(w, "  [last]")
	}
	fmt.Fprintln(w)

	if win.Empty() {
		fmt.Fprintln(w, "  no slots available this week")
		return
	}
	for i, d := range win.Days {
		marker := " "
		if i == sel.GroupIndex {
			marker = "*"
		}
		fmt.Fprintf(w, " %s[%d] %s %2d %s  (%d slots)\n", marker, i, strings.ToUpper(d.Date.Format("Mon")), d.Date.Day(), d.Date.Format("Jan"), len(d.Slots))
	}

	group, ok := eng.SelectedGroup()
	if !ok {
		return
	}
	var times []string
	for _, s := range group.Slots {
		t := s.Time
		if t == sel.Slot.Time {
			t = "[" + t + "]"
		}
		times = append(times, t)
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(times, "  "))
}

// terminal reports submission progress on stdout.
type terminal struct {
	out io.Writer
}

func (t *terminal) Success(msg string) { fmt.Fprintln(t.out, "ok:", msg) }
func (t *terminal) Warn(msg string)    { fmt.Fprintln(t.out, "warning:", msg) }
func (t *terminal) Error(msg string)   { fmt.Fprintln(t.out, "error:", msg) }
func (t *terminal) ToLogin() {
	fmt.Fprintln(t.out, "sign in first: pass -token or set BOOKING_TOKEN")
}
func (t *terminal) ToConfirmation() {
	fmt.Fprintln(t.out, "booked; see /api/v1/user/appointments")
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
