// Command clinicbook is the terminal client for the clinic appointment
// backend: register, log in, browse doctors, pick a slot, and book.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/clinicbook/clinicbook-go/internal/api"
	"github.com/clinicbook/clinicbook-go/internal/booking"
	"github.com/clinicbook/clinicbook-go/internal/config"
	"github.com/clinicbook/clinicbook-go/internal/confirm"
	"github.com/clinicbook/clinicbook-go/internal/nav"
	"github.com/clinicbook/clinicbook-go/internal/schedule"
	"github.com/clinicbook/clinicbook-go/internal/session"
	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

const usage = `usage: clinicbook <command> [flags]

commands:
  register       create a patient account
  login          authenticate and store the session token
  logout         clear the stored session
  whoami         show the authenticated profile
  update         update profile details
  doctors        list doctors
  schedule       show a doctor's slots grouped by date
  book           reserve a slot
  appointments   list your appointments
  cancel         cancel an appointment
`

type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	sessions *session.Store
	gateway  *api.Client
	nav      *nav.Navigator
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, "text")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, logger *logging.Logger) (*app, error) {
	tokenStore, err := buildTokenStore(cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewStore(tokenStore, logger)
	if err != nil {
		return nil, err
	}
	gateway := api.NewClient(cfg.APIBaseURL, sessions, logger)
	guard := nav.NewGuard(sessions)
	navigator := nav.NewNavigator(guard, logger, nav.DefaultRoutes()...)
	return &app{cfg: cfg, logger: logger, sessions: sessions, gateway: gateway, nav: navigator}, nil
}

func buildTokenStore(cfg *config.Config) (session.TokenStore, error) {
	switch cfg.SessionBackend {
	case "redis":
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		return session.NewRedisStore(redis.NewClient(opts)), nil
	default:
		path := cfg.SessionFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolve session file: %w", err)
			}
			path = filepath.Join(home, ".clinicbook", "session.json")
		}
		return session.NewFileStore(path), nil
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.sessions.Clear()
	case "whoami":
		return a.whoami(ctx)
	case "update":
		return a.update(ctx, args)
	case "doctors":
		return a.doctors(ctx)
	case "schedule":
		return a.schedule(ctx, args)
	case "book":
		return a.book(ctx, args)
	case "appointments":
		return a.appointments(ctx)
	case "cancel":
		return a.cancel(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireLogin applies the route guard before a protected command runs, the
// same check the web views go through.
func (a *app) requireLogin(routeName string) error {
	landed, err := a.nav.Go(routeName, nil)
	if err != nil {
		return err
	}
	if landed.Name == nav.RouteLogin {
		return fmt.Errorf("not logged in; run: clinicbook login -email you@example.com")
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	phone := fs.String("phone", "", "phone number (optional)")
	birthday := fs.String("birthday", "", "birthday YYYY-MM-DD (optional)")
	_ = fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		return fmt.Errorf("register requires -name, -email and -password")
	}
	profile, err := a.gateway.Register(ctx, api.RegisterRequest{
		Username: *name,
		Email:    *email,
		Password: *password,
		Phone:    *phone,
		Birthday: *birthday,
	})
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s)\n", profile.Username, profile.Email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("login requires -email and -password")
	}
	res, err := a.gateway.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.sessions.SetToken(res.Token); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", res.Email)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireLogin(nav.RouteDoctors); err != nil {
		return err
	}
	profile, err := a.gateway.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", profile.Username, profile.Email)
	return nil
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	birthday := fs.String("birthday", "", "birthday YYYY-MM-DD")
	_ = fs.Parse(args)

	if *name == "" && *phone == "" && *birthday == "" {
		return fmt.Errorf("update requires at least one of -name, -phone, -birthday")
	}
	if err := a.requireLogin(nav.RouteDoctors); err != nil {
		return err
	}
	profile, err := a.gateway.UpdateProfile(ctx, api.ProfileUpdate{
		Username: *name,
		Phone:    *phone,
		Birthday: *birthday,
	})
	if err != nil {
		return err
	}
	fmt.Printf("updated %s <%s>\n", profile.Username, profile.Email)
	return nil
}

func (a *app) doctors(ctx context.Context) error {
	if err := a.requireLogin(nav.RouteDoctors); err != nil {
		return err
	}
	doctors, err := a.gateway.Doctors(ctx)
	if err != nil {
		return err
	}
	if len(doctors) == 0 {
		fmt.Println("no doctors found")
		return nil
	}
	for _, d := range doctors {
		fmt.Printf("%4d  %-28s %s\n", d.ID, d.Name, d.Specialty)
	}
	return nil
}

func (a *app) schedule(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	doctorID := fs.Int("doctor", 0, "doctor id")
	date := fs.String("date", "", "limit to one date YYYY-MM-DD (optional)")
	_ = fs.Parse(args)

	if *doctorID == 0 {
		return fmt.Errorf("schedule requires -doctor")
	}
	if err := a.requireLogin(nav.RouteDoctorDetail); err != nil {
		return err
	}

	agg := schedule.NewAggregator(a.gateway, a.logger)
	grouped, err := agg.Load(ctx, *doctorID, *date)
	if err != nil {
		return err
	}
	if grouped.Empty() {
		fmt.Println("no upcoming slots")
		return nil
	}
	for _, d := range grouped.Dates() {
		fmt.Println(d)
		for _, s := range grouped.SlotsOn(d) {
			marker := " "
			if !s.IsAvailable {
				marker = "x"
			}
			fmt.Printf("  [%s] %4d  %s\n", marker, s.ID, s.StartTime)
		}
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	doctorID := fs.Int("doctor", 0, "doctor id")
	slotID := fs.Int("slot", 0, "slot id")
	_ = fs.Parse(args)

	if *doctorID == 0 || *slotID == 0 {
		return fmt.Errorf("book requires -doctor and -slot")
	}
	if err := a.requireLogin(nav.RouteDoctorDetail); err != nil {
		return err
	}

	doctor, err := a.gateway.Doctor(ctx, *doctorID)
	if err != nil {
		return err
	}
	agg := schedule.NewAggregator(a.gateway, a.logger)
	grouped, err := agg.Load(ctx, *doctorID, "")
	if err != nil {
		return err
	}

	flow := booking.NewFlow(a.gateway, *doctor, a.logger,
		booking.WithSubmitTimeout(a.cfg.BookingTimeout))
	flow.SetSchedule(grouped)

	if err := flow.Select(*slotID); err != nil {
		return err
	}
	conf, err := flow.Submit(ctx)
	if err != nil {
		if out := flow.Outcome(); out.State == booking.StateFailed && out.Reason == booking.ReasonConflict {
			return fmt.Errorf("that slot was just taken; refresh the schedule and pick another")
		}
		return err
	}

	// Hand the payload to the confirmation view via navigation state.
	if _, err := a.nav.Go(nav.RouteConfirmation, conf); err != nil {
		return err
	}
	fmt.Print(confirm.Render(confirm.FromState(a.nav.TakeState())))
	return nil
}

func (a *app) appointments(ctx context.Context) error {
	if err := a.requireLogin(nav.RouteDoctors); err != nil {
		return err
	}
	appts, err := a.gateway.Appointments(ctx)
	if err != nil {
		return err
	}
	if len(appts) == 0 {
		fmt.Println("no appointments")
		return nil
	}
	for _, appt := range appts {
		fmt.Printf("%4d  slot %-4d %s\n", appt.ID, appt.ScheduleID, appt.Status)
	}
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.Int("id", 0, "appointment id")
	_ = fs.Parse(args)

	if *id == 0 {
		return fmt.Errorf("cancel requires -id")
	}
	if err := a.requireLogin(nav.RouteDoctors); err != nil {
		return err
	}
	if err := a.gateway.CancelAppointment(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("appointment %d cancelled\n", *id)
	return nil
}
