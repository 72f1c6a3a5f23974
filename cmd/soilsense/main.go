// Package main provides the soilsense command line client. It runs analyses
// directly against the configured store without a worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/soilsense/internal/config"
	"github.com/thebtf/soilsense/internal/db"
	"github.com/thebtf/soilsense/internal/history"
	"github.com/thebtf/soilsense/internal/reminder"
	"github.com/thebtf/soilsense/internal/session"
	"github.com/thebtf/soilsense/pkg/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

const usage = `usage: soilsense [-debug] <command> [flags]

commands:
  analyze        run one soil analysis and print the report
  reading        print a sampled reading without recording it
  history        print recorded analyses
  remind         schedule a reminder and wait for it to fire
  clear-history  delete all recorded analyses
  version        print the version
`

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "version":
		fmt.Fprintln(out, Version)
		return nil
	case "analyze", "reading", "history", "remind", "clear-history":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err := config.EnsureAll(); err != nil {
		return fmt.Errorf("ensure data directory: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}

	store, err := db.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fired := make(chan string, 1)
	notifier := reminder.NewLocalNotifier(func(message string, _ time.Time) {
		select {
		case fired <- message:
		default:
		}
	})

	ctrl, err := session.New(session.Options{
		History:      history.NewLog(store),
		Scheduler:    reminder.NewScheduler(notifier, reminder.WithStore(store), reminder.WithoutRearm()),
		TickInterval: cfg.TickInterval(),
		ProgressStep: cfg.ProgressStep,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Loaded with errors")
	}

	switch cmd {
	case "analyze":
		return runAnalyze(ctx, ctrl, args, out)
	case "reading":
		printReading(out, ctrl.SampleReading())
		return nil
	case "history":
		return runHistory(ctrl, args, out)
	case "remind":
		return runRemind(ctx, ctrl, cfg, fired, args, out)
	default:
		if err := ctrl.ClearHistory(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "History cleared.")
		return nil
	}
}

func runAnalyze(ctx context.Context, ctrl *session.Controller, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	plant := fs.String("plant", "", "Plant type (e.g., Rose, Cactus)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := ctrl.StartAnalysis(ctx, *plant)
	printReading(out, rec.Reading)
	fmt.Fprintln(out)
	fmt.Fprint(out, rec.ReportText)
	if err != nil {
		return fmt.Errorf("analysis not saved: %w", err)
	}
	return nil
}

func runHistory(ctrl *session.Controller, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "Show only the newest N analyses")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records := ctrl.RecentHistory(*limit)
	if len(records) == 0 {
		fmt.Fprintln(out, "No analyses recorded.")
		return nil
	}
	for _, rec := range records {
		plant := ""
		if rec.PlantType != "" {
			plant = " [" + rec.PlantType + "]"
		}
		fmt.Fprintf(out, "%s%s  pH %.2f  moisture %d%%  temp %d°C\n",
			rec.Timestamp, plant, rec.Reading.PH, rec.Reading.Moisture, rec.Reading.Temperature)
	}
	return nil
}

func runRemind(ctx context.Context, ctrl *session.Controller, cfg *config.Config, fired <-chan string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("remind", flag.ContinueOnError)
	message := fs.String("message", cfg.ReminderMessage, "Reminder message")
	delay := fs.Duration("delay", cfg.ReminderDelayDuration(), "Delay before the reminder fires")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rem, err := ctrl.ScheduleReminder(ctx, *message, *delay)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Reminder scheduled for %s\n", rem.ScheduledTime.Local().Format(time.Kitchen))

	select {
	case msg := <-fired:
		fmt.Fprintln(out, msg)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printReading(out io.Writer, r models.Reading) {
	fmt.Fprintf(out, "pH: %.2f\nMoisture: %d%%\nTemperature: %d°C\n", r.PH, r.Moisture, r.Temperature)
}
