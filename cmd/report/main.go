// Command report computes attendance summaries offline and issues API tokens.
//
//	report summary -sample -from 2025-10-01 -asof 2025-11-14
//	report summary -from 2025-10-01 -to 2025-10-31 -format xlsx -out october.xlsx
//	report token -person 1 -role "Administrador de Sistemas"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"attendancereport/internal/attendance"
	"attendancereport/internal/auth"
	"attendancereport/internal/clock"
	"attendancereport/internal/config"
	"attendancereport/internal/dates"
	"attendancereport/internal/exporter"
	"attendancereport/internal/sample"
	"attendancereport/internal/store"
	"attendancereport/internal/summary"
)

var errUsage = errors.New("usage: report <summary|token> [flags]")

func main() {
	cfg := config.Load()
	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.App, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "summary":
		return runSummary(ctx, cfg, args[1:], stdout)
	case "token":
		return runToken(cfg, args[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func runSummary(ctx context.Context, cfg config.App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	from := fs.String("from", "", "period start YYYY-MM-DD (default REPORT_DEFAULT_START)")
	to := fs.String("to", "", "period end YYYY-MM-DD (default today)")
	name := fs.String("name", "", "only people whose name contains this text")
	out := fs.String("out", "-", "output file, - for stdout")
	format := fs.String("format", "csv", "csv, xlsx or json")
	useSample := fs.Bool("sample", false, "use the built-in reference data instead of the database")
	asOf := fs.String("asof", "", "treat this YYYY-MM-DD as today")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var clk clock.Clock = clock.System{}
	if *asOf != "" {
		day, ok := dates.ParseDay(*asOf)
		if !ok {
			return fmt.Errorf("invalid -asof %q", *asOf)
		}
		clk = clock.Fixed(day.Add(12 * time.Hour))
	}

	var src attendance.Store = sampleStore{}
	if !*useSample {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		src = attendance.NewRepository(db.Client, db.Driver)
	}

	svc := attendance.NewService(src, summary.New(cfg.Policy, clk), clk, cfg.DedupWindow)
	rows, err := svc.Summary(ctx, attendance.Query{From: *from, To: *to, Name: *name})
	if err != nil {
		return err
	}
	totals := summary.Totals(rows)
	log.Printf("%d people, %d absences, discount %.1f", totals.People, totals.Absences, totals.Discount)

	w := stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if *format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"rows": rows, "totals": totals})
	}
	ff, err := exporter.ParseFormat(*format)
	if err != nil {
		return err
	}
	return exporter.Write(w, ff, rows)
}

func runToken(cfg config.App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	person := fs.Int("person", 0, "person id the token is issued for")
	role := fs.String("role", "", "role claim, e.g. the admin role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *person <= 0 {
		return errors.New("-person is required")
	}
	pair, err := auth.Issue(*person, *role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
	})
}

func openStore(cfg config.App) (*store.DB, error) {
	db, err := store.NewDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	return db, nil
}

// sampleStore serves the built-in reference data read-only.
type sampleStore struct{}

func (sampleStore) ListEvents(context.Context) ([]summary.Event, error) {
	return sample.Events(), nil
}

func (sampleStore) ListEnrollments(context.Context) ([]summary.Enrollment, error) {
	return sample.Enrollments(), nil
}

func (sampleStore) FindMovement(context.Context, int) (summary.Movement, error) {
	return summary.Movement{}, attendance.ErrUnknownMovement
}

func (sampleStore) RecentEvent(context.Context, int, int, string) (*attendance.StoredEvent, error) {
	return nil, nil
}

func (sampleStore) InsertEvent(context.Context, attendance.StoredEvent) (attendance.StoredEvent, error) {
	return attendance.StoredEvent{}, errors.New("sample data is read-only")
}
