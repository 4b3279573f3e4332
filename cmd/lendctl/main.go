package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/lendinglib-backend/internal/availability"
	pkgerrors "github.com/angelmondragon/lendinglib-backend/pkg/errors"
	"github.com/angelmondragon/lendinglib-backend/pkg/logger"
)

const exitTempFail = 75

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "lendctl",
		Usage: "operate the lending library availability engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"LENDCTL_LOG_LEVEL"}},
		},
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "reconcile",
				Usage: "re-audit every open reservation and persist status changes",
				Action: withServices(func(c *cli.Context, s *services) error {
					result, err := s.availability.ReconcileAll(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, result)
				}),
			},
			{
				Name:      "check",
				Usage:     "detect conflicts for one reservation without persisting",
				ArgsUsage: "<reservation-id>",
				Action: withServices(func(c *cli.Context, s *services) error {
					id, err := uuidArg(c)
					if err != nil {
						return err
					}
					result, err := s.availability.CheckReservation(c.Context, id)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, result)
				}),
			},
			{
				Name:  "availability",
				Usage: "report free units of an item over a date range",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "item", Required: true},
					&cli.StringFlag{Name: "pickup", Required: true},
					&cli.StringFlag{Name: "return", Required: true},
				},
				Action: withServices(func(c *cli.Context, s *services) error {
					itemID, err := uuid.Parse(c.String("item"))
					if err != nil {
						return fmt.Errorf("invalid item id: %w", err)
					}
					result, err := s.availability.Availability(c.Context, availability.AvailabilityQuery{
						ItemID:     itemID,
						PickupDate: c.String("pickup"),
						ReturnDate: c.String("return"),
					})
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, result)
				}),
			},
			{
				Name:      "is-closed",
				Usage:     "report whether a date is a library closure",
				ArgsUsage: "<YYYY-MM-DD>",
				Action: withServices(func(c *cli.Context, s *services) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one date argument", 2)
					}
					closed, err := s.calendar.IsDateClosed(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, map[string]any{"date": c.Args().First(), "closed": closed})
				}),
			},
			{
				Name:  "prune-closed-dates",
				Usage: "delete closures older than the retention window",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "override the configured retention"},
				},
				Action: withServices(func(c *cli.Context, s *services) error {
					days := s.cfg.Calendar.RetentionDays
					if c.IsSet("days") {
						days = c.Int("days")
					}
					cutoff := s.today().AddDays(-days)
					removed, err := s.calendar.PruneBefore(c.Context, cutoff)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, map[string]any{"cutoff": cutoff, "removed": removed})
				}),
			},
		},
	}
}

// exitCode maps retryable failures to EX_TEMPFAIL so schedulers can retry.
func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	if pkgerrors.Retryable(err) {
		return exitTempFail
	}
	return 1
}

func uuidArg(c *cli.Context) (uuid.UUID, error) {
	if c.NArg() != 1 {
		return uuid.Nil, cli.Exit("expected exactly one reservation id", 2)
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return uuid.Nil, cli.Exit(fmt.Sprintf("invalid reservation id %q", c.Args().First()), 2)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(c *cli.Context) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "lendctl",
		Level:       logger.ParseLevel(c.String("log-level")),
		Output:      os.Stderr,
		Format:      logger.FormatConsole,
	})
}
