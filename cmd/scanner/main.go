// Command scanner runs a check-in station for line-emitting QR scanners
// (serial devices or keyboard-wedge scanners exposed as files, or stdin)
// against a rollcall server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollcall/internal/checkin/client"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/logger"
	"rollcall/internal/scanner"
	id "rollcall/pkg/domain"
)

func main() {
	cfg, err := config.StationFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	flag.StringVar(&cfg.Server, "server", cfg.Server, "rollcall server base URL")
	flag.StringVar(&cfg.EventID, "event", cfg.EventID, "event id to check attendees into")
	flag.StringVar(&cfg.Device, "device", cfg.Device, `scanner device path, or "-" for stdin`)
	flag.StringVar(&cfg.StationID, "station", cfg.StationID, "station name recorded with each check-in")
	flag.DurationVar(&cfg.Scanner.StartTimeout, "start-timeout", cfg.Scanner.StartTimeout, "time allowed for the device to come up")
	flag.DurationVar(&cfg.Scanner.Cooldown, "cooldown", cfg.Scanner.Cooldown, "how long a result stays on screen")
	flag.BoolVar(&cfg.AutoRestart, "auto-restart", cfg.AutoRestart, "scan again without waiting for the operator to press Enter")
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	confirm, err := operatorInput(cfg)
	if err != nil {
		log.Error("station not started", "error", err)
		os.Exit(2)
	}

	if err := run(ctx, cfg, os.Stdin, confirm, os.Stdout, log); err != nil {
		log.Error("station stopped", "error", err)
		os.Exit(1)
	}
}

// operatorInput is where the operator presses Enter to scan again. When
// scans arrive on stdin the controlling terminal is used instead.
func operatorInput(cfg config.Station) (io.Reader, error) {
	if cfg.AutoRestart {
		return nil, nil
	}
	if tty, err := os.Open("/dev/tty"); err == nil {
		return tty, nil
	}
	if cfg.Device != "-" {
		return os.Stdin, nil
	}
	return nil, errors.New("no terminal for the operator to confirm restarts; use -auto-restart")
}

// run drives the station until ctx ends. After Idle or Error it waits for a
// line on confirm before scanning again, unless cfg.AutoRestart is set.
func run(ctx context.Context, cfg config.Station, stdin, confirm io.Reader, out io.Writer, log *slog.Logger) error {
	eventID, err := id.ParseEventID(cfg.EventID)
	if err != nil {
		return fmt.Errorf("event: %w", err)
	}
	checker, err := client.New(cfg.Server, client.WithStationID(cfg.StationID))
	if err != nil {
		return err
	}

	var device scanner.Device
	if cfg.Device == "-" {
		device = scanner.NewReaderDevice(stdin)
	} else {
		device = scanner.NewFileDevice(cfg.Device)
	}
	session := scanner.NewSession(device, scanner.LineDecoder{},
		scanner.WithStartTimeout(cfg.Scanner.StartTimeout),
		scanner.WithSessionLogger(log),
	)

	statuses := make(chan scanner.Status, 16)
	station := scanner.NewStation(session, checker, eventID,
		scanner.WithCooldown(cfg.Scanner.Cooldown),
		scanner.WithStationLogger(log),
		scanner.WithObserver(func(s scanner.Status) {
			select {
			case statuses <- s:
			default:
			}
		}),
	)
	defer station.Wait()
	defer station.Stop()

	presses := readLines(ctx, confirm)

	if err := station.Start(ctx); err != nil {
		return err
	}

	var (
		restart  <-chan time.Time
		awaiting bool
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-restart:
			restart = nil
			_ = station.Start(ctx)
		case <-presses:
			if !awaiting {
				continue
			}
			awaiting = false
			_ = station.Start(ctx)
		case s := <-statuses:
			fmt.Fprintf(out, "[%s] %s\n", s.State, s.Message())
			if s.State != scanner.StateIdle && s.State != scanner.StateError {
				continue
			}
			switch {
			case !cfg.AutoRestart:
				awaiting = true
				fmt.Fprintln(out, "Press Enter to scan again.")
			case s.State == scanner.StateIdle:
				restart = time.After(0)
			default:
				restart = time.After(cfg.Scanner.Cooldown)
			}
		}
	}
}

// readLines signals once per line read from r. A nil reader never signals.
func readLines(ctx context.Context, r io.Reader) <-chan struct{} {
	lines := make(chan struct{})
	if r == nil {
		return lines
	}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
