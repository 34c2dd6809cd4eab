package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/adapter/controlclient"
	"github.com/pscheid92/overlayd/internal/adapter/redis"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/platform/config"
	"github.com/pscheid92/overlayd/internal/platform/logging"
	"github.com/pscheid92/overlayd/internal/platform/version"
	"github.com/pscheid92/overlayd/internal/toggle"
)

const usage = `usage: overlayctl [flags] <command>

commands:
  show     show the overlay
  hide     hide the overlay
  status   print the controller status as JSON
  loop     send SHOW/HIDE cycles until interrupted

flags:
`

func main() {
	var (
		showVersion = flag.Bool("version", false, "Print version and exit")
		controlURL  = flag.String("url", "", "overlayd base URL (overrides CONTROL_URL)")
		transport   = flag.String("transport", "", "Command transport: http or redis (overrides CONTROL_TRANSPORT)")
		duration    = flag.Duration("duration", 0, "Stop the loop after this long (0 runs until interrupted)")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *controlURL != "" {
		cfg.ControlURL = *controlURL
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flag.Arg(0), *duration); err != nil {
		slog.Error("Command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ClientConfig, command string, duration time.Duration) error {
	httpClient, err := controlclient.New(cfg.ControlURL, controlclient.Options{Timeout: cfg.RequestTimeout})
	if err != nil {
		return err
	}

	switch command {
	case "status":
		status, err := httpClient.Status(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "show", "hide", "loop":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	sender, closeSender, err := newSender(ctx, cfg, httpClient)
	if err != nil {
		return err
	}
	defer closeSender()

	if command == "loop" {
		return runLoop(ctx, cfg, sender, duration)
	}

	cmd, err := domain.ParseCommand(command)
	if err != nil {
		return err
	}
	return sender.Send(ctx, cmd)
}

func newSender(ctx context.Context, cfg *config.ClientConfig, httpClient *controlclient.Client) (domain.CommandSender, func(), error) {
	if cfg.Transport != "redis" {
		return httpClient, func() {}, nil
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = rdb.Close() }
	return redis.NewCommandPublisher(rdb, cfg.ControlChannel, clockwork.NewRealClock()), closeFn, nil
}

// runLoop starts the toggle loop, then on interrupt (or after duration) flips it off and lets
// the current cycle finish with a HIDE.
func runLoop(ctx context.Context, cfg *config.ClientConfig, sender domain.CommandSender, duration time.Duration) error {
	loop := toggle.New(sender, clockwork.NewRealClock(), toggle.Options{
		Cadence:  cfg.ToggleCadence,
		Cooldown: cfg.ToggleCooldown,
	})
	defer loop.Close()

	if _, err := loop.Toggle(ctx); err != nil {
		return err
	}
	slog.Info("Loop running", "button", loop.ButtonLabel(), "transport", cfg.Transport)

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	<-ctx.Done()

	if _, err := loop.Toggle(context.Background()); err != nil && !errors.Is(err, domain.ErrCoolingDown) {
		return err
	}
	slog.Info("Loop stopping", "button", loop.ButtonLabel())

	// A second interrupt aborts the wait.
	waitCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := loop.Wait(waitCtx); err != nil {
		return fmt.Errorf("loop did not finish: %w", err)
	}
	slog.Info("Loop finished")
	return nil
}
