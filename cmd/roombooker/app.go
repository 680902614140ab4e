package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/SherClockHolmes/webpush-go"

	"library-room-booker/config"
	"library-room-booker/internal/auth"
	"library-room-booker/internal/booking"
	"library-room-booker/internal/browser"
	"library-room-booker/internal/db"
	"library-room-booker/internal/lock"
	"library-room-booker/internal/logging"
	"library-room-booker/internal/notification"
	"library-room-booker/internal/slots"
	"library-room-booker/internal/store"
	"library-room-booker/internal/workflow"
)

const defaultConfigPath = "./config/config.yaml"

// app is the set of long-lived components shared by the commands.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	store  store.Store
	locker lock.Locker
	pool   *notification.WorkerPool
	orch   *workflow.Orchestrator

	closers []func()
}

type appOptions struct {
	// requireStore fails instead of running without history.
	requireStore bool
	report       io.Writer
}

func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Config file not found: %s, using defaults\n", path)
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, flags *rootFlags, opts appOptions) (*app, error) {
	cfg, err := loadConfig(resolveConfigPath(flags.configPath))
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(cfg.Advanced.LogLevel)
	if flags.verbose {
		level = logging.LevelDebug
	}
	log, err := logging.New("booker", level, cfg.Advanced.LogsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() { log.Close() })

	if err := a.openStore(opts.requireStore); err != nil {
		a.Close()
		return nil, err
	}
	a.openLocker(ctx)
	a.startNotifications(ctx)
	a.buildOrchestrator(opts.report)
	return a, nil
}

func (a *app) openStore(required bool) error {
	gormDB, err := db.Init(&a.cfg.Database, a.log)
	if err != nil {
		if required {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.log.Warnf("History disabled: %v", err)
		return nil
	}
	a.store = store.NewGormStore(gormDB)
	a.closers = append(a.closers, func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return nil
}

func (a *app) openLocker(ctx context.Context) {
	a.locker = lock.NewMemoryLocker()
	if a.cfg.Redis.Addr == "" {
		return
	}
	rl := lock.NewRedisLocker(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err := rl.Ping(ctx); err != nil {
		a.log.Warnf("Redis at %s unavailable, using in-process locks: %v", a.cfg.Redis.Addr, err)
		rl.Close()
		return
	}
	a.locker = rl
	a.closers = append(a.closers, func() { rl.Close() })
}

func (a *app) webpushOptions() *webpush.Options {
	push := a.cfg.Notifications.Push
	if push.PublicKey == "" || push.PrivateKey == "" {
		return nil
	}
	return &webpush.Options{
		VAPIDPublicKey:  push.PublicKey,
		VAPIDPrivateKey: push.PrivateKey,
		Subscriber:      push.Subject,
		TTL:             push.TTL,
	}
}

func (a *app) startNotifications(ctx context.Context) {
	n := a.cfg.Notifications
	senders := []notification.Sender{&notification.LogSender{Log: a.log.With("notify"), Email: n.Email}}
	if n.DesktopNotification {
		senders = append(senders, notification.NewDesktopSender())
	}
	if n.Telegram.BotToken != "" {
		tg, err := notification.NewTelegramSender(n.Telegram.BotToken, n.Telegram.ChatID)
		if err != nil {
			a.log.Warnf("Telegram notifications disabled: %v", err)
		} else {
			senders = append(senders, tg)
		}
	}
	if opts := a.webpushOptions(); opts != nil && a.store != nil {
		senders = append(senders, notification.NewWebPushSender(a.store, opts, a.log))
	}

	// Workers outlive the command context so queued results still go out on Ctrl-C.
	a.pool = notification.NewWorkerPool(n.WorkerPoolSize, n.Enabled, a.log, senders...)
	a.pool.Start(context.WithoutCancel(ctx))
	a.closers = append(a.closers, a.pool.Close)
}

func (a *app) buildOrchestrator(report io.Writer) {
	creds, err := auth.LoadCredentials()
	if err != nil {
		a.log.Warnf("Failed to read .env: %v", err)
	}
	if !creds.HasEmail() {
		a.log.Warnf("%s is not set; sign in manually in the browser window", auth.EmailEnv)
	}

	launcher := browser.NewLauncher(browser.LaunchOptions{
		Headless:   a.cfg.Advanced.HeadlessMode,
		ProfileDir: a.cfg.Advanced.ProfileDir,
		Timeout:    a.cfg.Advanced.WaitTimeout,
	})
	flow := auth.NewFlow(auth.FlowConfigFromConfig(a.cfg), creds, a.log, auth.WriterPrompter{W: os.Stdout})
	shots := &workflow.FileScreenshotter{
		Dir:     a.cfg.Advanced.ScreenshotsDir,
		Enabled: a.cfg.Advanced.ScreenshotOnError,
		Log:     a.log,
	}
	driver := booking.NewDriver(booking.DriverConfigFromConfig(a.cfg), flow, shots, a.log)

	var recorder workflow.Recorder
	if a.store != nil {
		recorder = a.store
	}
	a.orch = workflow.New(workflow.Options{
		BookingURL:   a.cfg.Booking.URL,
		TargetDomain: a.cfg.Booking.TargetDomain,
		Prefs:        slots.PreferencesFromConfig(a.cfg),
		WaitTimeout:  a.cfg.Advanced.WaitTimeout,
		Report:       report,
	}, workflow.Deps{
		Sessions:    workflow.LauncherOpener(launcher),
		Auth:        flow,
		Driver:      driver,
		Notifier:    a.pool,
		Screenshots: shots,
		Recorder:    recorder,
		Log:         a.log,
	})
}

// Close flushes notifications and releases resources in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
