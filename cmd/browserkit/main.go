package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/browserkit/internal/browser"
	"github.com/user/browserkit/internal/config"
	"github.com/user/browserkit/internal/driver"
	"github.com/user/browserkit/internal/logging"
	"github.com/user/browserkit/internal/options"
	"github.com/user/browserkit/internal/proc"
	"github.com/user/browserkit/internal/remote"
	"github.com/user/browserkit/internal/session"
	"github.com/user/browserkit/internal/storage"
)

const pageTimeout = 30 * time.Second

type starter interface {
	Begin() (bool, error)
	Driver() *driver.Driver
	Quit() error
}

func main() {
	// 1. Config & Logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.Init(cfg.LogLevel)
	defer logging.Sync()

	opts, err := cfg.LaunchOptions()
	if err != nil {
		logging.Logger.Fatalf("failed to load launch options: %v", err)
	}

	// 2. Optional attach journal
	var journal session.Journal
	if cfg.JournalPath != "" {
		store, err := storage.New(cfg.JournalPath)
		if err != nil {
			logging.Logger.Fatalf("failed to init journal: %v", err)
		}
		defer store.Close()
		journal = store
	}

	// 3. Browser
	b, err := newStarter(cfg, opts, journal)
	if err != nil {
		logging.Logger.Fatalf("failed to init browser: %v", err)
	}

	ok, err := b.Begin()
	if err != nil {
		logging.Logger.Fatalf("failed to start %s: %v", cfg.Browser, err)
	}
	if !ok {
		logging.Logger.Errorf("Could not attach to or launch %s", cfg.Browser)
		os.Exit(1)
	}

	// 4. Anti-detection & first page
	drv := b.Driver()
	if err := drv.RotateUserAgent(""); err != nil {
		logging.Logger.Warnf("User agent rotation failed: %v", err)
	}
	if err := drv.HideWebdriver(); err != nil {
		logging.Logger.Warnf("Hiding webdriver flag failed: %v", err)
	}

	loaded, err := drv.OpenURL(cfg.StartURL, driver.StateComplete, pageTimeout)
	if err != nil {
		logging.Logger.Errorf("Opening %s failed: %v", cfg.StartURL, err)
	} else if !loaded {
		logging.Logger.Warnf("%s did not finish loading within %v", cfg.StartURL, pageTimeout)
	}

	if cfg.Reusable && cfg.Browser != remote.Firefox {
		logging.Logger.Infof("Leaving %s running; the next run attaches to it", cfg.Browser)
		return
	}

	// 5. Disposable browsers live until interrupted
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logging.Logger.Info("Shutting down...")
	if err := b.Quit(); err != nil {
		logging.Logger.Warnf("Closing browser failed: %v", err)
	}
}

func newStarter(cfg *config.Config, opts *options.Options, journal session.Journal) (starter, error) {
	if cfg.Browser == remote.Firefox {
		if cfg.Reusable {
			logging.Logger.Warnf("Firefox cannot be reattached, starting a disposable one")
		}
		return browser.NewFirefox(browser.FirefoxConfig{
			Options:      opts,
			ImplicitWait: cfg.ImplicitWait,
			DriverDir:    cfg.DriverPath,
			NewConsole:   cfg.NewConsole,
		}), nil
	}

	deps := session.Deps{
		Endpoint:  browser.Endpoint{},
		Launcher:  browser.Launcher{},
		Resolver:  browser.Resolver{Family: cfg.Browser},
		Processes: proc.System(),
		Journal:   journal,
	}
	sc := cfg.Session(opts)
	if cfg.Reusable {
		return session.New(sc, deps)
	}
	sc.Port = session.DefaultDisposablePort
	return session.NewDisposable(sc, deps)
}
