package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/user/browserkit/internal/options"
	"github.com/user/browserkit/internal/remote"
	"github.com/user/browserkit/internal/session"
)

type Config struct {
	Browser       remote.Family
	DriverPath    string
	HandlePath    string
	Port          int
	ImplicitWait  time.Duration
	AttachRetries int
	NewConsole    bool
	Headless      bool
	Reusable      bool
	OptionsFile   string
	StartURL      string
	JournalPath   string
	LogLevel      string
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Browser:     remote.Family(getEnv("BROWSER", string(remote.Chrome))),
		DriverPath:  getEnv("DRIVER_PATH", ""),
		HandlePath:  getEnv("HANDLE_PATH", "session.json"),
		Headless:    getEnv("HEADLESS", "false") == "true",
		Reusable:    getEnv("REUSABLE", "true") == "true",
		NewConsole:  getEnv("NEW_CONSOLE", "true") == "true",
		OptionsFile: getEnv("OPTIONS_FILE", ""),
		StartURL:    getEnv("START_URL", "https://www.google.com"),
		JournalPath: getEnv("JOURNAL_PATH", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	switch cfg.Browser {
	case remote.Chrome, remote.Edge, remote.Firefox:
	default:
		return nil, fmt.Errorf("unknown BROWSER %q", cfg.Browser)
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", strconv.Itoa(session.DefaultPort))); err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	if cfg.AttachRetries, err = strconv.Atoi(getEnv("ATTACH_RETRIES", strconv.Itoa(session.DefaultAttachRetries))); err != nil {
		return nil, fmt.Errorf("ATTACH_RETRIES: %w", err)
	}
	if cfg.ImplicitWait, err = time.ParseDuration(getEnv("IMPLICIT_WAIT", "0s")); err != nil {
		return nil, fmt.Errorf("IMPLICIT_WAIT: %w", err)
	}

	return cfg, nil
}

// LaunchOptions reads OptionsFile when set; HEADLESS turns headless on either
// way.
func (c *Config) LaunchOptions() (*options.Options, error) {
	opts := &options.Options{}
	if c.OptionsFile != "" {
		var err error
		if opts, err = options.LoadFile(c.OptionsFile); err != nil {
			return nil, err
		}
	}
	opts.Headless = opts.Headless || c.Headless
	return opts, nil
}

// Session builds the session manager configuration.
func (c *Config) Session(opts *options.Options) session.Config {
	return session.Config{
		Family:        c.Browser,
		DriverPath:    c.DriverPath,
		HandlePath:    c.HandlePath,
		ImplicitWait:  c.ImplicitWait,
		Port:          c.Port,
		Options:       opts,
		AttachRetries: c.AttachRetries,
		NewConsole:    c.NewConsole,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
