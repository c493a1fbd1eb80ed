// Package configuration holds the settings of cpkit and turns them into the
// clients and stores the commands work with.
package configuration

import (
	"cpkit/lib/configutil"
	"cpkit/lib/restyutil"
	"cpkit/lib/retry"
	"cpkit/lib/scrapers/atcoder/core"
	"cpkit/lib/session"
	"cpkit/lib/telemetry"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
)

const (
	AppName  = "cpkit"
	FileName = "cpkit.json5"

	UsernameEnv = "CPKIT_USERNAME"
	PasswordEnv = "CPKIT_PASSWORD"
)

const (
	BackendFile   = "file"
	BackendSqlite = "sqlite"
)

type Session struct {
	// Backend is either "file" or "sqlite".
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

type Http struct {
	TimeoutSeconds   int    `json:"timeout_seconds"`
	UserAgent        string `json:"user_agent"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
}

type Retry struct {
	MaxAttempts       int `json:"max_attempts"`
	InitialIntervalMs int `json:"initial_interval_ms"`
	MaxIntervalMs     int `json:"max_interval_ms"`
}

type Config struct {
	BaseUrl      string           `json:"base_url"`
	Username     string           `json:"username"`
	Password     string           `json:"password"`
	Session      Session          `json:"session"`
	Http         Http             `json:"http"`
	Retry        Retry            `json:"retry"`
	Workers      int              `json:"workers"`
	DebugDumpDir string           `json:"debug_dump_dir"`
	Telemetry    telemetry.Config `json:"telemetry"`
}

func Defaults() Config {
	return Config{
		BaseUrl: core.DefaultBaseUrl,
		Session: Session{
			Backend: BackendFile,
			Path:    filepath.Join(xdg.DataHome, AppName, "session.json"),
		},
		Http: Http{
			TimeoutSeconds: 30,
		},
		Retry: Retry{
			MaxAttempts:       3,
			InitialIntervalMs: 500,
			MaxIntervalMs:     5000,
		},
		Workers: 6,
	}
}

// Load reads the configuration file, see configutil.Lookup for where it is
// looked for. A missing file is not an error, unset keys keep their defaults.
func Load(explicit string) (Config, error) {
	config := Defaults()

	read, err := configutil.Lookup[Config](explicit, AppName, FileName)
	if errors.Is(err, os.ErrNotExist) && explicit == "" {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	err = mergo.Merge(&config, read, mergo.WithOverride)
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	switch c.Session.Backend {
	case BackendFile, BackendSqlite:
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", BackendFile, BackendSqlite, c.Session.Backend)
	}
	if c.Session.Path == "" {
		return fmt.Errorf("session.path must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// Credentials returns the configured credentials, falling back on the
// environment for whatever the file leaves empty.
func (c Config) Credentials() session.Credentials {
	creds := session.Credentials{
		Username: c.Username,
		Password: c.Password,
	}
	if creds.Username == "" {
		creds.Username = os.Getenv(UsernameEnv)
	}
	if creds.Password == "" {
		creds.Password = os.Getenv(PasswordEnv)
	}
	return creds
}

func (c Config) RetryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = c.Retry.MaxAttempts
	if c.Retry.InitialIntervalMs > 0 {
		policy.InitialInterval = time.Duration(c.Retry.InitialIntervalMs) * time.Millisecond
	}
	if c.Retry.MaxIntervalMs > 0 {
		policy.MaxInterval = time.Duration(c.Retry.MaxIntervalMs) * time.Millisecond
	}
	return policy
}

// ClientOptions builds the http client settings. HTTP dumps are only set up
// when debug is on and a debug_dump_dir is configured.
func (c Config) ClientOptions(debug bool) (core.ClientOptions, error) {
	opts := core.ClientOptions{
		BaseUrl:          c.BaseUrl,
		UserAgent:        c.Http.UserAgent,
		Timeout:          time.Duration(c.Http.TimeoutSeconds) * time.Second,
		CloudflareBypass: c.Http.CloudflareBypass,
	}
	if debug && c.DebugDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(c.DebugDumpDir)
		if err != nil {
			return opts, err
		}
		opts.DebugOutput = output
	}
	return opts, nil
}

// SessionStore is an open session store, Close releases whatever the backend
// holds on to.
type SessionStore interface {
	session.Store
	Close() error
}

type fileStore struct {
	session.FileStore
}

func (fileStore) Close() error {
	return nil
}

func (c Session) OpenStore() (SessionStore, error) {
	opts := session.Options{
		RequiredCookies: []string{core.SessionCookie},
	}
	switch c.Backend {
	case BackendSqlite:
		store, err := session.OpenSQLiteStore(c.Path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendFile, "":
		return fileStore{FileStore: session.NewFileStore(c.Path, opts)}, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", c.Backend)
}
