// Package config reads the runtime settings of the survey dashboard from
// the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/surveydash/loader"
)

// Environment variables understood by the binary.
const (
	EnvPort         = "PORT"
	EnvSourceURL    = "SURVEY_CSV_URL"
	EnvDashboard    = "DASHBOARD_CONFIG"
	EnvCacheTTL     = "CACHE_TTL"
	EnvFetchTimeout = "FETCH_TIMEOUT"
	EnvGinMode      = "GIN_MODE"
)

// DefaultPort is used when PORT is unset.
const DefaultPort = 8080

// Settings are the values a deployment can tune without editing the
// dashboard definition.
type Settings struct {
	Port          int
	SourceURL     string        // overrides the dashboard's source.url
	DashboardPath string        // empty means the embedded default
	CacheTTL      time.Duration // zero means the dashboard's source.ttl
	FetchTimeout  time.Duration
	GinMode       string
}

// FromEnv reads Settings from the process environment.
func FromEnv() (Settings, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Settings, error) {
	s := Settings{
		Port:         DefaultPort,
		FetchTimeout: loader.DefaultTimeout,
		GinMode:      "release",
	}

	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return s, fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		s.Port = port
	}

	s.SourceURL = get(EnvSourceURL)
	s.DashboardPath = get(EnvDashboard)

	var err error
	if s.CacheTTL, err = duration(EnvCacheTTL, get(EnvCacheTTL), 0); err != nil {
		return s, err
	}
	if s.FetchTimeout, err = duration(EnvFetchTimeout, get(EnvFetchTimeout), s.FetchTimeout); err != nil {
		return s, err
	}

	if v := get(EnvGinMode); v != "" {
		switch v {
		case "debug", "release", "test":
			s.GinMode = v
		default:
			return s, fmt.Errorf("%s: unknown mode %q", EnvGinMode, v)
		}
	}
	return s, nil
}

// duration accepts Go duration strings ("30m") or a bare number of seconds.
func duration(name, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("%s: negative duration %q", name, v)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", name, v)
	}
	return d, nil
}

// Addr is the listen address for the HTTP server.
func (s Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
