package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	Store          string // "mysql" (default) or "memory"
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	Reserva ReservaConfig
	Queue   QueueConfig
}

// ReservaConfig carries the admission limits.
type ReservaConfig struct {
	MaxCantidad         int // upper bound of a single reservation's quantity
	MaxActivasPorEvento int // active reservations a usuario may hold per event
}

// IsProd reports whether APP_ENV is "prod".
func (c Config) IsProd() bool { return c.Env == "prod" }

// UsesMemoryStore reports whether APP_STORE selects the in-memory store,
// in which case the DB_* variables are not required.
func (c Config) UsesMemoryStore() bool { return c.Store == "memory" }

// LoadDotEnv loads the given files (".env" by default) into the process
// environment without overriding variables already set.  A missing file is
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// Load reads configuration values from environment variables.  Every
// missing or malformed required variable is reported in the returned error.
func Load() (Config, error) {
	var l loader
	c := Config{
		Env:   l.must("APP_ENV"),
		Port:  l.must("APP_PORT"),
		Store: envStr("APP_STORE", "mysql"),
	}
	if !c.UsesMemoryStore() {
		c.DBUser = l.must("DB_USER")
		c.DBPass = os.Getenv("DB_PASS")
		c.DBHost = l.must("DB_HOST")
		c.DBPort = l.must("DB_PORT")
		c.DBName = l.must("DB_NAME")
	}
	c.JWTSecret = l.must("JWT_SECRET")
	c.AccessTTLMin = l.mustInt("ACCESS_TOKEN_TTL_MIN")
	c.RefreshTTLDays = l.mustInt("REFRESH_TOKEN_TTL_DAYS")
	c.BcryptCost = l.mustInt("BCRYPT_COST")
	c.Reserva = LoadReservaConfig()
	c.Queue = LoadQueueConfig()
	return c, errors.Join(l.errs...)
}

// LoadReservaConfig reads the admission limits, falling back to 50 and 5.
func LoadReservaConfig() ReservaConfig {
	c := ReservaConfig{
		MaxCantidad:         envInt("MAX_CANTIDAD", 50),
		MaxActivasPorEvento: envInt("MAX_ACTIVAS_POR_EVENTO", 5),
	}
	if c.MaxCantidad < 1 {
		c.MaxCantidad = 50
	}
	if c.MaxActivasPorEvento < 1 {
		c.MaxActivasPorEvento = 5
	}
	return c
}

// loader accumulates failures of required variables.
type loader struct{ errs []error }

func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
