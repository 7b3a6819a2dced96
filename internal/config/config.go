package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses durations and resolves the business timezone

	"github.com/joho/godotenv" // godotenv loads a local .env file when present
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The business timezone, expansion horizon
// and sweep interval are explicit values threaded into the expander,
// query layer and sweeper at construction; nothing reads them from a
// process-wide default.
type Config struct {
	Env           string         // application environment (e.g. "dev", "prod")
	Port          string         // HTTP port to listen on
	DBUser        string         // database username
	DBPass        string         // database password (optional)
	DBHost        string         // database host address
	DBPort        string         // database port number
	DBName        string         // database name
	JWTSecret     string         // secret used to sign JWTs
	AccessTTLMin  int            // access token time-to-live in minutes
	BcryptCost    int            // bcrypt cost for password hashing
	BusinessTZ    string         // IANA name of the fixed business timezone
	Location      *time.Location // resolved business timezone
	HorizonDays   int            // number of days covered by one expansion run
	SweepInterval time.Duration  // period of the hold-release sweeper
	MetricsAddr   string         // address for the Prometheus endpoint ("" disables it)
	CacheTTL      time.Duration  // lifetime of cached public responses
	RateCapacity  int            // requests allowed per rate-limit window
	RateWindow    time.Duration  // rate-limit window length
}

// Load reads configuration from the environment (after loading .env if
// one exists) and returns a Config.  Required variables are enforced by
// must() and missing values cause the program to exit with a fatal log
// message.  An unresolvable BUSINESS_TZ is fatal too: every civil-date
// computation in the system depends on it.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:    mustInt("BCRYPT_COST"),
		BusinessTZ:    getenv("BUSINESS_TZ", "America/Santiago"),
		HorizonDays:   envInt("SCHEDULE_HORIZON_DAYS", 14),
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		CacheTTL:      envDur("CACHE_TTL", 30*time.Second),
		RateCapacity:  envInt("RATE_LIMIT_CAPACITY", 60),
		RateWindow:    envDur("RATE_LIMIT_WINDOW", time.Minute),
	}

	loc, err := time.LoadLocation(cfg.BusinessTZ)
	if err != nil {
		log.Fatalf("invalid BUSINESS_TZ %q: %v", cfg.BusinessTZ, err)
	}
	cfg.Location = loc

	if cfg.HorizonDays < 1 {
		log.Fatalf("SCHEDULE_HORIZON_DAYS must be positive, got %d", cfg.HorizonDays)
	}
	if cfg.SweepInterval <= 0 {
		log.Fatalf("SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
