package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time provides duration parsing for TTL settings
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The durations drive the consistency model of the
// reservation engine and the waiting room: hold TTLs, cache TTLs and the
// admission cadence all come from here and are fixed for the process lifetime.
type Config struct {
    Env    string // application environment (e.g. "dev", "prod")
    Port   string // HTTP port to listen on
    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    JWTSecret string // secret used to sign admission tokens

    HoldDuration         time.Duration // how long a seat hold (and its fast-path lock) lives
    ActiveSessionTTL     time.Duration // how long an admitted session may browse before expiring
    AvailabilityCacheTTL time.Duration // TTL of the per-event availability summary cache
    QueueInterval        time.Duration // cadence of the per-event admission processor
    CleanupInterval      time.Duration // cadence of the expired-hold sweep
    AdmissionRatePerSec  int           // tuned constant feeding the estimated-wait model
    MaxConcurrent        int           // default cap of concurrently active sessions per event
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Tunables default to
// values suited for flash-sale load: the availability cache lives for
// seconds, not minutes, because staleness under sale pressure is worse
// than the extra read load.
func Load() Config {
    return Config{
        Env:    must("APP_ENV"),      // environment (dev/test/prod)
        Port:   must("APP_PORT"),     // port to bind the HTTP server
        DBUser: must("DB_USER"),      // database user
        DBPass: os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost: must("DB_HOST"),      // database host
        DBPort: must("DB_PORT"),      // database port
        DBName: must("DB_NAME"),      // database name

        JWTSecret: must("JWT_SECRET"), // secret for signing admission tokens

        HoldDuration:         envDur("HOLD_DURATION", 600*time.Second),
        ActiveSessionTTL:     envDur("ACTIVE_SESSION_TTL", 300*time.Second),
        AvailabilityCacheTTL: envDur("AVAILABILITY_CACHE_TTL", 5*time.Second),
        QueueInterval:        envDur("QUEUE_PROCESS_INTERVAL", time.Second),
        CleanupInterval:      envDur("CLEANUP_INTERVAL", 30*time.Second),
        AdmissionRatePerSec:  envInt("ADMISSION_RATE_PER_SEC", 10),
        MaxConcurrent:        envInt("MAX_CONCURRENT_SESSIONS", 100),
    }
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

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
