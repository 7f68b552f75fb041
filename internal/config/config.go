package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Port          string        `toml:"port"`
	Env           string        `toml:"env"`
	DBDSN         string        `toml:"db_dsn"`
	LogFile       string        `toml:"log_file"`
	JWTSecret     string        `toml:"jwt_secret"`
	SessionTTL    time.Duration `toml:"-"`
	SessionTTLRaw string        `toml:"session_ttl"`
	CookieName    string        `toml:"cookie_name"`
	BaseURL       string        `toml:"base_url"`
	CORSOrigin    string        `toml:"cors_origin"`
	AdminEmail    string        `toml:"admin_email"`
	AdminPassword string        `toml:"admin_password"`
	SeedDemo      bool          `toml:"seed_demo"`
	LoginRateMax  int           `toml:"login_rate_max"`
	Version       string        `toml:"-"`
}

// Defaults returns the configuration used when nothing is set. Tests start
// from here.
func Defaults() Config {
	return Config{
		Port:         "8080",
		Env:          EnvDevelopment,
		DBDSN:        "wleci.db", // sqlite file in project root
		SessionTTL:   8 * time.Hour,
		CookieName:   "wleci.session-token",
		BaseURL:      "http://localhost:8080",
		LoginRateMax: 10,
		Version:      "1.0.0",
	}
}

func Load() Config {
	// .env is optional; production injects real environment variables.
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			log.Printf("[warn] could not read config file %s: %v", path, err)
		} else if cfg.SessionTTLRaw != "" {
			if d, err := time.ParseDuration(cfg.SessionTTLRaw); err == nil {
				cfg.SessionTTL = d
			}
		}
	}

	str(&cfg.Port, "PORT")
	str(&cfg.Env, "APP_ENV")
	str(&cfg.DBDSN, "DB_DSN")
	str(&cfg.LogFile, "LOG_FILE")
	str(&cfg.JWTSecret, "JWT_SECRET")
	str(&cfg.CookieName, "COOKIE_NAME")
	str(&cfg.BaseURL, "BASE_URL")
	str(&cfg.CORSOrigin, "CORS_ORIGIN")
	str(&cfg.AdminEmail, "ADMIN_EMAIL")
	str(&cfg.AdminPassword, "ADMIN_PASSWORD")
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTTL = d
		} else {
			log.Printf("[warn] ignoring invalid SESSION_TTL=%q", v)
		}
	}
	if v := os.Getenv("SEED_DEMO"); v != "" {
		cfg.SeedDemo, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("LOGIN_RATE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LoginRateMax = n
		}
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			log.Fatal("[config] JWT_SECRET is not set. Refusing to start.")
		}
		cfg.JWTSecret = randomSecret()
		log.Printf("[warn] JWT_SECRET not set; using a random per-process secret (sessions will not survive restarts)")
	}

	log.Printf("[config] PORT=%s APP_ENV=%s DB_DSN=%s LOG_FILE=%s SESSION_TTL=%s COOKIE_NAME=%s",
		cfg.Port, cfg.Env, redactDSN(cfg.DBDSN), cfg.LogFile, cfg.SessionTTL, cfg.CookieName)
	return cfg
}

func (c Config) IsDevelopment() bool { return c.Env == "" || c.Env == EnvDevelopment }

// CookieSecure is false only for local development over plain HTTP.
func (c Config) CookieSecure() bool { return !c.IsDevelopment() }

// CSRFCookieName shares the brand prefix of the session cookie.
func (c Config) CSRFCookieName() string {
	if i := strings.Index(c.CookieName, "."); i > 0 {
		return c.CookieName[:i] + ".csrf-token"
	}
	return "csrf-token"
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// redactDSN hides the password part of a postgres URL.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
