package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"app_env"`
		// URL pública del broker; base de los callbacks de proveedores.
		BaseURL string `yaml:"base_url"`
	} `yaml:"app"`

	Server struct {
		Addr               string        `yaml:"addr"`
		CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
		// Proxies (IP o CIDR) cuyo X-Forwarded-For se respeta. Vacío = solo RemoteAddr.
		TrustedProxies     []string      `yaml:"trusted_proxies"`
		ReadTimeout        time.Duration `yaml:"read_timeout"`
		WriteTimeout       time.Duration `yaml:"write_timeout"`
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Cookies struct {
		// Solo se aplica en prod (junto con Secure).
		Domain   string `yaml:"domain"`
		SameSite string `yaml:"samesite"`
	} `yaml:"cookies"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int           `yaml:"max_open_conns"`
			MaxIdleConns    int           `yaml:"max_idle_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		MigrateOnStart bool `yaml:"migrate_on_start"`
	} `yaml:"storage"`

	Cache struct {
		// redis | memory
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		AccessTTL   time.Duration `yaml:"access_ttl"`
		RefreshTTL  time.Duration `yaml:"refresh_ttl"`
		KeyCacheTTL time.Duration `yaml:"key_cache_ttl"`
	} `yaml:"jwt"`

	Flow struct {
		StateTTL time.Duration `yaml:"state_ttl"`
		CodeTTL  time.Duration `yaml:"code_ttl"`
	} `yaml:"flow"`

	Providers struct {
		HTTPTimeout time.Duration `yaml:"http_timeout"`
		Discord     struct {
			Enabled      bool   `yaml:"enabled"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			AuthURL      string `yaml:"auth_url"`
			TokenURL     string `yaml:"token_url"`
			ProfileURL   string `yaml:"profile_url"`
		} `yaml:"discord"`
		Steam struct {
			Enabled      bool   `yaml:"enabled"`
			APIKey       string `yaml:"api_key"`
			OpenIDURL    string `yaml:"openid_url"`
			SummariesURL string `yaml:"summaries_url"`
		} `yaml:"steam"`
	} `yaml:"providers"`

	Rate struct {
		Enabled     bool          `yaml:"enabled"`
		Window      time.Duration `yaml:"window"`
		MaxRequests int           `yaml:"max_requests"`
	} `yaml:"rate"`

	Security struct {
		// base64 de 32 bytes; sella las claves privadas de cada app.
		SecretBoxMasterKey string `yaml:"secretbox_master_key"`
	} `yaml:"security"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Load lee config.yaml, completa defaults y pisa con variables de entorno.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, nil
}

// FromEnv arma la config solo con defaults + entorno (sin archivo).
func FromEnv() *Config {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c
}

// IsProd indica si las cookies llevan Secure + Domain.
func (c *Config) IsProd() bool { return c.App.Env == EnvProd }

// CallbackURL arma {base_url}{path} sin barras duplicadas.
func (c *Config) CallbackURL(path string) string {
	return strings.TrimRight(c.App.BaseURL, "/") + path
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = EnvDev
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Cookies.SameSite == "" {
		c.Cookies.SameSite = "Lax"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "redis"
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = 300 * time.Second
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = 259200 * time.Second // 3 días
	}
	if c.JWT.KeyCacheTTL == 0 {
		c.JWT.KeyCacheTTL = 10 * time.Minute
	}
	if c.Flow.StateTTL == 0 {
		c.Flow.StateTTL = 30 * time.Second
	}
	if c.Flow.CodeTTL == 0 {
		c.Flow.CodeTTL = 30 * time.Second
	}
	if c.Providers.HTTPTimeout == 0 {
		c.Providers.HTTPTimeout = 10 * time.Second
	}
	d := &c.Providers.Discord
	if d.AuthURL == "" {
		d.AuthURL = "https://discord.com/api/oauth2/authorize"
	}
	if d.TokenURL == "" {
		d.TokenURL = "https://discord.com/api/oauth2/token"
	}
	if d.ProfileURL == "" {
		d.ProfileURL = "https://discord.com/api/users/@me"
	}
	s := &c.Providers.Steam
	if s.OpenIDURL == "" {
		s.OpenIDURL = "https://steamcommunity.com/openid/login"
	}
	if s.SummariesURL == "" {
		s.SummariesURL = "https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v0002/"
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(strings.TrimSpace(v))
	}
	// DEV=1 fuerza modo dev (compat con despliegues viejos)
	if v, ok := getEnvBool("DEV"); ok && v {
		c.App.Env = EnvDev
	}
	if v, ok := getEnvStr("BASE_URL"); ok {
		c.App.BaseURL = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// COOKIES
	if v, ok := getEnvStr("COOKIE_DOMAIN"); ok {
		c.Cookies.Domain = v
	}
	if v, ok := getEnvStr("BASE_DOMAIN"); ok && c.Cookies.Domain == "" {
		c.Cookies.Domain = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	} else if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE_ON_START"); ok {
		c.Storage.MigrateOnStart = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// JWT
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvDur("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}

	// PROVIDERS
	if v, ok := getEnvStr("DISCORD_CLIENT_ID"); ok {
		c.Providers.Discord.ClientID = v
		c.Providers.Discord.Enabled = true
	}
	if v, ok := getEnvStr("DISCORD_CLIENT_SECRET"); ok {
		c.Providers.Discord.ClientSecret = v
	}
	if v, ok := getEnvStr("STEAM_API_KEY"); ok {
		c.Providers.Steam.APIKey = v
		c.Providers.Steam.Enabled = true
	}
	if v, ok := getEnvDur("PROVIDERS_HTTP_TIMEOUT"); ok {
		c.Providers.HTTPTimeout = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretBoxMasterKey = v
	}

	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// Validate chequea lo necesario para levantar `serve`.
func (c *Config) Validate() error {
	var errs []error
	switch c.App.Env {
	case EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("app.app_env: %q (dev|prod)", c.App.Env))
	}
	if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("app.base_url: absolute URL required"))
	}
	if c.IsProd() && strings.TrimSpace(c.Cookies.Domain) == "" {
		errs = append(errs, errors.New("cookies.domain: required in prod"))
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn: required for postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: %q (postgres|memory)", c.Storage.Driver))
	}
	switch c.Cache.Kind {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("cache.kind: %q (redis|memory)", c.Cache.Kind))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("jwt: ttls must be positive"))
	}
	if c.Flow.StateTTL <= 0 || c.Flow.CodeTTL <= 0 {
		errs = append(errs, errors.New("flow: ttls must be positive"))
	}
	if d := c.Providers.Discord; d.Enabled && (d.ClientID == "" || d.ClientSecret == "") {
		errs = append(errs, errors.New("providers.discord: client_id and client_secret required"))
	}
	if s := c.Providers.Steam; s.Enabled && s.APIKey == "" {
		errs = append(errs, errors.New("providers.steam: api_key required"))
	}
	if !c.Providers.Discord.Enabled && !c.Providers.Steam.Enabled {
		errs = append(errs, errors.New("providers: at least one provider must be enabled"))
	}
	if strings.TrimSpace(c.Security.SecretBoxMasterKey) == "" {
		errs = append(errs, errors.New("security.secretbox_master_key: required (openssl rand -base64 32)"))
	}
	if c.Rate.Enabled && (c.Rate.MaxRequests <= 0 || c.Rate.Window <= 0) {
		errs = append(errs, errors.New("rate: max_requests and window must be positive"))
	}
	return errors.Join(errs...)
}
