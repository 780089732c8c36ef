package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"pushdispatch.app/pkg/errors"
)

const (
	maxRedisDB           = 15
	maxPortNumber        = 65535
	maxSendTimeout       = time.Hour
	maxConcurrency       = 1024
	minCacheRetention    = time.Hour
	minDurableRetention  = 24 * time.Hour
	defaultRelayEndpoint = "https://exp.host/--/api/v2/push/send"
)

// Config represents the application configuration structure
type Config struct {
	Server    ServerConfig    `split_words:"true"`
	Database  DatabaseConfig  `split_words:"true"`
	Cache     CacheConfig     `split_words:"true"`
	Push      PushConfig      `split_words:"true"`
	Treatment TreatmentConfig `split_words:"true"`
	Campaign  CampaignConfig  `split_words:"true"`
	Ledger    LedgerConfig    `split_words:"true"`
	Logging   LoggingConfig   `split_words:"true"`
}

type ServerConfig struct {
	Port         int    `envconfig:"SERVER_PORT" default:"3000"`
	Environment  string `envconfig:"APP_ENV" default:"development"`
	DefaultTitle string `envconfig:"APP_NOTIFICATION_TITLE" default:"Cxlus"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"pushdispatch"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
}

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// CacheType represents the type of cache to use
type CacheType int

const (
	CacheTypeUnknown CacheType = iota
	CacheTypeMemory
	CacheTypeRedis
)

// String returns the string representation of cache type
func (c CacheType) String() string {
	switch c {
	case CacheTypeMemory:
		return "memory"
	case CacheTypeRedis:
		return "redis"
	default:
		return "unknown"
	}
}

// IsValid checks if the cache type is valid
func (c CacheType) IsValid() bool {
	return c == CacheTypeMemory || c == CacheTypeRedis
}

// CacheTypeFromString converts string to CacheType enum
func CacheTypeFromString(s string) CacheType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory":
		return CacheTypeMemory
	case "redis":
		return CacheTypeRedis
	default:
		return CacheTypeUnknown
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for envconfig
func (c *CacheType) UnmarshalText(text []byte) error {
	*c = CacheTypeFromString(string(text))
	return nil
}

// MarshalText implements encoding.TextMarshaler for envconfig
func (c CacheType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type CacheConfig struct {
	Type  CacheType   `envconfig:"CACHE_TYPE" default:"memory"`
	Redis RedisConfig `split_words:"true"`
}

type RedisConfig struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
}

// TokenPushProvider selects the backend of the token-push transport
type TokenPushProvider int

const (
	TokenPushUnknown TokenPushProvider = iota
	TokenPushFCM
	TokenPushAPNS
	TokenPushDisabled
)

func (p TokenPushProvider) String() string {
	switch p {
	case TokenPushFCM:
		return "fcm"
	case TokenPushAPNS:
		return "apns"
	case TokenPushDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

func (p TokenPushProvider) IsValid() bool {
	return p == TokenPushFCM || p == TokenPushAPNS || p == TokenPushDisabled
}

func TokenPushProviderFromString(s string) TokenPushProvider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fcm", "firebase":
		return TokenPushFCM
	case "apns":
		return TokenPushAPNS
	case "disabled", "none":
		return TokenPushDisabled
	default:
		return TokenPushUnknown
	}
}

func (p *TokenPushProvider) UnmarshalText(text []byte) error {
	*p = TokenPushProviderFromString(string(text))
	return nil
}

func (p TokenPushProvider) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type PushConfig struct {
	TokenProvider TokenPushProvider `envconfig:"PUSH_TOKEN_PROVIDER" default:"fcm"`

	FirebaseCredentialsFile string `envconfig:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseClientEmail     string `envconfig:"FIREBASE_CLIENT_EMAIL"`
	FirebasePrivateKey      string `envconfig:"FIREBASE_PRIVATE_KEY"`

	APNSKeyFile    string `envconfig:"APNS_KEY_FILE"`
	APNSKeyID      string `envconfig:"APNS_KEY_ID"`
	APNSTeamID     string `envconfig:"APNS_TEAM_ID"`
	APNSBundleID   string `envconfig:"APNS_BUNDLE_ID"`
	APNSProduction bool   `envconfig:"APNS_PRODUCTION" default:"true"`

	RelayURL         string        `envconfig:"PUSH_RELAY_URL" default:"https://exp.host/--/api/v2/push/send"`
	RelayMarker      string        `envconfig:"PUSH_RELAY_MARKER" default:"expo"`
	SendTimeout      time.Duration `envconfig:"PUSH_SEND_TIMEOUT" default:"30s"`
	TokenConcurrency int           `envconfig:"PUSH_TOKEN_CONCURRENCY" default:"32"`
}

// HasFirebaseEnvCredentials reports whether the service account is given inline.
func (p PushConfig) HasFirebaseEnvCredentials() bool {
	return p.FirebaseProjectID != "" && p.FirebaseClientEmail != "" && p.FirebasePrivateKey != ""
}

type TreatmentConfig struct {
	BaseURL string        `envconfig:"TREATMENT_API_BASE_URL" default:"https://app.cxlus.com/api"`
	Token   string        `envconfig:"TREATMENT_API_TOKEN"`
	Timeout time.Duration `envconfig:"TREATMENT_API_TIMEOUT" default:"10s"`
}

type CampaignConfig struct {
	Enabled              bool     `envconfig:"CAMPAIGN_ENABLED" default:"true"`
	Timezone             string   `envconfig:"CAMPAIGN_TIMEZONE" default:"Europe/London"`
	Jobs                 []string `envconfig:"CAMPAIGN_JOBS" default:"morning,afternoon,evening,hourly"`
	RecipientConcurrency int      `envconfig:"CAMPAIGN_RECIPIENT_CONCURRENCY" default:"8"`
	StatusPolicy         string   `envconfig:"CAMPAIGN_STATUS_POLICY" default:"replace"`
	DeviceFanout         string   `envconfig:"CAMPAIGN_DEVICE_FANOUT" default:"first"`
}

type LedgerConfig struct {
	CacheRetention   time.Duration `envconfig:"LEDGER_CACHE_RETENTION" default:"48h"`
	DurableRetention time.Duration `envconfig:"LEDGER_DURABLE_RETENTION" default:"168h"`
}

type LoggingConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"info"`
	FilePath string `envconfig:"LOG_FILE_PATH"`
	// Transports wraps both push transports in request logging.
	Transports bool `envconfig:"LOG_TRANSPORTS" default:"false"`
}

// SlogLevel maps the configured level name onto slog.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Push.Validate(); err != nil {
		return err
	}
	if err := c.Campaign.Validate(); err != nil {
		return err
	}
	if c.Campaign.Enabled {
		if err := c.Treatment.Validate(); err != nil {
			return err
		}
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > maxPortNumber {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	if strings.TrimSpace(s.DefaultTitle) == "" {
		return errors.NewConfigurationError("APP_NOTIFICATION_TITLE cannot be empty", nil)
	}
	return nil
}

func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.NewConfigurationError("DB_HOST cannot be empty", nil)
	}
	if d.Port < 1 || d.Port > maxPortNumber {
		return errors.NewConfigurationError("DB_PORT must be between 1 and 65535", nil)
	}
	if d.User == "" {
		return errors.NewConfigurationError("DB_USER cannot be empty", nil)
	}
	if d.Name == "" {
		return errors.NewConfigurationError("DB_NAME cannot be empty", nil)
	}
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	for _, mode := range validSSLModes {
		if d.SSLMode == mode {
			return nil
		}
	}
	return errors.NewConfigurationError(
		fmt.Sprintf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", ")), nil)
}

func (c *CacheConfig) Validate() error {
	if !c.Type.IsValid() {
		return errors.NewConfigurationError("CACHE_TYPE must be one of: memory, redis", nil)
	}

	if c.Type == CacheTypeRedis {
		return c.Redis.Validate()
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if r.Addr == "" {
		return errors.NewConfigurationError("REDIS_ADDR cannot be empty when using Redis cache", nil)
	}
	if r.DB < 0 || r.DB > maxRedisDB {
		return errors.NewConfigurationError("REDIS_DB must be between 0 and 15", nil)
	}
	if r.DialTimeout < 1 {
		return errors.NewConfigurationError("REDIS_DIAL_TIMEOUT must be at least 1 second", nil)
	}
	if r.ReadTimeout < 1 {
		return errors.NewConfigurationError("REDIS_READ_TIMEOUT must be at least 1 second", nil)
	}
	if r.WriteTimeout < 1 {
		return errors.NewConfigurationError("REDIS_WRITE_TIMEOUT must be at least 1 second", nil)
	}
	return nil
}

func (p *PushConfig) Validate() error {
	switch p.TokenProvider {
	case TokenPushFCM:
		if p.FirebaseCredentialsFile == "" && !p.HasFirebaseEnvCredentials() {
			return errors.NewConfigurationError(
				"FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID, FIREBASE_CLIENT_EMAIL and FIREBASE_PRIVATE_KEY must be set", nil)
		}
	case TokenPushAPNS:
		if p.APNSKeyFile == "" || p.APNSKeyID == "" || p.APNSTeamID == "" || p.APNSBundleID == "" {
			return errors.NewConfigurationError(
				"APNS_KEY_FILE, APNS_KEY_ID, APNS_TEAM_ID and APNS_BUNDLE_ID must be set for the apns provider", nil)
		}
	case TokenPushDisabled:
	default:
		return errors.NewConfigurationError("PUSH_TOKEN_PROVIDER must be one of: fcm, apns, disabled", nil)
	}

	if p.RelayURL == "" {
		p.RelayURL = defaultRelayEndpoint
	}
	if u, err := url.Parse(p.RelayURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.NewConfigurationError("PUSH_RELAY_URL must be an http(s) URL", err)
	}
	if strings.TrimSpace(p.RelayMarker) == "" {
		return errors.NewConfigurationError("PUSH_RELAY_MARKER cannot be empty", nil)
	}
	if p.SendTimeout <= 0 || p.SendTimeout > maxSendTimeout {
		return errors.NewConfigurationError("PUSH_SEND_TIMEOUT must be positive and at most 1h", nil)
	}
	if p.TokenConcurrency < 1 || p.TokenConcurrency > maxConcurrency {
		return errors.NewConfigurationError("PUSH_TOKEN_CONCURRENCY must be between 1 and 1024", nil)
	}
	return nil
}

func (t *TreatmentConfig) Validate() error {
	if !strings.HasPrefix(t.BaseURL, "http://") && !strings.HasPrefix(t.BaseURL, "https://") {
		return errors.NewConfigurationError("TREATMENT_API_BASE_URL must start with http:// or https://", nil)
	}
	if t.Token == "" {
		return errors.NewConfigurationError("TREATMENT_API_TOKEN is required when campaigns are enabled", nil)
	}
	if t.Timeout <= 0 {
		return errors.NewConfigurationError("TREATMENT_API_TIMEOUT must be positive", nil)
	}
	return nil
}

func (c *CampaignConfig) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.NewConfigurationError(fmt.Sprintf("CAMPAIGN_TIMEZONE %q is not a valid IANA zone", c.Timezone), err)
	}
	if c.RecipientConcurrency < 1 || c.RecipientConcurrency > maxConcurrency {
		return errors.NewConfigurationError("CAMPAIGN_RECIPIENT_CONCURRENCY must be between 1 and 1024", nil)
	}
	if c.StatusPolicy != "replace" && c.StatusPolicy != "suppress" {
		return errors.NewConfigurationError("CAMPAIGN_STATUS_POLICY must be one of: replace, suppress", nil)
	}
	if c.DeviceFanout != "first" && c.DeviceFanout != "all" {
		return errors.NewConfigurationError("CAMPAIGN_DEVICE_FANOUT must be one of: first, all", nil)
	}
	return nil
}

func (l *LedgerConfig) Validate() error {
	if l.CacheRetention < minCacheRetention {
		return errors.NewConfigurationError("LEDGER_CACHE_RETENTION must be at least 1h", nil)
	}
	if l.DurableRetention < minDurableRetention {
		return errors.NewConfigurationError("LEDGER_DURABLE_RETENTION must be at least 24h", nil)
	}
	if l.DurableRetention < l.CacheRetention {
		return errors.NewConfigurationError("LEDGER_DURABLE_RETENTION cannot be shorter than LEDGER_CACHE_RETENTION", nil)
	}
	return nil
}
