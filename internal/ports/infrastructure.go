package ports

import "time"

// AppConfig represents application-level settings
type AppConfig struct {
	Environment  string
	DefaultTitle string
}

// PushConfig represents dispatch settings shared by all transports
type PushConfig struct {
	SendTimeout       time.Duration
	TokenConcurrency  int
	RelayVendorMarker string
}

// CampaignConfig represents campaign scheduler settings
type CampaignConfig struct {
	Timezone             string
	EnabledJobs          []string
	RecipientConcurrency int
	StatusPolicy         string
	DeviceFanout         string
	StateTimeout         time.Duration
}

// LedgerConfig represents dedup ledger retention settings
type LedgerConfig struct {
	CacheRetention   time.Duration
	DurableRetention time.Duration
	Timezone         string
}

// ConfigProvider defines the contract for configuration management
type ConfigProvider interface {
	GetAppConfig() AppConfig
	GetPushConfig() PushConfig
	GetCampaignConfig() CampaignConfig
	GetLedgerConfig() LedgerConfig
}

// Logger defines the contract for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a log field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// MetricsCollector defines the contract for domain metrics collection
type MetricsCollector interface {
	RecordDelivery(transport string, success bool)
	RecordEviction(success bool)
	ObserveDispatch(duration time.Duration)
	RecordLedgerLookup(layer string, hit bool)
	RecordCampaignRecipient(job, result string)
}
