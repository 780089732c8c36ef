package infrastructure

import (
	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/ports"
)

// ConfigProviderAdapter implements the ConfigProvider port
type ConfigProviderAdapter struct {
	config *config.Config
}

// NewConfigProviderAdapter creates a new config provider adapter
func NewConfigProviderAdapter(cfg *config.Config) *ConfigProviderAdapter {
	return &ConfigProviderAdapter{
		config: cfg,
	}
}

func (c *ConfigProviderAdapter) GetAppConfig() ports.AppConfig {
	return ports.AppConfig{
		Environment:  c.config.Server.Environment,
		DefaultTitle: c.config.Server.DefaultTitle,
	}
}

func (c *ConfigProviderAdapter) GetPushConfig() ports.PushConfig {
	return ports.PushConfig{
		SendTimeout:       c.config.Push.SendTimeout,
		TokenConcurrency:  c.config.Push.TokenConcurrency,
		RelayVendorMarker: c.config.Push.RelayMarker,
	}
}

// GetCampaignConfig bounds each state lookup by the treatment API timeout.
func (c *ConfigProviderAdapter) GetCampaignConfig() ports.CampaignConfig {
	return ports.CampaignConfig{
		Timezone:             c.config.Campaign.Timezone,
		EnabledJobs:          c.config.Campaign.Jobs,
		RecipientConcurrency: c.config.Campaign.RecipientConcurrency,
		StatusPolicy:         c.config.Campaign.StatusPolicy,
		DeviceFanout:         c.config.Campaign.DeviceFanout,
		StateTimeout:         c.config.Treatment.Timeout,
	}
}

// GetLedgerConfig keys ledger periods in the campaign timezone.
func (c *ConfigProviderAdapter) GetLedgerConfig() ports.LedgerConfig {
	return ports.LedgerConfig{
		CacheRetention:   c.config.Ledger.CacheRetention,
		DurableRetention: c.config.Ledger.DurableRetention,
		Timezone:         c.config.Campaign.Timezone,
	}
}
