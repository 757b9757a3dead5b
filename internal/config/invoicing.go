package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	invoiceformat "github.com/smallbiznis/bizadmin/internal/invoice/format"
	"github.com/spf13/viper"
)

// InvoicingConfig is the hot-reloadable part of the configuration.
type InvoicingConfig struct {
	NumberTemplate string       `mapstructure:"numberTemplate"`
	Export         ExportConfig `mapstructure:"export"`
}

type ExportConfig struct {
	// RatePerSecond and Burst size the per-owner token bucket.
	RatePerSecond float64 `mapstructure:"ratePerSecond"`
	Burst         int     `mapstructure:"burst"`
	// CacheTTLSeconds bounds how long a rendered document stays cached.
	CacheTTLSeconds int `mapstructure:"cacheTTLSeconds"`
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		NumberTemplate: "FY{YYYY}-{MM}-{SEQ3}",
		Export: ExportConfig{
			RatePerSecond:   1,
			Burst:           10,
			CacheTTLSeconds: 3600,
		},
	}
}

type InvoicingConfigHolder struct {
	current atomic.Value // holds InvoicingConfig
}

// NewStaticInvoicingConfigHolder returns a holder that never reloads.
func NewStaticInvoicingConfigHolder(cfg InvoicingConfig) *InvoicingConfigHolder {
	holder := &InvoicingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInvoicingConfigHolder() (*InvoicingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/bizadmin")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BIZADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvoicingConfig()
	v.SetDefault("invoicing.numberTemplate", defaults.NumberTemplate)
	v.SetDefault("invoicing.export.ratePerSecond", defaults.Export.RatePerSecond)
	v.SetDefault("invoicing.export.burst", defaults.Export.Burst)
	v.SetDefault("invoicing.export.cacheTTLSeconds", defaults.Export.CacheTTLSeconds)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg InvoicingConfig
	if err := v.UnmarshalKey("invoicing", &cfg); err != nil {
		return nil, err
	}
	if err := validateInvoicingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticInvoicingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvoicingConfig
		if err := v.UnmarshalKey("invoicing", &updated); err != nil {
			log.Printf("[invoicing-config] reload failed: %v", err)
			return
		}
		if err := validateInvoicingConfig(updated); err != nil {
			log.Printf("[invoicing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invoicing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *InvoicingConfigHolder) Get() InvoicingConfig {
	return h.current.Load().(InvoicingConfig)
}

func validateInvoicingConfig(cfg InvoicingConfig) error {
	if err := invoiceformat.ValidateTemplate(strings.TrimSpace(cfg.NumberTemplate)); err != nil {
		return fmt.Errorf("invoicing.numberTemplate: %w", err)
	}
	if cfg.Export.RatePerSecond <= 0 {
		return errors.New("invoicing.export.ratePerSecond must be positive")
	}
	if cfg.Export.Burst <= 0 {
		return errors.New("invoicing.export.burst must be positive")
	}
	return nil
}
