package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NumberingConfig controls how reference numbers are minted.
type NumberingConfig struct {
	Templates NumberTemplates `mapstructure:"templates"`
	Retry     RetryPolicy     `mapstructure:"retry"`
}

// NumberTemplates holds one template per sequence kind.
type NumberTemplates struct {
	Invoice          string `mapstructure:"invoice"`
	Quote            string `mapstructure:"quote"`
	BookingReference string `mapstructure:"bookingReference"`
}

// RetryPolicy bounds allocation retries after a lost race.
type RetryPolicy struct {
	MaxAttempts     int           `mapstructure:"maxAttempts"`
	InitialInterval time.Duration `mapstructure:"initialInterval"`
	MaxInterval     time.Duration `mapstructure:"maxInterval"`
}

func DefaultNumberingConfig() NumberingConfig {
	return NumberingConfig{
		Templates: NumberTemplates{
			Invoice:          "INV-{YYYY}-{SEQ5}",
			Quote:            "QUO-{YYYY}-{SEQ5}",
			BookingReference: "BKG-{YY}{SEQ6}",
		},
		Retry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: 25 * time.Millisecond,
			MaxInterval:     250 * time.Millisecond,
		},
	}
}

type NumberingConfigHolder struct {
	current atomic.Value // holds NumberingConfig
}

// NewStaticNumberingConfigHolder returns a holder that never reloads.
func NewStaticNumberingConfigHolder(cfg NumberingConfig) *NumberingConfigHolder {
	holder := &NumberingConfigHolder{}
	holder.current.Store(withDefaults(cfg))
	return holder
}

// NewNumberingConfigHolder reads numbering.yml and keeps it hot-reloaded.
func NewNumberingConfigHolder(cfg Config) (*NumberingConfigHolder, error) {
	v := viper.New()

	if cfg.NumberingFile != "" {
		v.SetConfigFile(cfg.NumberingFile)
	} else {
		v.SetConfigName("numbering")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/motorbook")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MOTORBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNumberingConfig()
	v.SetDefault("numbering.templates.invoice", defaults.Templates.Invoice)
	v.SetDefault("numbering.templates.quote", defaults.Templates.Quote)
	v.SetDefault("numbering.templates.bookingReference", defaults.Templates.BookingReference)
	v.SetDefault("numbering.retry.maxAttempts", defaults.Retry.MaxAttempts)
	v.SetDefault("numbering.retry.initialInterval", defaults.Retry.InitialInterval)
	v.SetDefault("numbering.retry.maxInterval", defaults.Retry.MaxInterval)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var loaded NumberingConfig
	if err := v.UnmarshalKey("numbering", &loaded); err != nil {
		return nil, err
	}
	if err := ValidateNumberingConfig(loaded); err != nil {
		return nil, err
	}

	holder := &NumberingConfigHolder{}
	holder.current.Store(withDefaults(loaded))

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated NumberingConfig
			if err := v.UnmarshalKey("numbering", &updated); err != nil {
				zap.L().Warn("numbering config reload failed", zap.Error(err))
				return
			}
			if err := ValidateNumberingConfig(updated); err != nil {
				zap.L().Warn("invalid numbering config ignored", zap.Error(err))
				return
			}
			holder.current.Store(withDefaults(updated))
			zap.L().Info("numbering config reloaded", zap.String("file", filepath.Base(e.Name)))
		})
	}

	return holder, nil
}

func (h *NumberingConfigHolder) Get() NumberingConfig {
	if h == nil {
		return DefaultNumberingConfig()
	}
	cfg, ok := h.current.Load().(NumberingConfig)
	if !ok {
		return DefaultNumberingConfig()
	}
	return cfg
}

// ValidateNumberingConfig rejects templates that cannot carry a sequence value.
func ValidateNumberingConfig(cfg NumberingConfig) error {
	templates := map[string]string{
		"invoice":          cfg.Templates.Invoice,
		"quote":            cfg.Templates.Quote,
		"bookingReference": cfg.Templates.BookingReference,
	}
	for name, tpl := range templates {
		if strings.TrimSpace(tpl) == "" {
			continue
		}
		if !strings.Contains(tpl, "{SEQ") {
			return fmt.Errorf("numbering.templates.%s must contain a {SEQ} token", name)
		}
	}
	if cfg.Retry.MaxAttempts < 0 {
		return errors.New("numbering.retry.maxAttempts cannot be negative")
	}
	return nil
}

func withDefaults(cfg NumberingConfig) NumberingConfig {
	defaults := DefaultNumberingConfig()
	if strings.TrimSpace(cfg.Templates.Invoice) == "" {
		cfg.Templates.Invoice = defaults.Templates.Invoice
	}
	if strings.TrimSpace(cfg.Templates.Quote) == "" {
		cfg.Templates.Quote = defaults.Templates.Quote
	}
	if strings.TrimSpace(cfg.Templates.BookingReference) == "" {
		cfg.Templates.BookingReference = defaults.Templates.BookingReference
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if cfg.Retry.InitialInterval <= 0 {
		cfg.Retry.InitialInterval = defaults.Retry.InitialInterval
	}
	if cfg.Retry.MaxInterval <= 0 {
		cfg.Retry.MaxInterval = defaults.Retry.MaxInterval
	}
	return cfg
}
