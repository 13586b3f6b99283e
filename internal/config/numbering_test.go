package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberingConfigExplicitMissingFileFails(t *testing.T) {
	dir := t.TempDir()
	_, err := NewNumberingConfigHolder(Config{NumberingFile: filepath.Join(dir, "missing.yml")})
	assert.Error(t, err)
}

func TestStaticNumberingConfigFillsDefaults(t *testing.T) {
	static := NewStaticNumberingConfigHolder(NumberingConfig{})
	assert.Equal(t, DefaultNumberingConfig(), static.Get())
}

func TestNumberingConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "numbering.yml")
	content := []byte(`numbering:
  templates:
    invoice: "GAR-INV-{YYYY}-{SEQ4}"
  retry:
    maxAttempts: 5
    initialInterval: 10ms
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewNumberingConfigHolder(Config{NumberingFile: path})
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "GAR-INV-{YYYY}-{SEQ4}", cfg.Templates.Invoice)
	assert.Equal(t, DefaultNumberingConfig().Templates.Quote, cfg.Templates.Quote)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.InitialInterval)
}

func TestValidateNumberingConfigRequiresSequenceToken(t *testing.T) {
	cfg := DefaultNumberingConfig()
	cfg.Templates.Quote = "QUO-{YYYY}"
	assert.Error(t, ValidateNumberingConfig(cfg))

	cfg = DefaultNumberingConfig()
	cfg.Retry.MaxAttempts = -1
	assert.Error(t, ValidateNumberingConfig(cfg))

	assert.NoError(t, ValidateNumberingConfig(DefaultNumberingConfig()))
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Config{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, Config{}.Location())
	assert.Equal(t, "Europe/London", Config{Timezone: "Europe/London"}.Location().String())
}
