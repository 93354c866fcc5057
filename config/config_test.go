package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/fundbot/config"
	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
funds:
  - fid: "100038"
    name: "CSI 300"
    index: "SH000300"
    kind: pe
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Engine.BaseCapital)
	assert.Equal(t, 650, cfg.Engine.MinHistory)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, "https://danjuanapp.com", cfg.API.DanjuanBase)
	assert.Equal(t, "fundbot.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)

	// defaults por fondo
	fund := cfg.Funds[0]
	assert.Equal(t, "ratio-price", fund.Strategy.Variant)
	assert.Equal(t, 365, fund.Strategy.AvgDays)
	assert.Equal(t, 365*5, fund.Strategy.WatermarkDays)
	assert.Equal(t, 2015, fund.InceptionYear)
}

func TestLoad_Instruments(t *testing.T) {
	path := writeConfig(t, `
funds:
  - fid: "161725"
    name: "Liquor"
    index: "SZ399997"
    kind: pe
    split_adjusted: true
    fee_rate_bp: 50
    strategy:
      ratio_exponent: 2
      price_exponent: 4
  - fid: "njbqg"
    name: "Composite"
    strategy:
      variant: price-only
      price_exponent: 10
    components:
      - fid: "000968"
        percent: 50
      - fid: "100038"
        percent: 50
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	instruments := cfg.Instruments()
	require.Len(t, instruments, 2)

	liquor := instruments[0]
	assert.Equal(t, domain.ValuationPE, liquor.Kind)
	assert.True(t, liquor.SplitAdjusted)
	assert.False(t, liquor.IsComposite())
	assert.InDelta(t, 50.0, liquor.FeeRateBp, 1e-9)

	composite := instruments[1]
	assert.True(t, composite.IsComposite())
	require.Len(t, composite.Components, 2)
	assert.Equal(t, "000968", composite.Components[0].FID)

	_, ok := cfg.Fund("161725")
	assert.True(t, ok)
	_, ok = cfg.Fund("missing")
	assert.False(t, ok)
}

func TestLoad_RejectsDuplicateFID(t *testing.T) {
	path := writeConfig(t, `
funds:
  - fid: "100038"
    index: "SH000300"
    kind: pe
  - fid: "100038"
    index: "SH000300"
    kind: pe
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate fund 100038")
}

func TestLoad_RatioPriceRequiresIndex(t *testing.T) {
	path := writeConfig(t, `
funds:
  - fid: "100038"
    strategy:
      ratio_exponent: 2
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires index and kind")
}

func TestLoad_NegativeRatioExponentSkipsIndexCheck(t *testing.T) {
	// exponente negativo desactiva el factor ratio: no hace falta índice
	path := writeConfig(t, `
funds:
  - fid: "000215"
    strategy:
      ratio_exponent: -1
      price_exponent: 100
`)

	_, err := config.Load(path)
	assert.NoError(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FUNDBOT_DSN", ":memory:")

	path := writeConfig(t, `
funds:
  - fid: "100038"
    index: "SH000300"
    kind: pe
log:
  level: warn
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
