package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Funds   []FundConfig  `yaml:"funds"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla el comportamiento del motor de decisión.
type EngineConfig struct {
	BaseCapital int    `yaml:"base_capital"` // capital base por día, en unidades enteras
	MinHistory  int    `yaml:"min_history"`  // días hábiles mínimos antes de decidir
	BuylogDir   string `yaml:"buylog_dir"`   // directorio de los buy logs
	Workers     int    `yaml:"workers"`      // fondos procesados en paralelo
}

// FundConfig es la entrada del catálogo para un fondo.
type FundConfig struct {
	FID           string   `yaml:"fid"`
	Name          string   `yaml:"name"`
	Index         string   `yaml:"index"`          // código del índice seguido ("" si no hay)
	Kind          string   `yaml:"kind"`           // pe | pb | none
	FeeRateBp     float64  `yaml:"fee_rate_bp"`    // comisión de reembolso en puntos básicos
	InceptionYear int      `yaml:"inception_year"` // primer fetch: 1 de enero de este año
	SplitAdjusted bool     `yaml:"split_adjusted"` // ajuste multiplicativo de dividendos/splits
	Components    []Weight `yaml:"components"`     // fondo de fondos: componentes con peso

	Strategy StrategyConfig `yaml:"strategy"`
}

// Weight es un componente de un fondo de fondos.
type Weight struct {
	FID     string  `yaml:"fid"`
	Percent float64 `yaml:"percent"`
}

// StrategyConfig parametriza la estrategia de compra de un fondo.
type StrategyConfig struct {
	Variant       string  `yaml:"variant"`        // ratio-price | price-only | price-rank
	RatioExponent float64 `yaml:"ratio_exponent"` // negativo = ignorar la ratio
	PriceExponent float64 `yaml:"price_exponent"`
	AvgDays       int     `yaml:"avg_days"`       // ventana de la media de precio
	WatermarkDays int     `yaml:"watermark_days"` // ventana de la línea de agua del ratio
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	DanjuanBase       string `yaml:"danjuan_base"`
	EastmoneyAPIBase  string `yaml:"eastmoney_api_base"`
	EastmoneyLiveBase string `yaml:"eastmoney_live_base"`
}

// StorageConfig controla dónde se persiste el histórico de decisiones.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Instruments convierte el catálogo a instrumentos de dominio.
// El catálogo ya está validado en Load.
func (c *Config) Instruments() []domain.Instrument {
	out := make([]domain.Instrument, 0, len(c.Funds))
	for _, f := range c.Funds {
		out = append(out, f.toInstrument())
	}
	return out
}

// Fund busca un fondo del catálogo por código.
func (c *Config) Fund(fid string) (domain.Instrument, bool) {
	for _, f := range c.Funds {
		if f.FID == fid {
			return f.toInstrument(), true
		}
	}
	return domain.Instrument{}, false
}

func (f FundConfig) toInstrument() domain.Instrument {
	kind, _ := domain.ParseValuationKind(f.Kind)
	components := make([]domain.ComponentWeight, 0, len(f.Components))
	for _, w := range f.Components {
		components = append(components, domain.ComponentWeight{FID: w.FID, Percent: w.Percent})
	}
	return domain.Instrument{
		FID:           f.FID,
		Name:          f.Name,
		IndexCode:     f.Index,
		Kind:          kind,
		FeeRateBp:     f.FeeRateBp,
		InceptionYear: f.InceptionYear,
		SplitAdjusted: f.SplitAdjusted,
		Components:    components,
		Strategy: domain.StrategyParams{
			Variant:       f.Strategy.Variant,
			RatioExponent: f.Strategy.RatioExponent,
			PriceExponent: f.Strategy.PriceExponent,
			AvgDays:       f.Strategy.AvgDays,
			WatermarkDays: f.Strategy.WatermarkDays,
		},
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FUNDBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("FUNDBOT_BUYLOG_DIR"); v != "" {
		cfg.Engine.BuylogDir = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.BaseCapital <= 0 {
		cfg.Engine.BaseCapital = 100
	}
	if cfg.Engine.MinHistory <= 0 {
		cfg.Engine.MinHistory = 650
	}
	if cfg.Engine.BuylogDir == "" {
		cfg.Engine.BuylogDir = "buylogs"
	}
	if cfg.Engine.Workers <= 0 {
		cfg.Engine.Workers = 4
	}
	if cfg.API.DanjuanBase == "" {
		cfg.API.DanjuanBase = "https://danjuanapp.com"
	}
	if cfg.API.EastmoneyAPIBase == "" {
		cfg.API.EastmoneyAPIBase = "https://api.fund.eastmoney.com"
	}
	if cfg.API.EastmoneyLiveBase == "" {
		cfg.API.EastmoneyLiveBase = "https://fundgz.1234567.com.cn"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "fundbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	for i := range cfg.Funds {
		f := &cfg.Funds[i]
		if f.Strategy.Variant == "" {
			f.Strategy.Variant = "ratio-price"
		}
		if f.Strategy.AvgDays <= 0 {
			f.Strategy.AvgDays = 365
		}
		if f.Strategy.WatermarkDays <= 0 {
			f.Strategy.WatermarkDays = 365 * 5
		}
		if f.InceptionYear <= 0 {
			f.InceptionYear = 2015
		}
	}
}

// validate comprueba la coherencia del catálogo antes de arrancar.
func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Funds))
	for _, f := range cfg.Funds {
		if f.FID == "" {
			return fmt.Errorf("config.Load: fund without fid")
		}
		if seen[f.FID] {
			return fmt.Errorf("config.Load: duplicate fund %s", f.FID)
		}
		seen[f.FID] = true

		if _, err := domain.ParseValuationKind(f.Kind); err != nil {
			return fmt.Errorf("config.Load: fund %s: %w", f.FID, err)
		}
		// La variante por ratio necesita un índice valorable, salvo que el
		// exponente negativo desactive ese factor explícitamente.
		if f.Strategy.Variant == "ratio-price" && f.Strategy.RatioExponent >= 0 {
			if f.Index == "" || f.Kind == "" || f.Kind == "none" {
				return fmt.Errorf("config.Load: fund %s: variant ratio-price requires index and kind", f.FID)
			}
		}
		for _, w := range f.Components {
			if w.FID == "" || w.Percent <= 0 {
				return fmt.Errorf("config.Load: fund %s: component needs fid and positive percent", f.FID)
			}
		}
	}
	return nil
}
