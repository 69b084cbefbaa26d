package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Debug      DebugConfig      `yaml:"debug" mapstructure:"debug"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// InputConfig describes the roster file and its column mapping.
type InputConfig struct {
	File          string `yaml:"file" mapstructure:"file"`
	CompanyColumn string `yaml:"company_column" mapstructure:"company_column"`
	RegColumn     string `yaml:"reg_column" mapstructure:"reg_column"`
	Sheet         string `yaml:"sheet" mapstructure:"sheet"`
	FilterThai    bool   `yaml:"filter_thai" mapstructure:"filter_thai"`
}

// OutputConfig describes final and intermediate output locations.
type OutputConfig struct {
	RecordsFile    string `yaml:"records_file" mapstructure:"records_file"`
	NotFoundFile   string `yaml:"not_found_file" mapstructure:"not_found_file"`
	BatchDir       string `yaml:"batch_dir" mapstructure:"batch_dir"`
	ForceOverwrite bool   `yaml:"force_overwrite" mapstructure:"force_overwrite"`
}

// SearchConfig tunes entity resolution.
type SearchConfig struct {
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	MaxPages            int     `yaml:"max_pages" mapstructure:"max_pages"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ProcessingConfig tunes worker parallelism and pacing.
type ProcessingConfig struct {
	Workers    int `yaml:"workers" mapstructure:"workers"`
	BatchSize  int `yaml:"batch_size" mapstructure:"batch_size"`
	DelaySecs  int `yaml:"delay_between_requests" mapstructure:"delay_between_requests"`
	StartIndex int `yaml:"start_index" mapstructure:"start_index"`
	Limit      int `yaml:"limit" mapstructure:"limit"`
}

// RetryConfig tunes the no-data extraction retry loop.
type RetryConfig struct {
	MaxRetries        int `yaml:"max_retries" mapstructure:"max_retries"`
	ExtraWaitPerRetry int `yaml:"extra_wait_per_retry" mapstructure:"extra_wait_per_retry"`
}

// BrowserConfig tunes the page-interaction sessions.
type BrowserConfig struct {
	Headless      bool `yaml:"headless" mapstructure:"headless"`
	PageLoadWait  int  `yaml:"page_load_wait" mapstructure:"page_load_wait"`
	TabClickWait  int  `yaml:"tab_click_wait" mapstructure:"tab_click_wait"`
	TableLoadWait int  `yaml:"table_load_wait" mapstructure:"table_load_wait"`
	ExtraWait     int  `yaml:"extra_wait" mapstructure:"extra_wait"`
	TimeoutSecs   int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ExtractionConfig selects which financial fields to pull.
type ExtractionConfig struct {
	// Mode is "all" or "revenue_only".
	Mode                  string   `yaml:"mode" mapstructure:"mode"`
	IncomeStatementFields []string `yaml:"income_statement_fields" mapstructure:"income_statement_fields"`
	IncludeBalanceSheet   bool     `yaml:"include_balance_sheet" mapstructure:"include_balance_sheet"`
	BalanceSheetFields    []string `yaml:"balance_sheet_fields" mapstructure:"balance_sheet_fields"`
}

// DebugConfig toggles debug artifact capture.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the resolution cache backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Delay returns the configured inter-request delay.
func (p ProcessingConfig) Delay() time.Duration {
	return time.Duration(p.DelaySecs) * time.Second
}

// ExtraWait returns the per-retry additional wait step.
func (r RetryConfig) ExtraWait() time.Duration {
	return time.Duration(r.ExtraWaitPerRetry) * time.Second
}

// DefaultIncomeStatementFields are the income statement (งบกำไรขาดทุน) rows
// extracted when no explicit field list is configured.
var DefaultIncomeStatementFields = []string{
	"รายได้หลัก",
	"รายได้รวม",
	"ต้นทุนขาย",
	"กำไร(ขาดทุน) ขั้นต้น",
	"ค่าใช้จ่ายในการขายและบริหาร",
	"รายจ่ายรวม",
	"ดอกเบี้ยจ่าย",
	"กำไร(ขาดทุน) ก่อนภาษี",
	"ภาษีเงินได้",
	"กำไร(ขาดทุน) สุทธิ",
}

// DefaultBalanceSheetFields are the balance sheet (งบแสดงฐานะการเงิน) rows
// extracted when balance sheet extraction is enabled.
var DefaultBalanceSheetFields = []string{
	"ลูกหนี้การค้าสุทธิ",
	"สินค้าคงเหลือ",
	"สินทรัพย์หมุนเวียน",
	"ที่ดิน อาคารและอุปกรณ์",
	"สินทรัพย์ไม่หมุนเวียน",
	"สินทรัพย์รวม",
	"หนี้สินหมุนเวียน",
	"หนี้สินไม่หมุนเวียน",
	"หนี้สินรวม",
	"ส่วนของผู้ถือหุ้น",
	"หนี้สินรวมและส่วนของผู้ถือหุ้น",
}

// Load reads configuration from file and environment. Order of precedence:
// built-in defaults < config file < DBD_* environment < flag overrides
// applied by the commands.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DBD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("input.file", "companies.csv")
	v.SetDefault("input.company_column", "company_name")
	v.SetDefault("input.filter_thai", true)
	v.SetDefault("output.records_file", "dbd_financials.csv")
	v.SetDefault("output.not_found_file", "dbd_not_found.csv")
	v.SetDefault("output.batch_dir", "batches")
	v.SetDefault("search.base_url", "https://datawarehouse.dbd.go.th")
	v.SetDefault("search.max_pages", 20)
	v.SetDefault("search.similarity_threshold", 0.95)
	v.SetDefault("processing.workers", 1)
	v.SetDefault("processing.batch_size", 20)
	v.SetDefault("processing.delay_between_requests", 3)
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.extra_wait_per_retry", 2)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.page_load_wait", 10)
	v.SetDefault("browser.tab_click_wait", 4)
	v.SetDefault("browser.table_load_wait", 6)
	v.SetDefault("browser.extra_wait", 3)
	v.SetDefault("browser.timeout_secs", 60)
	v.SetDefault("extraction.mode", "all")
	v.SetDefault("extraction.income_statement_fields", DefaultIncomeStatementFields)
	v.SetDefault("extraction.include_balance_sheet", true)
	v.SetDefault("extraction.balance_sheet_fields", DefaultBalanceSheetFields)
	v.SetDefault("debug.dir", "debug")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "dbd_cache.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, eris.Wrapf(err, "config: read file %s", path)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
