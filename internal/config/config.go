package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-mem-bank/pkg/mysql"
)

// EnvPrefix 環境變數前綴，例如 BANK_GRPC_ADDR、BANK_MYSQL_HOST
const EnvPrefix = "BANK_"

// Journal driver
const (
	JournalNone  = "none"
	JournalFile  = "file"
	JournalMySQL = "mysql"
)

// Config 服務設定，先讀 YAML 再以環境變數覆蓋，最後補預設值
type Config struct {
	GRPC    GRPCConfig    `yaml:"grpc" envPrefix:"GRPC_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Journal JournalConfig `yaml:"journal" envPrefix:"JOURNAL_"`
	MySQL   mysql.Config  `yaml:"mysql" envPrefix:"MYSQL_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

// JournalConfig 稽核紀錄輸出
type JournalConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // none | file | mysql
	Path   string `yaml:"path" env:"PATH"`     // file driver 的檔案路徑
	Buffer int    `yaml:"buffer" env:"BUFFER"` // Dispatcher channel 大小
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Load 讀取設定
//
// 參數:
//
//	path: YAML 檔案路徑，空字串表示只用環境變數與預設值
//
// 回傳:
//
//	*Config: 設定
//	error: 檔案讀取、解析或驗證錯誤
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults 補全沒有設定的欄位
func (c *Config) SetDefaults() {
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9092"
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = JournalNone
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "journal.log"
	}
	if c.Journal.Buffer == 0 {
		c.Journal.Buffer = 1024
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Journal.Driver == JournalMySQL {
		c.MySQL.SetDefaults()
	}
}

// Validate 檢查設定是否合法
func (c *Config) Validate() error {
	var errs []error
	switch c.Journal.Driver {
	case JournalNone, JournalFile, JournalMySQL:
	default:
		errs = append(errs, fmt.Errorf("unknown journal driver %q", c.Journal.Driver))
	}
	if c.Journal.Buffer < 0 {
		errs = append(errs, fmt.Errorf("journal buffer must not be negative: %d", c.Journal.Buffer))
	}
	if c.Journal.Driver == JournalMySQL && c.MySQL.Host == "" {
		errs = append(errs, errors.New("mysql host is required for the mysql journal"))
	}
	return errors.Join(errs...)
}
