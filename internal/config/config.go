package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"corebank/internal/ledger"
)

// DefaultPath 未设置 CONFIG_PATH 时读取的配置文件
const DefaultPath = "config/config.yaml"

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin 模式：debug / release / test
}

type MySQLConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"` // silent / error / warn / info
}

func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEntry string `mapstructure:"ledger_entry"`
}

type BusinessConfig struct {
	MaxRetryCount            int `mapstructure:"max_retry_count"`
	OutboxIntervalSecond     int `mapstructure:"outbox_interval_second"`
	OutboxBatchSize          int `mapstructure:"outbox_batch_size"`
	CompensateIntervalSecond int `mapstructure:"compensate_interval_second"`
	CompensateCooldownMinute int `mapstructure:"compensate_cooldown_minute"`
	IdempotencyTTLMinute     int `mapstructure:"idempotency_ttl_minute"`
}

func (c BusinessConfig) OutboxInterval() time.Duration {
	return time.Duration(c.OutboxIntervalSecond) * time.Second
}

func (c BusinessConfig) CompensateInterval() time.Duration {
	return time.Duration(c.CompensateIntervalSecond) * time.Second
}

func (c BusinessConfig) CompensateCooldown() time.Duration {
	return time.Duration(c.CompensateCooldownMinute) * time.Minute
}

func (c BusinessConfig) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLMinute) * time.Minute
}

// LedgerConfig 账本相关配置
type LedgerConfig struct {
	Policy   PolicyConfig   `mapstructure:"policy"`
	FlatFile FlatFileConfig `mapstructure:"flatfile"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// PolicyConfig 金额用字符串配置，避免浮点误差
type PolicyConfig struct {
	SavingsInterestRate    string `mapstructure:"savings_interest_rate"`
	SavingsMinimumBalance  string `mapstructure:"savings_minimum_balance"`
	CheckingOverdraftLimit string `mapstructure:"checking_overdraft_limit"`
	CheckingMonthlyFee     string `mapstructure:"checking_monthly_fee"`
}

// Policies 转换为账本策略参数，空值使用默认值
func (c PolicyConfig) Policies() (ledger.PolicyConfig, error) {
	out := ledger.DefaultPolicyConfig()
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"savings_interest_rate", c.SavingsInterestRate, &out.SavingsInterestRate},
		{"savings_minimum_balance", c.SavingsMinimumBalance, &out.SavingsMinimumBalance},
		{"checking_overdraft_limit", c.CheckingOverdraftLimit, &out.CheckingOverdraftLimit},
		{"checking_monthly_fee", c.CheckingMonthlyFee, &out.CheckingMonthlyFee},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return out, fmt.Errorf("ledger.policy.%s 配置错误: %w", f.name, err)
		}
		if v.IsNegative() {
			return out, fmt.Errorf("ledger.policy.%s 不能为负数", f.name)
		}
		*f.dst = v
	}
	return out, nil
}

type FlatFileConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Dir         string `mapstructure:"dir"`
	LoadOnStart bool   `mapstructure:"load_on_start"`
	SaveOnStop  bool   `mapstructure:"save_on_stop"`
}

type SnapshotConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	IntervalSecond int  `mapstructure:"interval_second"`
	LoadOnStart    bool `mapstructure:"load_on_start"`
}

func (c SnapshotConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSecond) * time.Second
}

var GlobalConfig *Config

// setDefaults 配置文件缺省项
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.log_level", "warn")
	v.SetDefault("kafka.topic.ledger_entry", "ledger_entry")
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.outbox_interval_second", 1)
	v.SetDefault("business.outbox_batch_size", 100)
	v.SetDefault("business.compensate_interval_second", 30)
	v.SetDefault("business.compensate_cooldown_minute", 10)
	v.SetDefault("business.idempotency_ttl_minute", 1440)
	v.SetDefault("ledger.flatfile.dir", "dataset")
	v.SetDefault("ledger.snapshot.interval_second", 30)
}

// Load 读取并解析配置文件
//
// 环境变量优先于文件，键名中的 "." 替换为 "_"，
// 例如 LEDGER_POLICY_SAVINGS_MINIMUM_BALANCE。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if _, err := config.Ledger.Policy.Policies(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfig 加载配置文件，失败直接退出；CONFIG_PATH 环境变量覆盖 configPath
func LoadConfig(configPath string) *Config {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	config, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	GlobalConfig = config
	return config
}
