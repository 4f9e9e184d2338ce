package config

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvProduction = "production"

type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxWaitTime   time.Duration `yaml:"max_wait_time"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// CirculationConfig: параметры заказа и отчёта, которые уходят эмитенту
type CirculationConfig struct {
	ProductGroup       string `yaml:"product_group"`
	CodeType           int    `yaml:"code_type"`
	CountryCode        int    `yaml:"country_code"`
	ReasonCode         string `yaml:"reason_code"`
	AllocationStrategy string `yaml:"allocation_strategy"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ResultsTopic  string   `yaml:"results_topic"`
	RequestsTopic string   `yaml:"requests_topic"`
	Group         string   `yaml:"group"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type TracingConfig struct {
	ExporterURL    string  `yaml:"exporter_url"`
	SampleRate     float64 `yaml:"sample_rate"`
	DomainName     string  `yaml:"domain_name"`
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	InstanceID     string  `yaml:"instance_id"`
}

type Config struct {
	Env           string            `yaml:"env"`
	ListenAddress string            `yaml:"listen_address"`
	API           APIConfig         `yaml:"api"`
	Circulation   CirculationConfig `yaml:"circulation"`
	Kafka         KafkaConfig       `yaml:"kafka"`
	Log           LogConfig         `yaml:"log"`
	Tracing       TracingConfig     `yaml:"tracing"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Env:           "development",
		ListenAddress: ":8080",
		API: APIConfig{
			BaseURL:       "https://sandbox-api.datamark.by",
			Timeout:       30 * time.Second,
			MaxWaitTime:   300 * time.Second,
			CheckInterval: 5 * time.Second,
		},
		Circulation: CirculationConfig{
			ProductGroup:       "shoes",
			CodeType:           20,
			CountryCode:        643,
			ReasonCode:         "import",
			AllocationStrategy: "positional",
		},
		Kafka: KafkaConfig{
			ResultsTopic:  "circulation-results",
			RequestsTopic: "circulation-requests",
			Group:         "circulation-worker",
		},
		Log: LogConfig{Level: "info"},
		Tracing: TracingConfig{
			SampleRate:     1.0,
			DomainName:     "circulation",
			ServiceName:    "circulation-service",
			ServiceVersion: "1.0.0",
			InstanceID:     generateInstanceID(),
		},
	}
}

// LoadConfig читает YAML из CONFIG_FILE (если задан), затем применяет переменные окружения
func LoadConfig() (Config, error) {
	cfg := Default()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.ListenAddress = getEnv("LISTEN_ADDRESS", cfg.ListenAddress)

	cfg.API.BaseURL = getEnv("API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Username = getEnv("API_USERNAME", cfg.API.Username)
	cfg.API.Password = getEnv("API_PASSWORD", cfg.API.Password)
	if cfg.API.Timeout, err = getEnvAsDuration("API_TIMEOUT", cfg.API.Timeout); err != nil {
		return err
	}
	if cfg.API.MaxWaitTime, err = getEnvAsDuration("MAX_WAIT_TIME", cfg.API.MaxWaitTime); err != nil {
		return err
	}
	if cfg.API.CheckInterval, err = getEnvAsDuration("CHECK_INTERVAL", cfg.API.CheckInterval); err != nil {
		return err
	}

	cfg.Circulation.ProductGroup = getEnv("PRODUCT_GROUP", cfg.Circulation.ProductGroup)
	cfg.Circulation.CodeType = getEnvAsInt("CODE_TYPE", cfg.Circulation.CodeType)
	cfg.Circulation.CountryCode = getEnvAsInt("COUNTRY_CODE", cfg.Circulation.CountryCode)
	cfg.Circulation.ReasonCode = getEnv("REASON_CODE", cfg.Circulation.ReasonCode)
	cfg.Circulation.AllocationStrategy = getEnv("ALLOCATION_STRATEGY", cfg.Circulation.AllocationStrategy)

	if brokers := getEnv("KAFKA_BROKER", ""); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.ResultsTopic = getEnv("KAFKA_RESULTS_TOPIC", cfg.Kafka.ResultsTopic)
	cfg.Kafka.RequestsTopic = getEnv("KAFKA_REQUESTS_TOPIC", cfg.Kafka.RequestsTopic)
	cfg.Kafka.Group = getEnv("KAFKA_GROUP", cfg.Kafka.Group)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	cfg.Tracing.ExporterURL = getEnv("OTEL_EXPORTER_URL", cfg.Tracing.ExporterURL)
	cfg.Tracing.SampleRate = getEnvAsFloat("OTEL_SAMPLE_RATE", cfg.Tracing.SampleRate)
	cfg.Tracing.DomainName = getEnv("APP_DOMAIN_NAME", cfg.Tracing.DomainName)
	cfg.Tracing.ServiceName = getEnv("APP_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.ServiceVersion = getEnv("APP_SERVICE_VERSION", cfg.Tracing.ServiceVersion)
	cfg.Tracing.InstanceID = getEnv("APP_INSTANCE_ID", cfg.Tracing.InstanceID)
	return nil
}

// Validate проверяет значения, без которых сервис не сможет работать
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL не задан"))
	}
	if c.API.MaxWaitTime <= 0 {
		errs = append(errs, errors.New("MAX_WAIT_TIME должен быть больше нуля"))
	}
	if c.API.CheckInterval <= 0 {
		errs = append(errs, errors.New("CHECK_INTERVAL должен быть больше нуля"))
	}
	if c.API.CheckInterval > c.API.MaxWaitTime {
		errs = append(errs, errors.New("CHECK_INTERVAL превышает MAX_WAIT_TIME"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return nil
}

// IsProduction: в боевом окружении детали ошибок клиенту не отдаются
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// HasCredentials: учётные данные эмитента заданы
func (c Config) HasCredentials() bool {
	return c.API.Username != "" && c.API.Password != ""
}

func generateInstanceID() string {
	return strconv.Itoa(rand.Intn(100000))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 0, 32); err == nil {
		return int(value)
	}
	return defaultValue
}

// getEnvAsDuration принимает как число секунд ("300"), так и строку Go ("5m")
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("некорректное значение %s=%q: %w", key, valueStr, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
