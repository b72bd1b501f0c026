package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/israelwong/promediamx-sub009/pkg/errs"
)

// AppConfig - корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models    ModelsConfig    `yaml:"models"`
	Assistant AssistantConfig `yaml:"assistant"`
	Store     StoreConfig     `yaml:"store"`
	S3        S3Config        `yaml:"s3"`
	Server    ServerConfig    `yaml:"server"`
	App       AppSpecific     `yaml:"app"`
}

// ModelsConfig - настройки генеративных моделей.
type ModelsConfig struct {
	Default     string              `yaml:"default"`     // Алиас по умолчанию (например, "gemini-flash")
	Definitions map[string]ModelDef `yaml:"definitions"` // Словарь определений моделей
}

// ModelDef - параметры конкретной модели.
type ModelDef struct {
	Provider  string `yaml:"provider"`   // "gemini", "openai", "zai", "deepseek"
	ModelName string `yaml:"model_name"` // Реальное имя в API
	APIKey    string `yaml:"api_key"`    // Поддерживает ${VAR}
	MaxTokens int    `yaml:"max_tokens"`
	// Temperature: nil - значение по умолчанию, 0 допустим.
	Temperature     *float64      `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"` // Go умеет парсить строки вида "60s", "1m"
	BaseURL         string        `yaml:"base_url"`
	SafetyThreshold string        `yaml:"safety_threshold"` // Только для gemini
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (m *ModelDef) GetDefaults() ModelDef {
	result := *m // Копируем текущие значения

	if result.MaxTokens == 0 {
		result.MaxTokens = 2048
	}
	if result.Temperature == nil {
		t := 0.1
		result.Temperature = &t
	}
	if result.Timeout == 0 {
		result.Timeout = 60 * time.Second
	}
	if result.ModelName == "" && result.Provider == "gemini" {
		result.ModelName = "gemini-2.0-flash"
	}
	if result.SafetyThreshold == "" {
		result.SafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	}

	return result
}

// TemperatureValue возвращает температуру (0.1, если не задана).
func (m ModelDef) TemperatureValue() float64 {
	if m.Temperature == nil {
		return 0.1
	}
	return *m.Temperature
}

// AssistantConfig - настройки хода ассистента.
type AssistantConfig struct {
	Timeout         time.Duration `yaml:"timeout"`          // Дедлайн запроса к бэкенду
	DisableRecovery bool          `yaml:"disable_recovery"` // Не извлекать вызовы функций из текста
	PromptFile      string        `yaml:"prompt_file"`      // YAML шаблон системной инструкции (пусто - встроенный)
	HistoryLimit    int           `yaml:"history_limit"`    // Сколько последних ходов отправлять модели
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *AssistantConfig) GetDefaults() AssistantConfig {
	result := *c

	if result.Timeout == 0 {
		result.Timeout = 60 * time.Second
	}
	if result.HistoryLimit == 0 {
		result.HistoryLimit = 20
	}

	return result
}

// StoreConfig - откуда читаются определения возможностей.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" или "s3"
	Path   string `yaml:"path"`   // Путь к файлу SQLite
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *StoreConfig) GetDefaults() StoreConfig {
	result := *c

	if result.Driver == "" {
		result.Driver = "sqlite"
	}
	if result.Path == "" {
		result.Path = "assistant.db"
	}

	return result
}

// S3Config - настройки объектного хранилища с каталогом возможностей.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"` // Каталог: <prefix>/<assistant_id>.json
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *S3Config) GetDefaults() S3Config {
	result := *c

	if result.Prefix == "" {
		result.Prefix = "capabilities"
	}

	return result
}

// ServerConfig - настройки HTTP API.
type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"` // Запросов к бэкенду в секунду (0 - без лимита)
	Burst     int     `yaml:"burst"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *ServerConfig) GetDefaults() ServerConfig {
	result := *c

	if result.Addr == "" {
		result.Addr = ":8080"
	}
	if result.Burst == 0 {
		result.Burst = 5
	}

	return result
}

// AppSpecific - общие настройки приложения.
type AppSpecific struct {
	Debug        bool   `yaml:"debug"`
	LogFile      string `yaml:"log_file"`       // Пусто - stderr
	DebugLogsDir string `yaml:"debug_logs_dir"` // Пусто - запись обменов отключена
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
//
// Перед подстановкой загружается .env из текущей директории, если он есть.
func Load(path string) (*AppConfig, error) {
	// 0. Переменные из .env (не перетирают уже заданные)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(rawBytes)
}

// Parse разбирает содержимое config.yaml.
func Parse(rawBytes []byte) (*AppConfig, error) {
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	for name, def := range c.Models.Definitions {
		c.Models.Definitions[name] = def.GetDefaults()
	}
	c.Assistant = c.Assistant.GetDefaults()
	c.Store = c.Store.GetDefaults()
	c.S3 = c.S3.GetDefaults()
	c.Server = c.Server.GetDefaults()
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if c.Models.Default == "" {
		return &errs.ConfigurationError{Field: "models.default"}
	}
	if _, ok := c.Models.Definitions[c.Models.Default]; !ok {
		return &errs.ConfigurationError{
			Field:  "models.default",
			Reason: fmt.Sprintf("model '%s' is not defined in definitions", c.Models.Default),
		}
	}

	switch c.Store.Driver {
	case "sqlite":
	case "s3":
		if c.S3.Bucket == "" {
			return &errs.ConfigurationError{Field: "s3.bucket"}
		}
		if c.S3.Endpoint == "" {
			return &errs.ConfigurationError{Field: "s3.endpoint"}
		}
	default:
		return &errs.ConfigurationError{
			Field:  "store.driver",
			Reason: fmt.Sprintf("unknown driver '%s' (expected sqlite or s3)", c.Store.Driver),
		}
	}

	return nil
}

// Helper методы для удобства доступа (Syntactic sugar)

// GetModel возвращает конфигурацию модели по имени или модели по умолчанию.
//
// Пустой API ключ - *errs.ConfigurationError: без него бэкенд недоступен.
func (c *AppConfig) GetModel(name string) (ModelDef, error) {
	if name == "" {
		name = c.Models.Default
	}
	m, ok := c.Models.Definitions[name]
	if !ok {
		return ModelDef{}, &errs.ConfigurationError{
			Field:  "models.definitions",
			Reason: fmt.Sprintf("model '%s' is not defined", name),
		}
	}
	if m.APIKey == "" {
		return ModelDef{}, &errs.ConfigurationError{Field: fmt.Sprintf("models.definitions.%s.api_key", name)}
	}
	return m, nil
}
