package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	AI         AIConfig
	Evaluation EvaluationConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	// Mode: режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`
}

// AuthConfig содержит настройки граничной проверки токена.
// Выпуск/обновление токенов и KYC — вне этого сервиса.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// AIConfig содержит настройки внешних AI-коллабораторов
type AIConfig struct {
	// BaseURL: OpenAI-совместимый endpoint. Пусто = api.openai.com.
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`

	ChatModel       string `mapstructure:"chat_model"`
	TranscribeModel string `mapstructure:"transcribe_model"`

	// GrammarEndpoint: LanguageTool-совместимый endpoint проверки грамматики.
	// Пусто = только локальная эвристика.
	GrammarEndpoint string `mapstructure:"grammar_endpoint"`
	GrammarLanguage string `mapstructure:"grammar_language"`
}

// EvaluationConfig содержит настройки пайплайна оценивания
type EvaluationConfig struct {
	BatchSize        int `mapstructure:"batch_size"`
	InterItemDelayMs int `mapstructure:"inter_item_delay_ms"`
}

// PostgresConnectionString формирует DSN подключения к PostgreSQL
func (c DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния

	// Привязываем переменные окружения явно
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")

	vip.BindEnv("ai.base_url", "AI_BASE_URL")
	vip.BindEnv("ai.api_key", "AI_API_KEY")
	vip.BindEnv("ai.chat_model", "AI_CHAT_MODEL")
	vip.BindEnv("ai.transcribe_model", "AI_TRANSCRIBE_MODEL")
	vip.BindEnv("ai.grammar_endpoint", "AI_GRAMMAR_ENDPOINT")
	vip.BindEnv("ai.grammar_language", "AI_GRAMMAR_LANGUAGE")

	vip.BindEnv("server.port", "SERVER_PORT")

	// Умолчания
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 10)
	vip.SetDefault("server.write_timeout", 10)
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("evaluation.batch_size", 5)
	vip.SetDefault("evaluation.inter_item_delay_ms", 1500)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		log.Println("Предупреждение: auth.jwt_secret не задан — проверка токенов будет отклонять все запросы")
	}

	return &cfg, nil
}
