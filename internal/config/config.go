package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Источники банка вопросов
const (
	QuestionsSourcePostgres = "postgres"
	QuestionsSourceFile     = "file"
	QuestionsSourceBuiltin  = "builtin"
)

// Config хранит все настройки приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Tournament TournamentConfig
	Ticket     TicketConfig
	WebSocket  WebSocketConfig
	RateLimit  RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AdminToken открывает служебные маршруты (перезагрузка банка вопросов).
	// Пустое значение отключает их.
	AdminToken string `mapstructure:"admin_token"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Enabled: без Redis банк вопросов не кешируется, а rate limiting отключён
	Enabled bool `mapstructure:"enabled"`

	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// TournamentConfig содержит настройки турниров
type TournamentConfig struct {
	DefaultPlayerCount int    `mapstructure:"default_player_count"`
	MaxPlayerCount     int    `mapstructure:"max_player_count"`
	CPUDelayMs         int    `mapstructure:"cpu_delay_ms"`
	Seed               uint64 `mapstructure:"seed"` // 0 - случайный seed для каждого турнира

	// QuestionsSource: "postgres", "file" или "builtin"
	QuestionsSource     string `mapstructure:"questions_source"`
	QuestionsFile       string `mapstructure:"questions_file"`
	QuestionCacheTTLSec int    `mapstructure:"question_cache_ttl_sec"`

	// Неактивные турниры удаляются из памяти по истечении SessionTTLMinutes
	SessionTTLMinutes  int `mapstructure:"session_ttl_minutes"`
	MaxActive          int `mapstructure:"max_active"`
	CleanupIntervalSec int `mapstructure:"cleanup_interval_sec"`
}

// CPUDelay возвращает паузу перед завершением матча CPU против CPU
func (t TournamentConfig) CPUDelay() time.Duration {
	return time.Duration(t.CPUDelayMs) * time.Millisecond
}

// SessionTTL возвращает время жизни неактивного турнира
func (t TournamentConfig) SessionTTL() time.Duration {
	return time.Duration(t.SessionTTLMinutes) * time.Minute
}

// TicketConfig содержит настройки тикетов доступа к турниру
type TicketConfig struct {
	Secret    string `mapstructure:"secret"`
	ExpirySec int    `mapstructure:"expiry_sec"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	ClientSendBuffer int `mapstructure:"client_send_buffer"`
	MaxMessageSize   int `mapstructure:"max_message_size"`
	PingIntervalSec  int `mapstructure:"ping_interval_sec"`
	PongWaitSec      int `mapstructure:"pong_wait_sec"`

	// Cluster: события турниров рассылаются через Redis Pub/Sub всем инстансам
	ClusterEnabled bool   `mapstructure:"cluster_enabled"`
	ClusterChannel string `mapstructure:"cluster_channel"`
	InstanceID     string `mapstructure:"instance_id"`
}

// RateLimitConfig содержит настройки ограничения частоты запросов
type RateLimitConfig struct {
	MaxRequests int `mapstructure:"max_requests"`
	WindowSec   int `mapstructure:"window_sec"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")

	vip.SetDefault("redis.mode", "single")

	vip.SetDefault("tournament.default_player_count", 8)
	vip.SetDefault("tournament.max_player_count", 64)
	vip.SetDefault("tournament.cpu_delay_ms", 600)
	vip.SetDefault("tournament.questions_source", QuestionsSourceFile)
	vip.SetDefault("tournament.questions_file", "questions.json")
	vip.SetDefault("tournament.question_cache_ttl_sec", 300)
	vip.SetDefault("tournament.session_ttl_minutes", 60)
	vip.SetDefault("tournament.max_active", 1000)
	vip.SetDefault("tournament.cleanup_interval_sec", 60)

	vip.SetDefault("ticket.expiry_sec", 6*60*60)

	vip.SetDefault("websocket.client_send_buffer", 64)
	vip.SetDefault("websocket.max_message_size", 512)
	vip.SetDefault("websocket.ping_interval_sec", 27)
	vip.SetDefault("websocket.pong_wait_sec", 30)
	vip.SetDefault("websocket.cluster_channel", "tournament:events")

	vip.SetDefault("ratelimit.max_requests", 120)
	vip.SetDefault("ratelimit.window_sec", 60)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	// .env не обязателен, он нужен только для локальной разработки
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния
	setDefaults(vip)

	// Привязка для секции Server
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS")
	vip.BindEnv("server.admin_token", "SERVER_ADMIN_TOKEN")

	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.enabled", "REDIS_ENABLED")
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции Tournament
	vip.BindEnv("tournament.default_player_count", "TOURNAMENT_DEFAULT_PLAYER_COUNT")
	vip.BindEnv("tournament.cpu_delay_ms", "TOURNAMENT_CPU_DELAY_MS")
	vip.BindEnv("tournament.seed", "TOURNAMENT_SEED")
	vip.BindEnv("tournament.questions_source", "TOURNAMENT_QUESTIONS_SOURCE")
	vip.BindEnv("tournament.questions_file", "TOURNAMENT_QUESTIONS_FILE")

	// Привязка для секции WebSocket
	vip.BindEnv("websocket.cluster_enabled", "WEBSOCKET_CLUSTER_ENABLED")
	vip.BindEnv("websocket.instance_id", "WEBSOCKET_INSTANCE_ID")

	// Привязка для секции Ticket
	vip.BindEnv("ticket.secret", "TICKET_SECRET")
	vip.BindEnv("ticket.expiry_sec", "TICKET_EXPIRY_SEC")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Отсутствие файла не страшно: есть значения по умолчанию и BindEnv
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
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

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Questions Source: %s", cfg.Tournament.QuestionsSource)
		log.Printf("Default Player Count: %d", cfg.Tournament.DefaultPlayerCount)
		log.Printf("CPU Delay: %v", cfg.Tournament.CPUDelay())
		log.Printf("Redis Enabled: %t (mode: %s)", cfg.Redis.Enabled, cfg.Redis.Mode)
		log.Printf("Ticket Secret Set: %t", cfg.Ticket.Secret != "")
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.Ticket.Secret == "" {
		return fmt.Errorf("ticket secret is required in config (check TICKET_SECRET env var)")
	}

	switch c.Tournament.QuestionsSource {
	case QuestionsSourcePostgres:
		if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration (host, dbname, user) is incomplete for questions_source=postgres")
		}
	case QuestionsSourceFile:
		if c.Tournament.QuestionsFile == "" {
			return fmt.Errorf("questions_file is required for questions_source=file")
		}
	case QuestionsSourceBuiltin:
	default:
		return fmt.Errorf("unsupported questions_source: %q", c.Tournament.QuestionsSource)
	}

	if c.Tournament.DefaultPlayerCount < 2 {
		return fmt.Errorf("tournament.default_player_count must be at least 2")
	}
	if c.Tournament.MaxPlayerCount < c.Tournament.DefaultPlayerCount {
		return fmt.Errorf("tournament.max_player_count must not be less than default_player_count")
	}
	if c.WebSocket.ClusterEnabled && !c.Redis.Enabled {
		return fmt.Errorf("websocket.cluster_enabled requires redis.enabled")
	}
	if c.Tournament.CPUDelayMs < 0 {
		return fmt.Errorf("tournament.cpu_delay_ms must not be negative")
	}
	return nil
}
