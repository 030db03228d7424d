package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Billing BillingConfig
	Worker  WorkerConfig
	Email   EmailConfig
	Metrics MetricsConfig
	Seed    SeedConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig conexión a Redis (caché, blacklist de tokens, cola de webhooks).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig caché por tenant.
type CacheConfig struct {
	TTL time.Duration
}

// BillingConfig pasarela de pagos y parámetros de la suscripción vitalicia.
type BillingConfig struct {
	KeyID           string
	KeySecret       string
	WebhookSecret   string
	PlanAmountMinor int64  // monto en la unidad mínima (paise)
	Currency        string // código ISO de 3 letras
	ReconcileAfter  time.Duration
	FailedOrderTTL  time.Duration
	OrderCooldown   time.Duration
	GatewayTimeout  time.Duration
}

// WorkerConfig consumidor de la cola de webhooks y tareas periódicas.
type WorkerConfig struct {
	Concurrency       int
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	ReconcileInterval time.Duration
	ReplayAfter       time.Duration
	ReplayMaxAttempts int
}

// EmailConfig envío de correos vía Resend.
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
	FromName     string
	Workers      int
}

// MetricsConfig exposición de métricas Prometheus.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// SeedConfig datos del super-admin inicial.
type SeedConfig struct {
	SuperAdminEmail    string
	SuperAdminPassword string
	SuperAdminName     string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, REDIS_ADDR, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "taskvault"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "taskvault"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "taskvault"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", "localhost:6379"),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Cache: CacheConfig{
			TTL: getDuration(v, "CACHE_TTL", 5*time.Minute),
		},
		Billing: BillingConfig{
			KeyID:           getString(v, "RAZORPAY_KEY_ID", ""),
			KeySecret:       getString(v, "RAZORPAY_KEY_SECRET", ""),
			WebhookSecret:   getString(v, "RAZORPAY_WEBHOOK_SECRET", ""),
			PlanAmountMinor: int64(getInt(v, "BILLING_PLAN_AMOUNT_PAISE", 99900)),
			Currency:        getString(v, "BILLING_CURRENCY", "INR"),
			ReconcileAfter:  getDuration(v, "BILLING_RECONCILE_AFTER", 5*time.Minute),
			FailedOrderTTL:  getDuration(v, "BILLING_FAILED_ORDER_TTL", 24*time.Hour),
			OrderCooldown:   getDuration(v, "BILLING_ORDER_COOLDOWN", 30*time.Second),
			GatewayTimeout:  getDuration(v, "BILLING_GATEWAY_TIMEOUT", 10*time.Second),
		},
		Worker: WorkerConfig{
			Concurrency:       getInt(v, "WORKER_CONCURRENCY", 4),
			MaxAttempts:       getInt(v, "WORKER_MAX_ATTEMPTS", 5),
			BaseBackoff:       getDuration(v, "WORKER_BASE_BACKOFF", 2*time.Second),
			MaxBackoff:        getDuration(v, "WORKER_MAX_BACKOFF", 5*time.Minute),
			ReconcileInterval: getDuration(v, "WORKER_RECONCILE_INTERVAL", 5*time.Minute),
			ReplayAfter:       getDuration(v, "WORKER_REPLAY_AFTER", 30*time.Minute),
			ReplayMaxAttempts: getInt(v, "WORKER_REPLAY_MAX_ATTEMPTS", 20),
		},
		Email: EmailConfig{
			ResendAPIKey: getString(v, "RESEND_API_KEY", ""),
			FromEmail:    getString(v, "EMAIL_FROM", "no-reply@taskvault.local"),
			FromName:     getString(v, "EMAIL_FROM_NAME", "TaskVault"),
			Workers:      getInt(v, "EMAIL_WORKERS", 2),
		},
		Metrics: MetricsConfig{
			Enabled: getBool(v, "METRICS_ENABLED", true),
			Path:    getString(v, "METRICS_PATH", "/metrics"),
		},
		Seed: SeedConfig{
			SuperAdminEmail:    getString(v, "SUPER_ADMIN_EMAIL", ""),
			SuperAdminPassword: getString(v, "SUPER_ADMIN_PASSWORD", ""),
			SuperAdminName:     getString(v, "SUPER_ADMIN_NAME", "Super Admin"),
		},
	}

	if cfg.Billing.Currency != "" && len(cfg.Billing.Currency) != 3 {
		return nil, fmt.Errorf("config: BILLING_CURRENCY debe ser un código de 3 letras, recibido %q", cfg.Billing.Currency)
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	switch v.Get(key).(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return def
		}
		return n
	default:
		return v.GetInt(key)
	}
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

// getDuration acepta "90s", "5m" o un número entero de segundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
