package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketCovers  string
	UseSSL        bool
	Region        string
	PublicBaseURL string
	MaxCoverBytes int64
}

type SecurityConfig struct {
	JWTKey            string
	JWTIssuer         string
	JWTAudience       string
	JWTAccessTTL      time.Duration
	RefreshTokenTTL   time.Duration
	RefreshTokenBytes int
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

type RateLimitConfig struct {
	Mode          string
	Requests      int
	Window        time.Duration
	SweepInterval time.Duration
	RedisPrefix   string
}

type JobsConfig struct {
	TokenCleanupCron string
	TokenRetention   time.Duration
}

type MigrateConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	AdminEmail    string
	AdminPassword string
	AdminUserName string
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	RateLimit        RateLimitConfig
	Jobs             JobsConfig
	Migrate          MigrateConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CHAPLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports settings the API cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	if len(c.Security.JWTKey) < 32 {
		errs = append(errs, errors.New("security.jwtkey must be at least 32 characters"))
	}
	if c.Security.JWTAccessTTL <= 0 || c.Security.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.requests and ratelimit.window must be positive"))
	}
	switch c.RateLimit.Mode {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("ratelimit.mode %q is not supported", c.RateLimit.Mode))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "chaplog:maintenance")
	v.SetDefault("redis.group", "chaplog-workers")
	v.SetDefault("redis.consumer", "worker-1")
	v.SetDefault("redis.claiminterval", "30s")

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketcovers", "chaplog-covers")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.maxcoverbytes", 5<<20)

	v.SetDefault("security.jwtkey", "")
	v.SetDefault("security.jwtissuer", "ChapLog")
	v.SetDefault("security.jwtaudience", "ChapLogUsers")
	v.SetDefault("security.jwtaccessttl", "60m")
	v.SetDefault("security.refreshtokenttl", "168h") // 7 days
	v.SetDefault("security.refreshtokenbytes", 64)
	v.SetDefault("security.maxfailedattempts", 5)
	v.SetDefault("security.lockoutduration", "15m")

	v.SetDefault("ratelimit.mode", "memory")
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.sweepinterval", "1m")
	v.SetDefault("ratelimit.redisprefix", "chaplog:ratelimit")

	v.SetDefault("jobs.tokencleanupcron", "0 0 3 * * *")
	v.SetDefault("jobs.tokenretention", "720h")

	v.SetDefault("migrate.maxattempts", 5)
	v.SetDefault("migrate.basedelay", "2s")
	v.SetDefault("migrate.adminemail", "admin@chaplog.com")
	v.SetDefault("migrate.adminpassword", "Admin123!")
	v.SetDefault("migrate.adminusername", "admin")

	v.SetDefault("logging.level", "")
	v.SetDefault("allowcorsorigins", []string{})
}
