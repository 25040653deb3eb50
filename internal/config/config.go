package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
)

type Config struct {
	ServerPort string
	GinMode    string

	StorageDriver string

	DBDriver   string // "pgx" or "postgres" (lib/pq)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PlateLockTTL  time.Duration

	AWSRegion        string
	SQSEventQueueURL string
	IoTMQTTEndpoint  string
	LPREnabled       bool

	JWTSecret          string
	JWTExpirationHours time.Duration

	AdminUsername string
	AdminPassword string

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	SeedOnStart       bool
	OccupancyCronSpec string
}

var defaults = map[string]any{
	"server.port":          "4000",
	"server.gin_mode":      "release",
	"storage.driver":       StorageMemory,
	"db.driver":            "pgx",
	"db.host":              "localhost",
	"db.port":              5432,
	"db.user":              "parking",
	"db.password":          "parking",
	"db.name":              "parking",
	"db.sslmode":           "disable",
	"mongo.uri":            "mongodb://localhost:27017",
	"mongo.database":       "parking",
	"redis.addr":           "",
	"redis.password":       "",
	"redis.db":             0,
	"redis.lock_ttl":       "10s",
	"aws.region":           "ap-southeast-1",
	"sqs.event_queue_url":  "",
	"iot.mqtt_endpoint":    "",
	"lpr.enabled":          false,
	"jwt.secret":           "change-me-in-production",
	"jwt.expiration_hours": 24,
	"admin.username":       "",
	"admin.password":       "",
	"log.level":            "info",
	"log.format":           "json",
	"log.file":             "",
	"log.max_size_mb":      100,
	"log.max_backups":      5,
	"seed.on_start":        false,
	"occupancy.cron":       "@every 1m",
}

// Load reads .env (if present), an optional CONFIG_FILE and the process
// environment. SERVER_PORT overrides server.port and so on.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: could not load .env file: %v", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerPort: getString(v, "server.port"),
		GinMode:    getString(v, "server.gin_mode"),

		StorageDriver: strings.ToLower(getString(v, "storage.driver")),

		DBDriver:   getString(v, "db.driver"),
		DBHost:     getString(v, "db.host"),
		DBPort:     v.GetInt("db.port"),
		DBUser:     getString(v, "db.user"),
		DBPassword: v.GetString("db.password"),
		DBName:     getString(v, "db.name"),
		DBSslMode:  getString(v, "db.sslmode"),

		MongoURI:      getString(v, "mongo.uri"),
		MongoDatabase: getString(v, "mongo.database"),

		RedisAddr:     getString(v, "redis.addr"),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),
		PlateLockTTL:  v.GetDuration("redis.lock_ttl"),

		AWSRegion:        getString(v, "aws.region"),
		SQSEventQueueURL: getString(v, "sqs.event_queue_url"),
		IoTMQTTEndpoint:  getString(v, "iot.mqtt_endpoint"),
		LPREnabled:       v.GetBool("lpr.enabled"),

		JWTSecret:          v.GetString("jwt.secret"),
		JWTExpirationHours: time.Duration(v.GetInt("jwt.expiration_hours")) * time.Hour,

		AdminUsername: v.GetString("admin.username"),
		AdminPassword: v.GetString("admin.password"),

		LogLevel:      getString(v, "log.level"),
		LogFormat:     getString(v, "log.format"),
		LogFile:       v.GetString("log.file"),
		LogMaxSizeMB:  v.GetInt("log.max_size_mb"),
		LogMaxBackups: v.GetInt("log.max_backups"),

		SeedOnStart:       v.GetBool("seed.on_start"),
		OccupancyCronSpec: getString(v, "occupancy.cron"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres, StorageMongo:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.StorageDriver)
	}
	if c.DBDriver != "pgx" && c.DBDriver != "postgres" {
		return fmt.Errorf("config: unknown sql driver %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwt secret must not be empty")
	}
	if c.AdminUsername != "" && len(c.AdminPassword) < 6 {
		return errors.New("config: admin password must have at least 6 characters")
	}
	if c.PlateLockTTL <= 0 {
		return errors.New("config: redis lock ttl must be positive")
	}
	return nil
}

// PostgresDSN builds the key/value connection string understood by both pgx and lib/pq.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func getString(v *viper.Viper, key string) string {
	envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if _, ok := os.LookupEnv(envKey); !ok && !v.InConfig(key) {
		log.Printf("config: %s not set, using default %q", envKey, v.GetString(key))
	}
	return v.GetString(key)
}
