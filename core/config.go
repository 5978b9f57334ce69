package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		DebugHost       string
		Host            string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		URL string // empty: in-process locks & snapshots
	}

	OutlineConfig struct {
		Storage  string        // postgres | memory
		LockWait time.Duration // bounded wait for the per-course token before a ConflictError
		LockTTL  time.Duration // redis lock lease
		CacheTTL time.Duration // redis snapshot expiry
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		LogFormat    string // std | json
		AuthEnabled  bool
		Server       ServerConfig
		Database     DatabaseConfig
		Redis        RedisConfig
		Outline      OutlineConfig
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration for the current ENV (DEV (local; default), TEST, QA, PROD).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Masomo")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("log.format", "std")
	v.SetDefault("auth.enabled", true)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "masomo")
	v.SetDefault("database.user", "masomo")
	v.SetDefault("database.password", "masomo")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.url", "")

	v.SetDefault("outline.storage", "postgres")
	v.SetDefault("outline.lockWait", 5*time.Second)
	v.SetDefault("outline.lockTTL", 30*time.Second)
	v.SetDefault("outline.cacheTTL", 24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("outline.storage", "memory")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		LogFormat:    v.GetString("log.format"),
		AuthEnabled:  v.GetBool("auth.enabled"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			Host:            v.GetString("server.host"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
		},
		Outline: OutlineConfig{
			Storage:  v.GetString("outline.storage"),
			LockWait: v.GetDuration("outline.lockWait"),
			LockTTL:  v.GetDuration("outline.lockTTL"),
			CacheTTL: v.GetDuration("outline.cacheTTL"),
		},
	}
}
