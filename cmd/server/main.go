package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/jamroom/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 3000,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	allowedOrigins = configVar[[]string]{
		envKey:       "SERVER_ALLOWED_ORIGINS",
		flagKey:      "allowed-origins",
		defaultValue: []string{"*"},
	}
	syncStrategy = configVar[string]{
		envKey:       "SERVER_SYNC_STRATEGY",
		flagKey:      "sync-strategy",
		defaultValue: "targeted",
	}
	codeAttempts = configVar[int]{
		envKey:       "SERVER_CODE_ATTEMPTS",
		flagKey:      "code-attempts",
		defaultValue: 32,
	}
	sendBuffer = configVar[int]{
		envKey:       "SERVER_SEND_BUFFER",
		flagKey:      "send-buffer",
		defaultValue: 256,
	}
	readLimit = configVar[int64]{
		envKey:       "SERVER_READ_LIMIT",
		flagKey:      "read-limit",
		defaultValue: 65536,
	}
	directory = configVar[string]{
		envKey:       "SERVER_DIRECTORY",
		flagKey:      "directory",
		defaultValue: app.DirectoryMemory,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	redisTimeout = configVar[time.Duration]{
		envKey:       "REDIS_TIMEOUT",
		flagKey:      "redis-timeout",
		defaultValue: 200 * time.Millisecond,
	}
)

func loadAppConfig() *app.AppConfig {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.StringSlice(allowedOrigins.flagKey, allowedOrigins.defaultValue, "Origins allowed to connect, * for any")
	pflag.String(syncStrategy.flagKey, syncStrategy.defaultValue, "Join sync strategy: targeted or broadcast")
	pflag.Int(codeAttempts.flagKey, codeAttempts.defaultValue, "Room code generation attempts before giving up")
	pflag.Int(sendBuffer.flagKey, sendBuffer.defaultValue, "Outbound frames queued per connection")
	pflag.Int64(readLimit.flagKey, readLimit.defaultValue, "Maximum inbound frame size in bytes")
	pflag.String(directory.flagKey, directory.defaultValue, "Room directory backend: memory or redis")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Duration(redisTimeout.flagKey, redisTimeout.defaultValue, "Timeout of a single redis command")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	// PORT is what most hosting platforms inject
	viper.BindEnv(port.flagKey, port.envKey, "PORT")
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(allowedOrigins.flagKey, allowedOrigins.envKey)
	viper.BindEnv(syncStrategy.flagKey, syncStrategy.envKey)
	viper.BindEnv(codeAttempts.flagKey, codeAttempts.envKey)
	viper.BindEnv(sendBuffer.flagKey, sendBuffer.envKey)
	viper.BindEnv(readLimit.flagKey, readLimit.envKey)
	viper.BindEnv(directory.flagKey, directory.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(redisTimeout.flagKey, redisTimeout.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(allowedOrigins.flagKey, allowedOrigins.defaultValue)
	viper.SetDefault(syncStrategy.flagKey, syncStrategy.defaultValue)
	viper.SetDefault(codeAttempts.flagKey, codeAttempts.defaultValue)
	viper.SetDefault(sendBuffer.flagKey, sendBuffer.defaultValue)
	viper.SetDefault(readLimit.flagKey, readLimit.defaultValue)
	viper.SetDefault(directory.flagKey, directory.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(redisTimeout.flagKey, redisTimeout.defaultValue)

	config := &app.AppConfig{
		Host:           viper.GetString(host.flagKey),
		Port:           viper.GetInt(port.flagKey),
		LogLevel:       viper.GetString(logLevel.flagKey),
		AllowedOrigins: splitList(viper.GetStringSlice(allowedOrigins.flagKey)),
		SyncStrategy:   viper.GetString(syncStrategy.flagKey),
		CodeAttempts:   viper.GetInt(codeAttempts.flagKey),
		SendBuffer:     viper.GetInt(sendBuffer.flagKey),
		ReadLimit:      viper.GetInt64(readLimit.flagKey),
		Directory:      viper.GetString(directory.flagKey),
		RedisPort:      viper.GetInt(redisPort.flagKey),
		RedisHost:      viper.GetString(redisHost.flagKey),
		RedisPassword:  viper.GetString(redisPassword.flagKey),
		RedisTimeout:   viper.GetDuration(redisTimeout.flagKey),
	}

	return config
}

// splitList also splits comma separated env values, which viper only splits on spaces.
func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				result = append(result, item)
			}
		}
	}

	return result
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
