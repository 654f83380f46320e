package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// Log output. stdout carries the protocol so logs never go there.
	LogPath  string `env:"HUML_LOG_PATH,default=/tmp/huml.log"`
	LogLevel string `env:"HUML_LOG_LEVEL,default=info"`

	NotificationQueueSize int    `env:"HUML_NOTIFICATION_QUEUE_SIZE,default=127"`
	MaxContentLength      int    `env:"HUML_MAX_CONTENT_LENGTH,default=67108864"`
	Strict                bool   `env:"HUML_STRICT"`
	DebugHTTP             string `env:"HUML_DEBUG_HTTP"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return LoadConfigFrom(ctx, envconfig.OsLookuper())
}

// LoadConfigFrom reads the config from lookuper instead of the process
// environment. .env.local is not consulted.
func LoadConfigFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	return &config, nil
}
