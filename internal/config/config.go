package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		OwnerID          int64    `env:"OWNER_ID,required"`
		DefaultLanguage  string   `env:"LANG,default=fa"`
		EnabledHandlers  []string `env:"HANDLERS,default=watchdog,admin"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.negahban"`
		Moderation       Moderation
		Observability    Observability
	}

	Moderation struct {
		WarningsLimit      int           `env:"WARNINGS_LIMIT,default=3"`
		NoticeTTL          time.Duration `env:"NOTICE_TTL,default=5s"`
		RejectionNoticeTTL time.Duration `env:"REJECTION_NOTICE_TTL,default=10s"`
		ErrorNoticeTTL     time.Duration `env:"ERROR_NOTICE_TTL,default=3s"`
		WordNoticeTTL      time.Duration `env:"WORD_NOTICE_TTL,default=2s"`
	}

	Observability struct {
		MetricsListenAddr string `env:"METRICS_LISTEN_ADDR,default=:2112"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("NB_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		dotPath, err := homedir.Expand(cfg.DotPath)
		if err != nil {
			globalErr = fmt.Errorf("expand dot path: %w", err)
			return
		}
		cfg.DotPath = dotPath
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
