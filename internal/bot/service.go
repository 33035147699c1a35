package bot

import (
	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/negahbanbot/negahban/internal/config"
	"github.com/negahbanbot/negahban/internal/db"
)

type service struct {
	bot *api.BotAPI
	db  db.Client
	cfg config.Config
}

func NewService(bot *api.BotAPI, db db.Client, cfg config.Config) *service {
	return &service{
		bot: bot,
		db:  db,
		cfg: cfg,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetLanguage() string {
	return s.cfg.DefaultLanguage
}

func (s *service) GetOwnerID() int64 {
	return s.cfg.OwnerID
}
