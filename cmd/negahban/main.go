package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/negahbanbot/negahban/internal/bot"
	"github.com/negahbanbot/negahban/internal/cleanup"
	"github.com/negahbanbot/negahban/internal/config"
	"github.com/negahbanbot/negahban/internal/db/sqlite"
	adminHandlers "github.com/negahbanbot/negahban/internal/handlers/admin"
	chatHandlers "github.com/negahbanbot/negahban/internal/handlers/chat"
	"github.com/negahbanbot/negahban/internal/handlers/moderation"
	"github.com/negahbanbot/negahban/internal/infra"
	"github.com/negahbanbot/negahban/internal/lifecycle"
	"github.com/negahbanbot/negahban/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&log.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05",
		QuoteEmptyFields: true,
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := observability.Init(ctx, cfg.Observability.MetricsListenAddr); err != nil {
		log.WithError(err).Fatalln("cant initialize observability")
	}

	infra.GoRecoverable(-1, "process_updates", func() {
		defer stop()

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}
		defer botAPI.StopReceivingUpdates()

		dbClient, err := sqlite.NewSQLiteClient(infra.GetWorkDir(), "bot.db")
		if err != nil {
			log.WithError(err).Fatalln("cant open database")
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				log.WithError(err).Errorln("cant close database")
			}
		}()

		if pending, err := dbClient.CountPendingApprovals(ctx); err != nil {
			log.WithError(err).Warnln("cant count pending approvals")
		} else {
			observability.SetPendingApprovals(pending)
		}

		var service bot.Service = bot.NewService(botAPI, dbClient, cfg)

		janitor := cleanup.NewJanitor(service.GetBot())

		warns := moderation.NewWarnService(service.GetBot(), service.GetDB(), janitor, cfg.Moderation, service.GetLanguage())
		approvals := moderation.NewApprovalService(service.GetBot(), service.GetDB(), janitor, cfg.Moderation, service.GetOwnerID(), service.GetLanguage())

		bot.RegisterUpdateHandler("watchdog", chatHandlers.NewWatchdog(service.GetBot(), service.GetDB(), warns, approvals, chatHandlers.WatchdogConfig{
			SelfID:  botAPI.Self.ID,
			OwnerID: service.GetOwnerID(),
			Lang:    service.GetLanguage(),
		}))
		bot.RegisterUpdateHandler("admin", adminHandlers.NewAdmin(service.GetBot(), service.GetDB(), warns, janitor, adminHandlers.AdminConfig{
			OwnerID:    service.GetOwnerID(),
			Lang:       service.GetLanguage(),
			Moderation: cfg.Moderation,
		}))

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateProcessor := bot.NewUpdateProcessor()
		dispatcher := bot.NewDispatcher(8, 64, updateProcessor.Process)

		runtime := lifecycle.NewRuntime(janitor, dispatcher)
		if err := runtime.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start components")
		}
		defer func() {
			if err := runtime.Stop(context.Background()); err != nil {
				log.WithError(err).Errorln("cant stop components")
			}
		}()

		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			for {
				select {
				case err := <-errorChan:
					return err
				case update := <-updateChan:
					if err := dispatcher.Dispatch(gctx, &update); err != nil {
						log.WithError(err).Errorln("cant dispatch update")
					}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
		if err := g.Wait(); err != nil {
			log.WithError(err).Errorln("no more updates")
		}
	})

	<-ctx.Done()
	os.Exit(0)
}
