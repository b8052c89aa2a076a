package main

import (
	"context"
	"log"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"neurax/config"
	"neurax/controllers"
	"neurax/helpers"
	"neurax/models"
	"neurax/services/ai"
	"neurax/services/market"
	"neurax/services/twitter"
	"neurax/services/ws"
	"neurax/stores"
	"neurax/tasks"
)

func main() {
	app := helpers.CreateApp()
	cfg := config.Load()

	var rdb *redis.Client
	if cfg.RedisHost != "" {
		rdb = models.ConnectRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisUser, cfg.RedisPassword, cfg.RedisDB, cfg.Env)
		if rdb == nil {
			app.Logger().Warn("redis unreachable, using in-memory stores")
		}
	}

	policy := helpers.DefaultRetryPolicy()
	fetcher := helpers.NewFetcher(policy)
	signer := twitter.NewSigner(cfg.TwitterAPIKey, cfg.TwitterAPISecret)
	flow := twitter.NewOAuthFlow(signer, fetcher, cfg.TwitterCallbackURL)
	flow2 := twitter.NewOAuth2Flow(cfg.TwitterClientID, cfg.TwitterClientSecret, cfg.TwitterCallbackURL+"2")

	hub := ws.NewHub(app.Logger())
	marketSvc := market.NewService(fetcher, rdb, cfg.CoinGeckoAPIKey, app.Logger())
	aiSvc := ai.NewService(cfg.OpenRouterAPIKey, cfg.HuggingFaceAPIKey, fetcher, marketSvc, app.Logger())

	var handshakes stores.HandshakeStore
	memoryHandshakes := stores.NewMemoryHandshakeStore(stores.DefaultHandshakeTTL)
	if rdb != nil {
		handshakes = stores.NewRedisHandshakeStore(rdb, stores.DefaultHandshakeTTL)
	} else {
		handshakes = memoryHandshakes
	}

	api := &controllers.API{
		App:        app,
		Config:     &cfg,
		Handshakes: handshakes,
		Signer:     signer,
		Flow:       flow,
		Flow2:      flow2,
		Fetcher:    fetcher,
		Policy:     policy,
		Hub:        hub,
		AI:         aiSvc,
		Market:     marketSvc,
	}

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := stores.Migrate(app.DB()); err != nil {
			return err
		}
		st := stores.New(app.DB())
		api.Stores = st
		api.Publisher = &tasks.Publisher{
			Logger: app.Logger(), Stores: st, Signer: signer, Fetcher: fetcher, Policy: policy, Hub: hub,
		}
		api.Metrics = &tasks.MetricsRefresher{
			Logger: app.Logger(), Stores: st, Signer: signer, Fetcher: fetcher, Policy: policy, Hub: hub,
		}

		se.Router.GET("/ping", controllers.Ping)
		api.SetupAuthRoutes(se)
		api.SetupTwitterAuthRoutes(se)
		api.SetupTwitterAccountRoutes(se)
		api.SetupPostRoutes(se)
		api.SetupAIRoutes(se)
		api.SetupTradingRoutes(se)
		api.SetupCryptoRoutes(se)
		api.SetupMetricsRoutes(se)
		api.SetupWebSocketRoutes(se)
		return se.Next()
	})

	app.Cron().MustAdd("Publish Scheduled Posts", "* * * * *", func() {
		if api.Publisher == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		api.Publisher.PublishDue(ctx)
	})
	app.Cron().MustAdd("Fetch Metrics", "0 * * * *", func() {
		if api.Metrics == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		api.Metrics.RefreshAll(ctx)
	})
	app.Cron().MustAdd("Sweep Ephemeral State", "*/10 * * * *", func() {
		memoryHandshakes.Sweep()
		if api.Stores != nil {
			api.Stores.Sessions.Sweep()
		}
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
