package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/mailtosocial/configs"
	"github.com/maheshrc27/mailtosocial/internal/api/handlers"
	"github.com/maheshrc27/mailtosocial/internal/api/middleware"
	job "github.com/maheshrc27/mailtosocial/internal/jobs"
	"github.com/maheshrc27/mailtosocial/internal/metrics"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/queue"
	"github.com/maheshrc27/mailtosocial/internal/repository"
	"github.com/maheshrc27/mailtosocial/internal/service"
	"github.com/robfig/cron"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    int(cfg.MediaMaxBytes) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	mediaFetcher := service.NewMediaFetcher(httpClient, cfg.MediaMaxBytes)

	storage, err := service.NewR2Storage(context.Background(), cfg.R2)
	if err != nil {
		log.Fatalf("Failed to set up media storage: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	scheduledPostRepo := repository.NewScheduledPostRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)
	credentialRepo := repository.NewCredentialRepository(db, repository.CredentialSourcesFor(cfg.CredentialTables))

	twitterService := service.NewTwitterService(
		service.NewOAuth1Signer(cfg.Twitter.APIKey, cfg.Twitter.APISecret),
		httpClient,
		rate.NewLimiter(rate.Limit(cfg.PlatformRPS), 1),
		mediaFetcher,
	)
	linkedInService := service.NewLinkedInService(httpClient, rate.NewLimiter(rate.Limit(cfg.PlatformRPS), 1), mediaFetcher)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	platformService := service.NewPlatformService(*cfg, socialAccountRepo, twitterService, linkedInService)
	scheduledPostService := service.NewScheduledPostService(scheduledPostRepo, mediaAssetRepo, historyRepo, storage, cfg.MediaMaxBytes)
	credentialService := service.NewCredentialService(cfg.SecretKey, credentialRepo)

	publishers := map[string]service.Publisher{
		models.PlatformTwitter:  twitterService,
		models.PlatformLinkedIn: linkedInService,
	}
	if cfg.RelayEnabled() {
		slog.Info("publishing through relay", "base_url", cfg.Relay.BaseURL)
		publishers = map[string]service.Publisher{
			models.PlatformTwitter:  service.NewRelayPublisher(models.PlatformTwitter, cfg.Relay.BaseURL, cfg.Relay.Secret, httpClient),
			models.PlatformLinkedIn: service.NewRelayPublisher(models.PlatformLinkedIn, cfg.Relay.BaseURL, cfg.Relay.Secret, httpClient),
		}
	}

	publishJob := job.NewPublishJob(scheduledPostRepo, historyRepo, credentialService, publishers, cfg.PublishRowTimeout)

	app.Get("/metrics", metrics.Handler())

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Post("/logout", auth.Logout)

	platform := handlers.NewPlatformHandler(platformService, *cfg)
	app.Get("/auth/:platform", platform.AddSocialAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	// relay and cron routes authenticate with the hourly relay token
	if cfg.Relay.Secret != "" {
		relayAuth := middleware.RelayAuth(cfg.Relay.Secret, time.Now)

		relay := handlers.NewRelayHandler(twitterService, linkedInService)
		app.Post("/api/scheduled-posts/twitter", relayAuth, relay.PublishTwitter)
		app.Post("/api/scheduled-posts/linkedin", relayAuth, relay.PublishLinkedIn)

		cronHandler := handlers.NewCronHandler(publishJob)
		app.Post("/cron/scheduled-posts", relayAuth, cronHandler.RunScheduledPosts)
	}

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService, cfg.CookieName)
	api.Get("/user/info", user.GetUserInfo)
	api.Delete("/user", user.DeleteUser)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Delete("/accounts/:id", platform.DeleteSocialAccount)

	posts := handlers.NewScheduledPostHandler(scheduledPostService)
	api.Post("/scheduled-posts", posts.CreatePost)
	api.Get("/scheduled-posts", posts.ListPosts)
	api.Get("/scheduled-posts/:id", posts.GetPost)
	api.Patch("/scheduled-posts/:id", posts.UpdatePost)
	api.Delete("/scheduled-posts/:id", posts.RemovePost)
	api.Get("/scheduled-posts/:id/history", posts.PostHistory)

	c := cron.New()
	var asynqServer *asynq.Server

	if cfg.RedisURI != "" {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		client := asynq.NewClient(redisConn)
		defer client.Close()

		err = c.AddFunc(cfg.TickSchedule, func() {
			if err := queue.EnqueueTick(client, time.Now(), cfg.TickTimeout); err != nil {
				slog.Error("enqueue publish tick", "error", err)
			}
		})

		asynqServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
		})
		queueW := queue.NewQueue(publishJob)

		go func() {
			mux := asynq.NewServeMux()
			mux.HandleFunc(queue.TaskTypePublishTick, queueW.HandlePublishTickTask)

			log.Println("Starting the Asynq server...")
			if err := asynqServer.Run(mux); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	} else {
		err = c.AddFunc(cfg.TickSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.TickTimeout)
			defer cancel()
			if _, err := publishJob.Run(ctx); err != nil {
				slog.Error("publish tick", "error", err)
			}
		})
	}
	if err != nil {
		log.Fatalf("Invalid tick schedule %q: %v", cfg.TickSchedule, err)
	}
	c.Start()

	go func() {
		if err := app.Listen(cfg.ServerAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.BaseURL)

	gracefulShutdown(app, c, asynqServer)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, asynqServer *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	if asynqServer != nil {
		asynqServer.Shutdown()
	}

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
