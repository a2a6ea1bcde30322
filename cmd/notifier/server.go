package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	firebase "firebase.google.com/go/v4"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/imtahan-notifier/internal/config"
	"github.com/xxxsen/imtahan-notifier/internal/gcp"
	"github.com/xxxsen/imtahan-notifier/internal/handler"
	"github.com/xxxsen/imtahan-notifier/internal/job"
	"github.com/xxxsen/imtahan-notifier/internal/middleware"
	"github.com/xxxsen/imtahan-notifier/internal/model"
	"github.com/xxxsen/imtahan-notifier/internal/push"
	"github.com/xxxsen/imtahan-notifier/internal/repo"
	"github.com/xxxsen/imtahan-notifier/internal/schedule"
	"github.com/xxxsen/imtahan-notifier/internal/service"
	"github.com/xxxsen/imtahan-notifier/internal/store"
	"github.com/xxxsen/imtahan-notifier/internal/trigger"
)

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := logutil.GetLogger(ctx)
	logger.Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("trigger", cfg.Trigger.Type),
		zap.String("timezone", cfg.Schedule.Timezone),
	)

	app, err := gcp.NewApp(ctx, cfg.Firebase)
	if err != nil {
		return err
	}
	st, err := store.New(ctx, cfg.Store.Type, app)
	if err != nil {
		return err
	}
	defer closeStore(st)

	outboxRepo := repo.NewOutboxRepo(st)
	profileRepo := repo.NewProfileRepo(st)
	postRepo := repo.NewPostRepo(st)

	sender, err := push.NewFCM(ctx, app)
	if err != nil {
		return err
	}
	dispatcher := service.NewDispatcher(outboxRepo, profileRepo, sender, service.MessageOptions{
		DefaultTitle:     cfg.Notification.DefaultTitle,
		AndroidChannelID: cfg.Notification.AndroidChannelID,
		ClickAction:      cfg.Notification.ClickAction,
		Badge:            cfg.Notification.Badge,
	}, time.Now)
	enqueueService := service.NewEnqueueService(outboxRepo, profileRepo)

	source, closeSource, err := newSource(ctx, cfg, outboxRepo)
	if err != nil {
		return err
	}
	defer closeSource()

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}
	var scheduler schedule.Scheduler = schedule.NewCronScheduler(loc)
	if err := scheduler.AddJob(job.NewQueueCleanupJob(st, outboxRepo, cfg.Cleanup.QueueRetention(), time.Now), cfg.Schedule.QueueCleanup); err != nil {
		return fmt.Errorf("schedule queue cleanup: %w", err)
	}
	if err := scheduler.AddJob(job.NewContentCleanupJob(st, postRepo, time.Now), cfg.Schedule.ContentCleanup); err != nil {
		return fmt.Errorf("schedule content cleanup: %w", err)
	}

	deps := handler.RouterDeps{
		Notifications: handler.NewNotificationHandler(enqueueService),
		RateLimit:     cfg.RateLimitWindow(),
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- source.Run(ctx, func(ctx context.Context, rec *model.OutboxRecord) {
			dispatcher.Dispatch(ctx, rec)
		})
	}()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()
	logger.Info("http server listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
	case err := <-sourceDone:
		if err != nil {
			logger.Error("trigger source stopped", zap.Error(err))
		}
		stop()
		return err
	}
	logger.Info("server stopping...")
	if err := <-sourceDone; err != nil {
		logger.Error("trigger source stopped", zap.Error(err))
	}
	return nil
}

func newSource(ctx context.Context, cfg *config.Config, outbox *repo.OutboxRepo) (trigger.Source, func(), error) {
	if cfg.Trigger.Type != "pubsub" {
		return trigger.NewStoreSource(outbox), func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.Firebase.ProjectID, gcp.ClientOptions(cfg.Firebase)...)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client: %w", err)
	}
	return trigger.NewPubSubSource(client, cfg.Trigger.Subscription, outbox), func() {
		_ = client.Close()
	}, nil
}

func runReap(ctx context.Context, cfg *config.Config, which string) error {
	var app *firebase.App
	if cfg.Store.Type == "firestore" {
		var err error
		if app, err = gcp.NewApp(ctx, cfg.Firebase); err != nil {
			return err
		}
	}
	st, err := store.New(ctx, cfg.Store.Type, app)
	if err != nil {
		return err
	}
	defer closeStore(st)

	logger := logutil.GetLogger(ctx).With(zap.String("job", which))
	switch which {
	case "queue":
		n, err := job.NewQueueCleanupJob(st, repo.NewOutboxRepo(st), cfg.Cleanup.QueueRetention(), time.Now).Reap(ctx)
		if err != nil {
			return err
		}
		logger.Info("reap finished", zap.Int("deleted", n))
	case "content":
		res, err := job.NewContentCleanupJob(st, repo.NewPostRepo(st), time.Now).Reap(ctx)
		if err != nil {
			return err
		}
		logger.Info("reap finished",
			zap.Int("posts", res.Posts),
			zap.Int("answers", res.Answers),
			zap.Int("failed", res.Failed),
			zap.Int("committed_ops", res.Committed),
		)
	default:
		return fmt.Errorf("unknown cleanup job: %s", which)
	}
	return nil
}

func closeStore(st store.Store) {
	if c, ok := st.(io.Closer); ok {
		_ = c.Close()
	}
}
