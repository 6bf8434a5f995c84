package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/kidprogress/internal/api"
	"github.com/example/kidprogress/internal/badges"
	"github.com/example/kidprogress/internal/bot"
	"github.com/example/kidprogress/internal/config"
	"github.com/example/kidprogress/internal/database"
	"github.com/example/kidprogress/internal/excel"
	"github.com/example/kidprogress/internal/logging"
	"github.com/example/kidprogress/internal/progress"
	"github.com/example/kidprogress/internal/scheduler"
	"github.com/example/kidprogress/internal/streak"
	"github.com/example/kidprogress/pkg/models"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	importActivities := flag.String("import-activities", "", "import the activity catalog from an .xlsx or .csv file and exit")
	importBadges := flag.String("import-badges", "", "import badge definitions from an .xlsx or .csv file and exit")
	sheet := flag.String("sheet", "", "sheet to import (defaults to the first sheet)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if *importActivities != "" || *importBadges != "" {
		if err := runImports(ctx, db, *importActivities, *importBadges, *sheet, logger); err != nil {
			logger.Fatal("import failed", zap.Error(err))
		}
		return
	}

	if err := run(ctx, cfg, db, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, db *sqlx.DB, logger *zap.Logger) error {
	progressRepo := database.NewProgressRepository(db)
	badgeRepo := database.NewBadgeRepository(db)
	awardRepo := database.NewAwardRepository(db)
	streakRepo := database.NewStreakRepository(db)

	loc := cfg.Location()
	streaks := streak.NewService(streakRepo, logger, streak.WithLocation(loc))
	evaluator := badges.NewEvaluator(badgeRepo, awardRepo, progressRepo, logger)

	// The orchestrator needs the notifier and the bot needs the orchestrator.
	var telegram *bot.Bot
	notify := &notifierProxy{target: bot.NewLogNotifier(logger)}

	orchestrator := progress.NewOrchestrator(progressRepo, awardRepo, streaks, evaluator, notify, logger, progress.Options{
		StreakProbe: cfg.Progress.StreakProbe,
		RecentLimit: cfg.Progress.RecentLimit,
	})

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, cfg.Telegram.ChatID, orchestrator, logger, bot.DefaultOptions())
		if err != nil {
			logger.Warn("telegram disabled, falling back to log notifications", zap.Error(err))
		} else {
			telegram = b
			notify.target = b
		}
	}

	jobs := scheduler.New(progressRepo, streakRepo, evaluator, notify, scheduler.Config{
		SweepInterval: cfg.Progress.SweepInterval,
		ReminderHour:  cfg.Progress.ReminderHour,
		Location:      loc,
	}, logger)
	if err := jobs.Start(ctx); err != nil {
		return err
	}
	defer jobs.Stop()

	server := api.NewServer(orchestrator, evaluator, streaks, logger).HTTPServer(cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if telegram != nil {
		g.Go(func() error {
			telegram.Run(gctx)
			return nil
		})
	}
	return g.Wait()
}

// notifierProxy lets the notifier be chosen after the orchestrator exists
type notifierProxy struct {
	target bot.Notifier
}

func (p *notifierProxy) BadgeAwarded(ctx context.Context, award models.StudentBadge) error {
	return p.target.BadgeAwarded(ctx, award)
}

func (p *notifierProxy) StreakAtRisk(ctx context.Context, rec models.Streak) error {
	return p.target.StreakAtRisk(ctx, rec)
}

func runImports(ctx context.Context, db *sqlx.DB, activitiesPath, badgesPath, sheet string, logger *zap.Logger) error {
	if activitiesPath != "" {
		cfg := excel.DefaultActivityConfig()
		cfg.FilePath = activitiesPath
		cfg.SheetName = sheet
		result, err := excel.ImportActivities(ctx, database.NewActivityRepository(db), cfg)
		if err != nil {
			return fmt.Errorf("import activities: %w", err)
		}
		logImport(logger, "activities", result)
	}
	if badgesPath != "" {
		cfg := excel.DefaultBadgeConfig()
		cfg.FilePath = badgesPath
		cfg.SheetName = sheet
		result, err := excel.ImportBadges(ctx, database.NewBadgeRepository(db), cfg)
		if err != nil {
			return fmt.Errorf("import badges: %w", err)
		}
		logImport(logger, "badges", result)
	}
	return nil
}

func logImport(logger *zap.Logger, kind string, result *excel.ImportResult) {
	logger.Info("import finished",
		zap.String("kind", kind),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	for _, msg := range result.Errors {
		logger.Warn("import row rejected", zap.String("kind", kind), zap.String("error", msg))
	}
}
