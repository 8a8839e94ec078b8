package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskplanner/internal/bot"
	"taskplanner/internal/config"
	"taskplanner/internal/focus"
	"taskplanner/internal/repository"
	"taskplanner/internal/service"
)

const jobTimeout = 30 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	v := config.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "taskplanner",
		Short:         "Personal task planner with daily plans, reminders and a focus timer, served over Telegram.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a taskplanner.yaml config file.")
	cmd.Flags().String("db", "", "SQLite database path (DATABASE_URL).")
	cmd.Flags().String("token", "", "Telegram bot token (TELEGRAM_TOKEN).")
	bindFlag(v, cmd, "database_url", "db")
	bindFlag(v, cmd, "telegram_token", "token")
	return cmd
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		log.Fatalf("bind flag %s: %v", flag, err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)

	scheduler := service.NewSchedulerService(time.Local)
	reminderSvc := service.NewReminderService(taskRepo, scheduler, nil, time.Now)
	planSvc := service.NewPlanService(taskRepo, time.Now)
	focusSvc := service.NewFocusService(taskRepo, nil, focus.WithInterval(cfg.TickInterval))
	defer focusSvc.Close()

	svc := bot.Services{
		Tasks:    service.NewTaskService(taskRepo, reminderSvc, time.Now),
		Plans:    planSvc,
		Calendar: service.NewCalendarService(taskRepo, time.Local),
		Digest:   service.NewDigestService(taskRepo),
		Focus:    focusSvc,
	}

	telegramBot, err := bot.New(cfg, taskRepo, svc)
	if err != nil {
		return err
	}
	reminderSvc.SetNotifier(telegramBot)
	focusSvc.SetNotifier(telegramBot)

	if err := planSvc.Load(ctx); err != nil {
		return err
	}
	if err := reminderSvc.Restore(ctx); err != nil {
		return err
	}

	if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := telegramBot.SendDailyDigest(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("digest: %v", err)
		}
	}); err != nil {
		return err
	}
	if _, err := scheduler.ScheduleDaily("00:00", func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := planSvc.Load(jobCtx); err != nil {
			log.Printf("reload plan: %v", err)
		}
	}); err != nil {
		return err
	}
	if _, err := scheduler.ScheduleInterval(time.Hour, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := reminderSvc.Restore(jobCtx); err != nil {
			log.Printf("resync reminders: %v", err)
		}
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Task planner bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}
