package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"tasklist/internal/bot"
	"tasklist/internal/config"
	"tasklist/internal/repository"
	"tasklist/internal/service"
	"tasklist/internal/store"
	"tasklist/internal/taskapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := config.ConfigureLogging(cfg.LogLevel); err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)

	client := taskapi.New(cfg.TasksAPIURL, taskapi.WithTimeout(cfg.TasksAPITimeout))
	tasks := store.New(client)
	if err := tasks.Load(ctx); err != nil {
		log.WithError(err).Warn("initial task load failed, starting with an empty list")
	}

	taskSvc := service.NewTaskService(tasks)
	reminderSvc := service.NewReminderService()

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, taskSvc, reminderSvc)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if err := scheduleReminders(scheduler, cfg, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), cfg.TasksAPITimeout+30*time.Second)
		defer cancel()
		if err := telegramBot.SendDueReminders(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("reminders: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.WithFields(log.Fields{"api": cfg.TasksAPIURL, "tasks": tasks.Len(), "reminder_jobs": scheduler.Len()}).Info("task list bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

// scheduleReminders registers the interval job and, when configured, the daily one.
func scheduleReminders(scheduler *service.SchedulerService, cfg config.Config, job func()) error {
	if cfg.ReminderInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReminderInterval, job); err != nil {
			return err
		}
	}
	if cfg.ReminderAt != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReminderAt, job); err != nil {
			return fmt.Errorf("REMINDER_AT: %w", err)
		}
	}
	return nil
}
