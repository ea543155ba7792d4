package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"astrobot/internal/config"
	"astrobot/internal/llm"
	"astrobot/internal/pkg/telegram"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
	"astrobot/internal/worker"
)

// One worker process consumes one topic. The fleet is a set of these
// processes, one per queue, all sharing the consumer group id.
func main() {
	topicFlag := flag.String("queue", "", "queue topic to consume (required)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	topic := strings.TrimSpace(*topicFlag)
	if topic == "" {
		logger.Fatal("--queue is required",
			zap.Strings("known_topics", queue.AllTopics()))
	}
	if !queue.ValidTopic(topic) {
		logger.Fatal("Unknown queue topic",
			zap.String("topic", topic),
			zap.Strings("known_topics", queue.AllTopics()))
	}
	logger = logger.With(zap.String("queue", topic))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	botAPI := telegram.NewBotAPI(cfg.Bot.Token)
	completer := llm.NewOpenRouterClient(cfg.LLM)

	producer := queue.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()

	w := worker.New(
		topic,
		repository.NewUserRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewPredictionRepository(db),
		repository.NewForecastRepository(db),
		completer,
		botAPI,
		producer,
		logger,
	)
	handler, err := w.Handler()
	if err != nil {
		logger.Fatal("Worker setup failed", zap.Error(err))
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID, logger)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker starting")
	if err := consumer.Run(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", zap.Error(err))
	}
	logger.Info("Worker exited")
}
