package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"astrobot/internal/models"
	"astrobot/internal/pkg/metrics"
)

// Producer publishes analysis jobs to the worker queues.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a Kafka producer. The topic is chosen per message.
func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, logger: logger}
}

// publish marshals the payload and writes it to the topic, keyed so messages
// for one user stay in one partition and arrive in order.
func (p *Producer) publish(ctx context.Context, topic string, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}

	metrics.JobsEnqueuedTotal.WithLabelValues(topic).Inc()
	p.logger.Info("Published job",
		zap.String("topic", topic),
		zap.String("key", key))
	return nil
}

// EnqueueAnalysis sends a planet analysis job to that planet's queue.
func (p *Producer) EnqueueAnalysis(ctx context.Context, job AnalysisJob) error {
	topic := PredictionTopic(job.Planet)
	if topic == "" {
		return fmt.Errorf("no prediction topic for planet %q", job.Planet)
	}
	job.Kind = JobKindAnalysis
	job.Timestamp = time.Now()
	return p.publish(ctx, topic, userKey(job.UserTelegramID), job)
}

// EnqueueRecommendations sends a recommendations job. Sun-based
// recommendations go to their dedicated queue, everything else shares one.
func (p *Producer) EnqueueRecommendations(ctx context.Context, job RecommendationJob) error {
	topic := TopicRecommendations
	if job.Planet == models.PlanetSun {
		topic = TopicSunRecommendations
	}
	job.Kind = JobKindRecommendation
	job.Timestamp = time.Now()
	return p.publish(ctx, topic, userKey(job.UserTelegramID), job)
}

// EnqueueQuestion sends a user question for processing. Questions carrying
// sun-analysis context use the dedicated sun_questions queue.
func (p *Producer) EnqueueQuestion(ctx context.Context, job QuestionJob) error {
	topic := TopicQuestions
	if job.Analysis != "" {
		topic = TopicSunQuestions
	}
	job.Kind = JobKindQuestion
	job.Timestamp = time.Now()
	return p.publish(ctx, topic, userKey(job.UserTelegramID), job)
}

// EnqueueForecast sends a daily forecast job.
func (p *Producer) EnqueueForecast(ctx context.Context, job ForecastJob) error {
	job.Kind = JobKindForecast
	job.Timestamp = time.Now()
	return p.publish(ctx, TopicPersonalForecasts, userKey(job.UserTelegramID), job)
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func userKey(telegramID int64) string {
	return "user-" + strconv.FormatInt(telegramID, 10)
}
