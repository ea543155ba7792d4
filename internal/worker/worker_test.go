package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"astrobot/internal/llm"
	"astrobot/internal/models"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
)

// ── Fakes ─────────────────────────────────────────────────────────────

type fakeUserStore struct {
	user *models.User
}

func (f *fakeUserStore) FindByTelegramID(telegramID int64) (*models.User, error) {
	if f.user == nil {
		return nil, errors.New("user not found")
	}
	return f.user, nil
}

type fakePaymentStore struct {
	payment          *models.PlanetPayment
	processingErr    error
	delivered        []int64
	failed           map[int64]string
	analysisDone     []int64
	markedProcessing []int64
}

func newFakePaymentStore(p *models.PlanetPayment) *fakePaymentStore {
	return &fakePaymentStore{payment: p, failed: map[int64]string{}}
}

func (f *fakePaymentStore) FindByID(paymentID int64) (*models.PlanetPayment, error) {
	if f.payment == nil || f.payment.PaymentID != paymentID {
		return nil, errors.New("payment not found")
	}
	return f.payment, nil
}

func (f *fakePaymentStore) MarkProcessing(paymentID int64) error {
	if f.processingErr != nil {
		return f.processingErr
	}
	f.markedProcessing = append(f.markedProcessing, paymentID)
	return nil
}

func (f *fakePaymentStore) MarkAnalysisCompleted(paymentID int64) error {
	f.analysisDone = append(f.analysisDone, paymentID)
	return nil
}

func (f *fakePaymentStore) MarkDelivered(paymentID int64) error {
	f.delivered = append(f.delivered, paymentID)
	return nil
}

func (f *fakePaymentStore) MarkAnalysisFailed(paymentID int64, cause string) error {
	f.failed[paymentID] = cause
	return nil
}

type fakePredictionStore struct {
	prediction *models.Prediction
	analyses   map[models.Planet]string
	recs       string
	qa         [][2]string
}

func newFakePredictionStore() *fakePredictionStore {
	return &fakePredictionStore{analyses: map[models.Planet]string{}}
}

func (f *fakePredictionStore) FindByID(predictionID int64) (*models.Prediction, error) {
	if f.prediction == nil {
		return nil, errors.New("prediction not found")
	}
	return f.prediction, nil
}

func (f *fakePredictionStore) SetAnalysis(predictionID int64, planet models.Planet, content string, meta models.LLMMeta) error {
	f.analyses[planet] = content
	return nil
}

func (f *fakePredictionStore) SetRecommendations(predictionID int64, content string, meta models.LLMMeta) error {
	f.recs = content
	return nil
}

func (f *fakePredictionStore) AppendQA(predictionID int64, question, answer string) error {
	f.qa = append(f.qa, [2]string{question, answer})
	return nil
}

type fakeForecastStore struct{}

func (fakeForecastStore) FindByUserAndDate(userID int64, date time.Time) (*models.DailyForecast, error) {
	return nil, errors.New("not found")
}
func (fakeForecastStore) Upsert(f *models.DailyForecast) error             { return nil }
func (fakeForecastStore) MarkDelivered(userID int64, date time.Time) error { return nil }

type fakeCompleter struct {
	result *llm.Result
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, kind, prompt string) (*llm.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	sent    []string
	sendErr error
}

func (f *fakeNotifier) SendMessage(chatID int64, text string, replyMarkup interface{}) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) SendLongMessage(chatID int64, text string) error {
	return f.SendMessage(chatID, text, nil)
}

type fakePublisher struct {
	analyses        []queue.AnalysisJob
	recommendations []queue.RecommendationJob
}

func (f *fakePublisher) EnqueueAnalysis(ctx context.Context, job queue.AnalysisJob) error {
	f.analyses = append(f.analyses, job)
	return nil
}

func (f *fakePublisher) EnqueueRecommendations(ctx context.Context, job queue.RecommendationJob) error {
	f.recommendations = append(f.recommendations, job)
	return nil
}

type analysisFixture struct {
	worker      *Worker
	payments    *fakePaymentStore
	predictions *fakePredictionStore
	notifier    *fakeNotifier
	publisher   *fakePublisher
	completer   *fakeCompleter
}

func newAnalysisFixture(topic string, payment *models.PlanetPayment) *analysisFixture {
	f := &analysisFixture{
		payments:    newFakePaymentStore(payment),
		predictions: newFakePredictionStore(),
		notifier:    &fakeNotifier{},
		publisher:   &fakePublisher{},
		completer: &fakeCompleter{result: &llm.Result{
			Content:     "Ваш подробный разбор",
			Model:       "test-model",
			TokensUsed:  128,
			Temperature: 0.7,
		}},
	}
	users := &fakeUserStore{user: &models.User{UserID: 1, TelegramID: 100, FirstName: "Anya"}}
	f.worker = New(topic, users, f.payments, f.predictions, fakeForecastStore{},
		f.completer, f.notifier, f.publisher, zap.NewNop())
	return f
}

func analysisMessage(t *testing.T, job queue.AnalysisJob) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(job)
	require.NoError(t, err)
	return kafka.Message{Topic: queue.PredictionTopic(job.Planet), Value: raw}
}

func TestHandlerSelection(t *testing.T) {
	topicsWithHandlers := append([]string{}, queue.AllTopics()...)
	for _, topic := range topicsWithHandlers {
		w := &Worker{topic: topic}
		h, err := w.Handler()
		require.NoError(t, err, topic)
		assert.NotNil(t, h, topic)
	}

	w := &Worker{topic: "pluto_predictions"}
	_, err := w.Handler()
	assert.Error(t, err)
}

func TestDecodeJob(t *testing.T) {
	msg := kafka.Message{
		Topic: queue.TopicVenusPredictions,
		Value: []byte(`{"kind":"planet_analysis","payment_id":7,"prediction_id":3,"user_telegram_id":100,"planet":"venus","astrology_data":"data"}`),
	}

	var job queue.AnalysisJob
	require.NoError(t, decodeJob(msg, &job))
	assert.Equal(t, int64(7), job.PaymentID)
	assert.Equal(t, models.PlanetVenus, job.Planet)
	assert.Equal(t, "data", job.AstrologyData)
}

func TestDecodeJobBadPayload(t *testing.T) {
	msg := kafka.Message{Topic: queue.TopicQuestions, Value: []byte("{")}

	var job queue.QuestionJob
	err := decodeJob(msg, &job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), queue.TopicQuestions)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Анна", displayName(&models.User{FullName: "Анна", FirstName: "Anya"}))
	assert.Equal(t, "Anya", displayName(&models.User{FirstName: "Anya", Username: "anya42"}))
	assert.Equal(t, "anya42", displayName(&models.User{Username: "anya42"}))
	assert.Equal(t, "друг", displayName(&models.User{}))
}

func TestGenderLabel(t *testing.T) {
	assert.Equal(t, "мужской", genderLabel(models.GenderMale))
	assert.Equal(t, "женский", genderLabel(models.GenderFemale))
	assert.Equal(t, "не указан", genderLabel(models.GenderUnknown))
}

func TestHandleAnalysisSinglePlanetDelivers(t *testing.T) {
	venus := models.PlanetVenus
	f := newAnalysisFixture(queue.TopicVenusPredictions, &models.PlanetPayment{
		PaymentID:   7,
		UserID:      1,
		PaymentType: models.PaymentTypeSinglePlanet,
		Planet:      &venus,
		Status:      models.PaymentStatusCompleted,
	})

	msg := analysisMessage(t, queue.AnalysisJob{
		PaymentID: 7, PredictionID: 3, UserTelegramID: 100,
		Planet: models.PlanetVenus, AstrologyData: "chart",
	})
	require.NoError(t, f.worker.handleAnalysis(context.Background(), msg))

	assert.Equal(t, []int64{7}, f.payments.markedProcessing)
	assert.Equal(t, "Ваш подробный разбор", f.predictions.analyses[models.PlanetVenus])
	assert.Equal(t, []int64{7}, f.payments.analysisDone)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "Ваш подробный разбор")

	// Single purchases finish in one hop: delivered plus the closing
	// recommendations job, no further analysis jobs.
	assert.Equal(t, []int64{7}, f.payments.delivered)
	assert.Empty(t, f.publisher.analyses)
	require.Len(t, f.publisher.recommendations, 1)
	assert.Equal(t, models.PlanetVenus, f.publisher.recommendations[0].Planet)
	assert.Equal(t, "Ваш подробный разбор", f.publisher.recommendations[0].Analysis)
}

func TestHandleAnalysisBundleChainsBeforeDelivered(t *testing.T) {
	f := newAnalysisFixture(queue.TopicSunPredictions, &models.PlanetPayment{
		PaymentID:   8,
		UserID:      1,
		PaymentType: models.PaymentTypeAllPlanets,
		Status:      models.PaymentStatusCompleted,
	})

	msg := analysisMessage(t, queue.AnalysisJob{
		PaymentID: 8, PredictionID: 3, UserTelegramID: 100,
		Planet: models.PlanetSun, AstrologyData: "chart",
	})
	require.NoError(t, f.worker.handleAnalysis(context.Background(), msg))

	// Mid-sequence: the next planet is queued and the payment must not
	// flip to delivered yet.
	require.Len(t, f.publisher.analyses, 1)
	assert.Equal(t, models.PlanetMercury, f.publisher.analyses[0].Planet)
	assert.Equal(t, int64(8), f.publisher.analyses[0].PaymentID)
	assert.Empty(t, f.payments.delivered)
	assert.Empty(t, f.publisher.recommendations)
}

func TestHandleAnalysisBundleFinalPlanetDelivers(t *testing.T) {
	f := newAnalysisFixture(queue.TopicMarsPredictions, &models.PlanetPayment{
		PaymentID:   9,
		UserID:      1,
		PaymentType: models.PaymentTypeAllPlanets,
		Status:      models.PaymentStatusProcessing,
	})

	msg := analysisMessage(t, queue.AnalysisJob{
		PaymentID: 9, PredictionID: 3, UserTelegramID: 100,
		Planet: models.PlanetMars, AstrologyData: "chart",
	})
	require.NoError(t, f.worker.handleAnalysis(context.Background(), msg))

	assert.Empty(t, f.publisher.analyses)
	assert.Equal(t, []int64{9}, f.payments.delivered)
	require.Len(t, f.publisher.recommendations, 1)
	assert.Equal(t, models.PlanetMars, f.publisher.recommendations[0].Planet)
}

func TestHandleAnalysisLLMFailureMarksPayment(t *testing.T) {
	sun := models.PlanetSun
	f := newAnalysisFixture(queue.TopicSunPredictions, &models.PlanetPayment{
		PaymentID:   10,
		UserID:      1,
		PaymentType: models.PaymentTypeSinglePlanet,
		Planet:      &sun,
		Status:      models.PaymentStatusCompleted,
	})
	f.completer.err = errors.New("model overloaded")

	msg := analysisMessage(t, queue.AnalysisJob{
		PaymentID: 10, PredictionID: 3, UserTelegramID: 100,
		Planet: models.PlanetSun, AstrologyData: "chart",
	})
	err := f.worker.handleAnalysis(context.Background(), msg)
	require.Error(t, err)

	assert.Contains(t, f.payments.failed[10], "model overloaded")
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.payments.delivered)
}

func TestHandleAnalysisDeliveryFailureMarksPayment(t *testing.T) {
	sun := models.PlanetSun
	f := newAnalysisFixture(queue.TopicSunPredictions, &models.PlanetPayment{
		PaymentID:   11,
		UserID:      1,
		PaymentType: models.PaymentTypeSinglePlanet,
		Planet:      &sun,
		Status:      models.PaymentStatusCompleted,
	})
	f.notifier.sendErr = errors.New("chat blocked")

	msg := analysisMessage(t, queue.AnalysisJob{
		PaymentID: 11, PredictionID: 3, UserTelegramID: 100,
		Planet: models.PlanetSun, AstrologyData: "chart",
	})
	err := f.worker.handleAnalysis(context.Background(), msg)
	require.Error(t, err)

	// The analysis is stored; only delivery failed, so the retry pass can
	// finish the job without another LLM call.
	assert.Equal(t, "Ваш подробный разбор", f.predictions.analyses[models.PlanetSun])
	assert.Contains(t, f.payments.failed[11], "chat blocked")
	assert.Empty(t, f.payments.delivered)
}

func TestHandleAnalysisSkipsUnprocessableState(t *testing.T) {
	sun := models.PlanetSun
	f := newAnalysisFixture(queue.TopicSunPredictions, &models.PlanetPayment{
		PaymentID:   12,
		UserID:      1,
		PaymentType: models.PaymentTypeSinglePlanet,
		Planet:      &sun,
		Status:      models.PaymentStatusDelivered,
	})
	f.payments.processingErr = repository.ErrNoTransition

	msg := analysisMessage(t, queue.AnalysisJob{
		PaymentID: 12, PredictionID: 3, UserTelegramID: 100,
		Planet: models.PlanetSun, AstrologyData: "chart",
	})
	require.NoError(t, f.worker.handleAnalysis(context.Background(), msg))

	// A duplicate of an already handled job must not regenerate or resend.
	assert.Zero(t, f.completer.calls)
	assert.Empty(t, f.notifier.sent)
}

func TestHandleAnalysisFreeMoonHasNoPaymentRow(t *testing.T) {
	f := newAnalysisFixture(queue.TopicMoonPredictions, nil)

	msg := analysisMessage(t, queue.AnalysisJob{
		PredictionID: 3, UserTelegramID: 100,
		Planet: models.PlanetMoon, AstrologyData: "chart",
	})
	require.NoError(t, f.worker.handleAnalysis(context.Background(), msg))

	assert.Equal(t, "Ваш подробный разбор", f.predictions.analyses[models.PlanetMoon])
	assert.Empty(t, f.payments.markedProcessing)
	assert.Empty(t, f.payments.delivered)
	// Free analyses still close with a recommendations job.
	require.Len(t, f.publisher.recommendations, 1)
}
