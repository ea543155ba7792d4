package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"astrobot/internal/models"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
)

// ── Fakes ─────────────────────────────────────────────────────────────

type fakeUsers struct {
	user *models.User
}

func (f *fakeUsers) FindByUserID(userID int64) (*models.User, error) {
	if f.user == nil {
		return nil, errors.New("user not found")
	}
	return f.user, nil
}

type fakePayments struct {
	payment       *models.PlanetPayment
	completedErr  error
	processingErr error
	events        []string
	failures      map[int64]string
}

func newFakePayments(p *models.PlanetPayment) *fakePayments {
	return &fakePayments{payment: p, failures: map[int64]string{}}
}

func (f *fakePayments) FindByExternalID(externalID string) (*models.PlanetPayment, error) {
	if f.payment == nil || f.payment.ExternalPaymentID != externalID {
		return nil, errors.New("payment not found")
	}
	return f.payment, nil
}

func (f *fakePayments) MarkCompleted(paymentID int64) error {
	if f.completedErr != nil {
		return f.completedErr
	}
	f.events = append(f.events, "completed")
	return nil
}

func (f *fakePayments) MarkProcessing(paymentID int64) error {
	if f.processingErr != nil {
		return f.processingErr
	}
	f.events = append(f.events, "processing")
	return nil
}

func (f *fakePayments) MarkFailed(paymentID int64, reason string) error {
	f.events = append(f.events, "failed")
	return nil
}

func (f *fakePayments) MarkRefunded(paymentID int64) error {
	f.events = append(f.events, "refunded")
	return nil
}

func (f *fakePayments) MarkAnalysisFailed(paymentID int64, cause string) error {
	f.events = append(f.events, "analysis_failed")
	f.failures[paymentID] = cause
	return nil
}

type fakePredictions struct {
	prediction *models.Prediction
}

func (f *fakePredictions) FindLatestByUser(userID int64) (*models.Prediction, error) {
	if f.prediction == nil {
		return nil, errors.New("prediction not found")
	}
	return f.prediction, nil
}

func (f *fakePredictions) FindOrCreateForUser(userID int64, planet models.Planet, predType models.PredictionType, rawContent string) (*models.Prediction, error) {
	if f.prediction != nil {
		return f.prediction, nil
	}
	f.prediction = &models.Prediction{
		PredictionID:   3,
		UserID:         userID,
		Planet:         planet,
		PredictionType: predType,
		Content:        &rawContent,
	}
	return f.prediction, nil
}

type fakeProducer struct {
	jobs       []queue.AnalysisJob
	enqueueErr error
	onEnqueue  func()
}

func (f *fakeProducer) EnqueueAnalysis(ctx context.Context, job queue.AnalysisJob) error {
	if f.onEnqueue != nil {
		f.onEnqueue()
	}
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeConfirmations struct {
	sent []string
}

func (f *fakeConfirmations) SendMessage(chatID int64, text string, replyMarkup interface{}) error {
	f.sent = append(f.sent, text)
	return nil
}

type serviceFixture struct {
	svc         *Service
	users       *fakeUsers
	payments    *fakePayments
	predictions *fakePredictions
	producer    *fakeProducer
	notifier    *fakeConfirmations
}

func newServiceFixture(payment *models.PlanetPayment) *serviceFixture {
	f := &serviceFixture{
		users:       &fakeUsers{user: &models.User{UserID: 1, TelegramID: 100}},
		payments:    newFakePayments(payment),
		predictions: &fakePredictions{},
		producer:    &fakeProducer{},
		notifier:    &fakeConfirmations{},
	}
	f.svc = NewService(f.users, f.payments, f.predictions, f.producer, nil, f.notifier, zap.NewNop())
	return f
}

func singlePayment(planet models.Planet) *models.PlanetPayment {
	return &models.PlanetPayment{
		PaymentType: models.PaymentTypeSinglePlanet,
		Planet:      &planet,
	}
}

func bundlePayment() *models.PlanetPayment {
	return &models.PlanetPayment{PaymentType: models.PaymentTypeAllPlanets}
}

func TestFirstPlanet(t *testing.T) {
	assert.Equal(t, models.PlanetVenus, FirstPlanet(singlePayment(models.PlanetVenus)))
	assert.Equal(t, models.PlanetSun, FirstPlanet(bundlePayment()))
}

func TestNextPlanetSingleNeverChains(t *testing.T) {
	_, ok := NextPlanet(singlePayment(models.PlanetSun), models.PlanetSun)
	assert.False(t, ok)
}

func TestNextPlanetBundleOrder(t *testing.T) {
	p := bundlePayment()

	next, ok := NextPlanet(p, models.PlanetSun)
	assert.True(t, ok)
	assert.Equal(t, models.PlanetMercury, next)

	next, ok = NextPlanet(p, models.PlanetMercury)
	assert.True(t, ok)
	assert.Equal(t, models.PlanetVenus, next)

	next, ok = NextPlanet(p, models.PlanetVenus)
	assert.True(t, ok)
	assert.Equal(t, models.PlanetMars, next)

	_, ok = NextPlanet(p, models.PlanetMars)
	assert.False(t, ok)
}

func TestNextPlanetBundleUnknownPlanet(t *testing.T) {
	// Moon is not part of the paid sequence.
	_, ok := NextPlanet(bundlePayment(), models.PlanetMoon)
	assert.False(t, ok)
}

func TestOnPaymentSucceededEnqueuesFirstPlanet(t *testing.T) {
	venus := models.PlanetVenus
	f := newServiceFixture(&models.PlanetPayment{
		PaymentID:         7,
		UserID:            1,
		PaymentType:       models.PaymentTypeSinglePlanet,
		Planet:            &venus,
		Status:            models.PaymentStatusPending,
		ExternalPaymentID: "yk-1",
	})

	require.NoError(t, f.svc.OnPaymentSucceeded(context.Background(), "yk-1"))

	assert.Equal(t, []string{"completed"}, f.payments.events)
	require.Len(t, f.producer.jobs, 1)
	assert.Equal(t, models.PlanetVenus, f.producer.jobs[0].Planet)
	assert.Equal(t, int64(7), f.producer.jobs[0].PaymentID)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "Оплата получена")
}

func TestOnPaymentSucceededRedeliveryIsNoop(t *testing.T) {
	venus := models.PlanetVenus
	f := newServiceFixture(&models.PlanetPayment{
		PaymentID:         7,
		UserID:            1,
		PaymentType:       models.PaymentTypeSinglePlanet,
		Planet:            &venus,
		Status:            models.PaymentStatusCompleted,
		ExternalPaymentID: "yk-1",
	})
	f.payments.completedErr = repository.ErrNoTransition

	require.NoError(t, f.svc.OnPaymentSucceeded(context.Background(), "yk-1"))
	assert.Empty(t, f.producer.jobs)
	assert.Empty(t, f.notifier.sent)
}

func TestOnPaymentSucceededQueueFailureLandsOnPayment(t *testing.T) {
	venus := models.PlanetVenus
	f := newServiceFixture(&models.PlanetPayment{
		PaymentID:         7,
		UserID:            1,
		PaymentType:       models.PaymentTypeSinglePlanet,
		Planet:            &venus,
		Status:            models.PaymentStatusPending,
		ExternalPaymentID: "yk-1",
	})
	f.producer.enqueueErr = errors.New("broker down")

	// The webhook caller still gets nil so the gateway stops retrying;
	// the failure is parked on the row for the cron pass.
	require.NoError(t, f.svc.OnPaymentSucceeded(context.Background(), "yk-1"))
	assert.Contains(t, f.payments.failures[7], "broker down")
	assert.Empty(t, f.notifier.sent)
}

func TestRequeueMarksProcessingBeforePublish(t *testing.T) {
	venus := models.PlanetVenus
	payment := &models.PlanetPayment{
		PaymentID:   7,
		UserID:      1,
		PaymentType: models.PaymentTypeSinglePlanet,
		Planet:      &venus,
		Status:      models.PaymentStatusAnalysisFailed,
	}
	f := newServiceFixture(payment)

	var stateAtPublish []string
	f.producer.onEnqueue = func() {
		stateAtPublish = append([]string{}, f.payments.events...)
	}

	require.NoError(t, f.svc.Requeue(context.Background(), payment))

	// The row leaves analysis_failed before the job hits the queue, so the
	// next retry pass cannot pick the same payment up again.
	assert.Equal(t, []string{"processing"}, stateAtPublish)
	require.Len(t, f.producer.jobs, 1)
	assert.Equal(t, models.PlanetVenus, f.producer.jobs[0].Planet)
}

func TestRequeueBlockedTransitionSkipsPublish(t *testing.T) {
	venus := models.PlanetVenus
	payment := &models.PlanetPayment{
		PaymentID:   7,
		UserID:      1,
		PaymentType: models.PaymentTypeSinglePlanet,
		Planet:      &venus,
		Status:      models.PaymentStatusDelivered,
	}
	f := newServiceFixture(payment)
	f.payments.processingErr = repository.ErrNoTransition

	err := f.svc.Requeue(context.Background(), payment)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNoTransition)
	assert.Empty(t, f.producer.jobs)
}

func TestRequeueBundleResumesAtFirstMissingAnalysis(t *testing.T) {
	payment := &models.PlanetPayment{
		PaymentID:   8,
		UserID:      1,
		PaymentType: models.PaymentTypeAllPlanets,
		Status:      models.PaymentStatusAnalysisFailed,
	}
	f := newServiceFixture(payment)
	sun, mercury := "текст", "текст"
	f.predictions.prediction = &models.Prediction{
		PredictionID:    3,
		UserID:          1,
		SunAnalysis:     &sun,
		MercuryAnalysis: &mercury,
	}

	require.NoError(t, f.svc.Requeue(context.Background(), payment))

	require.Len(t, f.producer.jobs, 1)
	assert.Equal(t, models.PlanetVenus, f.producer.jobs[0].Planet)
}
