package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"astrobot/internal/config"
	"astrobot/internal/fulfillment"
	"astrobot/internal/geo"
	"astrobot/internal/models"
	"astrobot/internal/payment"
	"astrobot/internal/pkg/utils"
	"astrobot/internal/queue"
	"astrobot/internal/repository"
)

// Publisher enqueues the jobs the bot creates directly. Satisfied by
// queue.Producer.
type Publisher interface {
	EnqueueQuestion(ctx context.Context, job queue.QuestionJob) error
}

// Bot wraps the telebot instance and handlers.
type Bot struct {
	tb          *tele.Bot
	webhook     *tele.Webhook
	useWebhook  bool
	cfg         *config.Config
	repos       *BotRepos
	gateway     payment.Gateway
	fulfillment *fulfillment.Service
	producer    Publisher
	geocoder    *geo.Geocoder
	keyboard    *KeyboardBuilder
	logger      *zap.Logger
}

// BotRepos bundles all repositories needed by bot handlers.
type BotRepos struct {
	User         *repository.UserRepository
	Payment      *repository.PaymentRepository
	Prediction   *repository.PredictionRepository
	Subscription *repository.SubscriptionRepository
}

// New creates and configures a new Bot instance.
func New(
	cfg *config.Config,
	repos *BotRepos,
	gateway payment.Gateway,
	svc *fulfillment.Service,
	producer Publisher,
	geocoder *geo.Geocoder,
	logger *zap.Logger,
) (*Bot, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Bot.UpdateMode))
	if mode == "" {
		mode = "auto"
	}

	useWebhook := true
	switch mode {
	case "polling":
		useWebhook = false
	case "webhook":
		useWebhook = true
	default: // auto
		useWebhook = strings.TrimSpace(cfg.Bot.WebhookURL) != ""
	}

	var poller tele.Poller
	var webhook *tele.Webhook
	if useWebhook {
		if strings.TrimSpace(cfg.Bot.WebhookURL) == "" {
			return nil, fmt.Errorf("BOT_WEBHOOK_URL is required when BOT_UPDATE_MODE=webhook")
		}
		webhook = &tele.Webhook{
			Listen:   "", // Empty: we mount on Echo instead of telebot's own server
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
		poller = webhook
	} else {
		poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: poller,
		OnError: func(err error, c tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}

	b := &Bot{
		tb:          tb,
		webhook:     webhook,
		useWebhook:  useWebhook,
		cfg:         cfg,
		repos:       repos,
		gateway:     gateway,
		fulfillment: svc,
		producer:    producer,
		geocoder:    geocoder,
		keyboard:    NewKeyboardBuilder(),
		logger:      logger,
	}

	b.registerHandlers()

	return b, nil
}

// WebhookHandler returns the webhook handler for mounting on Echo.
// Returns nil when running in long-polling mode.
func (b *Bot) WebhookHandler() http.Handler {
	return b.webhook
}

// Start begins polling/webhook processing.
func (b *Bot) Start() {
	if b.useWebhook {
		b.logger.Info("Starting Telegram bot",
			zap.String("mode", "webhook"),
			zap.String("webhook_url", b.cfg.Bot.WebhookURL))
	} else {
		// Long polling requires webhook to be removed first.
		if err := b.tb.RemoveWebhook(true); err != nil {
			b.logger.Warn("Failed to remove webhook before long polling", zap.Error(err))
		}
		b.logger.Info("Starting Telegram bot", zap.String("mode", "polling"))
	}
	b.tb.Start()
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() {
	b.tb.Stop()
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle(tele.OnText, b.handleText)
	b.tb.Handle(tele.OnCallback, b.handleCallback)
}

// ── /start ────────────────────────────────────────────────────────────

func (b *Bot) handleStart(c tele.Context) error {
	sender := c.Sender()
	attr := utils.ParseStartPayload(c.Message().Payload)

	user, err := b.repos.User.FindByTelegramID(sender.ID)
	if err != nil {
		user = &models.User{
			TelegramID: sender.ID,
			Username:   sender.Username,
			FirstName:  sender.FirstName,
			LastName:   sender.LastName,
			Step:       "none",
		}
		if err := b.repos.User.Create(user); err != nil {
			b.logger.Error("Failed to create user",
				zap.Int64("telegram_id", sender.ID), zap.Error(err))
			return c.Send("Что-то пошло не так, попробуйте ещё раз чуть позже.")
		}
		b.logger.Info("New user registered", zap.Int64("telegram_id", sender.ID))
	}

	// First touch wins: attribution on a returning user is a no-op.
	if !attr.Empty() {
		if err := b.repos.User.SetAttribution(sender.ID, attr); err != nil {
			b.logger.Warn("Attribution not recorded",
				zap.Int64("telegram_id", sender.ID), zap.Error(err))
		}
	}

	_ = b.repos.User.UpdateStep(sender.ID, "none")
	_ = b.repos.User.Touch(sender.ID)

	text := "🌟 Привет! Я астробот.\n\n" +
		"Я составляю персональные астрологические разборы по натальной карте: " +
		"Луна бесплатно, остальные планеты по подписке или разово.\n\n" +
		"С чего начнём?"
	return c.Send(text, b.keyboard.MainMenu())
}

// ── Text routing ──────────────────────────────────────────────────────

func (b *Bot) handleText(c tele.Context) error {
	sender := c.Sender()

	user, err := b.repos.User.FindByTelegramID(sender.ID)
	if err != nil {
		return c.Send("Пожалуйста, начните с /start.")
	}
	_ = b.repos.User.Touch(sender.ID)

	text := strings.TrimSpace(c.Text())

	switch user.Step {
	case "get_full_name":
		return b.handleFullName(c, user, text)
	case "get_gender":
		return b.handleGenderText(c, user, text)
	case "get_birth_date":
		return b.handleBirthDate(c, user, text)
	case "get_birth_time":
		return b.handleBirthTime(c, user, text)
	case "get_birth_city":
		return b.handleBirthCity(c, user, text)
	case "ask_question":
		return b.handleQuestionText(c, user, text)
	default:
		return c.Send("Выберите действие в меню 👇", b.keyboard.MainMenu())
	}
}

// ── Callback queries ──────────────────────────────────────────────────

func (b *Bot) handleCallback(c tele.Context) error {
	sender := c.Sender()
	data := strings.TrimSpace(c.Callback().Data)

	user, err := b.repos.User.FindByTelegramID(sender.ID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Пожалуйста, нажмите /start"})
	}

	_ = c.Respond()
	_ = b.repos.User.Touch(sender.ID)

	switch {
	case data == "main_menu":
		_ = b.repos.User.UpdateStep(sender.ID, "none")
		return c.Send("Главное меню", b.keyboard.MainMenu())

	case data == "fill_profile":
		return b.startProfile(c, user)

	case data == "gender_male" || data == "gender_female":
		return b.handleGenderCallback(c, user, data)

	case data == "city_confirm" || data == "city_retry":
		return b.handleCityConfirm(c, user, data)

	case data == "free_moon":
		return b.handleFreeMoon(c, user)

	case data == "buy_analysis":
		return b.sendPlanetsMenu(c, user)

	case strings.HasPrefix(data, "pay_all_planets"):
		return b.handleBuyAllPlanets(c, user)

	case strings.HasPrefix(data, "pay_"):
		planet, ok := models.ParsePlanet(strings.TrimPrefix(data, "pay_"))
		if !ok {
			return c.Send("Неизвестная планета.")
		}
		return b.handleBuyPlanet(c, user, planet)

	case data == "my_reports":
		return b.sendMyReports(c, user)

	case data == "ask_question":
		return b.startQuestion(c, user)

	case data == "subscribe":
		return b.handleSubscribe(c, user)

	default:
		return c.Send("Выберите действие в меню 👇", b.keyboard.MainMenu())
	}
}

func (b *Bot) ctx() context.Context {
	return context.Background()
}
