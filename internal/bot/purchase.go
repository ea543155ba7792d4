package bot

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gorm.io/gorm"

	"astrobot/internal/models"
	"astrobot/internal/payment"
	"astrobot/internal/pkg/metrics"
	"astrobot/internal/pkg/utils"
	"astrobot/internal/queue"
)

// requireProfile sends the fill-profile nudge when the birth data is missing.
func (b *Bot) requireProfile(c tele.Context, user *models.User) bool {
	if user.HasBirthProfile() {
		return true
	}
	_ = c.Send(
		"Сначала нужно заполнить анкету с данными рождения, без неё я не построю карту.",
		b.keyboard.MainMenu(),
	)
	return false
}

// ── Free moon ─────────────────────────────────────────────────────────

func (b *Bot) handleFreeMoon(c tele.Context, user *models.User) error {
	if !b.requireProfile(c, user) {
		return nil
	}

	if pred, err := b.repos.Prediction.FindLatestByUser(user.UserID); err == nil && pred.AnalysisFor(models.PlanetMoon) != "" {
		return c.Send("🌙 Ваш разбор Луны:\n\n"+pred.AnalysisFor(models.PlanetMoon), b.keyboard.BackToMenu())
	}

	if err := b.fulfillment.EnqueueFreeMoon(b.ctx(), user); err != nil {
		b.logger.Error("Free moon job not enqueued",
			zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
		return c.Send("Не получилось запустить разбор, попробуйте чуть позже.")
	}

	return c.Send("🌙 Готовлю ваш разбор Луны, это занимает пару минут. Пришлю его сюда!")
}

// ── Paid planets ──────────────────────────────────────────────────────

func (b *Bot) sendPlanetsMenu(c tele.Context, user *models.User) error {
	if !b.requireProfile(c, user) {
		return nil
	}

	owned := map[models.Planet]bool{}
	if pred, err := b.repos.Prediction.FindLatestByUser(user.UserID); err == nil {
		for _, planet := range models.PaidPlanetOrder {
			owned[planet] = pred.AnalysisFor(planet) != ""
		}
	}

	text := "🪐 Купить разбор планет\n\n" +
		"🔋 — планета уже разобрана, нажмите, чтобы перечитать\n" +
		"🪫 — разбор ещё не куплен\n\n" +
		fmt.Sprintf("Одна планета — %s, все планеты — %s.",
			utils.FormatRubles(int64(b.cfg.Payment.SinglePlanetPrice)),
			utils.FormatRubles(int64(b.cfg.Payment.AllPlanetsPrice)))

	return c.Send(text, b.keyboard.PlanetsMenu(owned,
		b.cfg.Payment.SinglePlanetPrice, b.cfg.Payment.AllPlanetsPrice))
}

func (b *Bot) handleBuyPlanet(c tele.Context, user *models.User, planet models.Planet) error {
	if !b.requireProfile(c, user) {
		return nil
	}
	if planet == models.PlanetMoon {
		return b.handleFreeMoon(c, user)
	}

	// Already generated: re-read instead of selling twice.
	if pred, err := b.repos.Prediction.FindLatestByUser(user.UserID); err == nil {
		if text := pred.AnalysisFor(planet); text != "" {
			header := fmt.Sprintf("%s Ваш разбор: %s\n\n", planet.Emoji(), planet.RussianName())
			return c.Send(header+text, b.keyboard.BackToMenu())
		}
	}

	// Paid but not yet delivered: no second charge.
	if granted, err := b.repos.Payment.FindGranting(user.UserID, planet); err == nil {
		if granted.Status != models.PaymentStatusDelivered {
			return c.Send("Этот разбор уже оплачен и готовится, я пришлю его сюда ✨")
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Send("Что-то пошло не так, попробуйте ещё раз.")
	}

	description := fmt.Sprintf("Астрологический разбор: %s", planet.RussianName())
	return b.checkout(c, user, &models.PlanetPayment{
		UserID:        user.UserID,
		PaymentType:   models.PaymentTypeSinglePlanet,
		Planet:        &planet,
		AmountKopecks: int64(b.cfg.Payment.SinglePlanetPrice),
	}, description)
}

func (b *Bot) handleBuyAllPlanets(c tele.Context, user *models.User) error {
	if !b.requireProfile(c, user) {
		return nil
	}

	if granted, err := b.repos.Payment.FindGranting(user.UserID, models.PlanetSun); err == nil &&
		granted.PaymentType == models.PaymentTypeAllPlanets &&
		granted.Status != models.PaymentStatusDelivered {
		return c.Send("Пакет всех планет уже оплачен и готовится, разборы придут по очереди ✨")
	}

	return b.checkout(c, user, &models.PlanetPayment{
		UserID:        user.UserID,
		PaymentType:   models.PaymentTypeAllPlanets,
		AmountKopecks: int64(b.cfg.Payment.AllPlanetsPrice),
	}, "Астрологический разбор: все планеты")
}

// checkout creates the pending payment row, registers the payment with the
// gateway, and hands the user the checkout link.
func (b *Bot) checkout(c tele.Context, user *models.User, p *models.PlanetPayment, description string) error {
	if err := b.repos.Payment.Create(p); err != nil {
		b.logger.Error("Payment row not created",
			zap.Int64("user_id", user.UserID), zap.Error(err))
		return c.Send("Не получилось создать платёж, попробуйте ещё раз.")
	}

	meta := payment.Metadata{
		UserID:      fmt.Sprintf("%d", user.UserID),
		Planet:      string(p.PlanetOrDefault()),
		PaymentKind: "planet",
	}
	created, err := b.gateway.CreatePayment(b.ctx(), p.AmountKopecks, description, meta)
	if err != nil {
		b.logger.Error("Gateway payment not created",
			zap.Int64("payment_id", p.PaymentID), zap.Error(err))
		_ = b.repos.Payment.MarkFailed(p.PaymentID, "gateway: "+err.Error())
		return c.Send("Платёжный сервис сейчас недоступен, попробуйте чуть позже.")
	}

	if err := b.repos.Payment.Update(p.PaymentID, map[string]interface{}{
		"external_payment_id": created.ExternalID,
		"payment_url":         created.PaymentURL,
	}); err != nil {
		b.logger.Error("Gateway ids not stored",
			zap.Int64("payment_id", p.PaymentID), zap.Error(err))
		return c.Send("Что-то пошло не так, попробуйте ещё раз.")
	}

	metrics.PaymentsCreatedTotal.WithLabelValues(string(p.PaymentType)).Inc()
	b.logger.Info("Checkout started",
		zap.Int64("payment_id", p.PaymentID),
		zap.String("external_id", created.ExternalID),
		zap.String("payment_type", string(p.PaymentType)))

	text := fmt.Sprintf("%s\nК оплате: %s\n\nПосле оплаты разбор придёт сюда автоматически.",
		description, utils.FormatRubles(p.AmountKopecks))
	return c.Send(text, b.keyboard.PaymentLink(created.PaymentURL))
}

// ── My reports ────────────────────────────────────────────────────────

func (b *Bot) sendMyReports(c tele.Context, user *models.User) error {
	pred, err := b.repos.Prediction.FindLatestByUser(user.UserID)
	if err != nil {
		return c.Send("У вас пока нет разборов. Начните с бесплатной Луны 🌙", b.keyboard.MainMenu())
	}

	var lines []string
	lines = append(lines, "📜 Ваши разборы:\n")
	all := append([]models.Planet{models.PlanetMoon}, models.PaidPlanetOrder...)
	for _, planet := range all {
		mark := "🪫"
		if pred.AnalysisFor(planet) != "" {
			mark = "🔋"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", mark, planet.Emoji(), planet.RussianName()))
	}
	if models.Text(pred.Recommendations) != "" {
		lines = append(lines, "\n💫 Рекомендации готовы")
	}
	if pred.ExpiresAt != nil {
		lines = append(lines, fmt.Sprintf("\nДоступ до %s", pred.ExpiresAt.Format("02.01.2006")))
	}

	payments, err := b.repos.Payment.FindByUserID(user.UserID)
	if err == nil && len(payments) > 0 {
		lines = append(lines, "\n🧾 Покупки:")
		for _, p := range payments {
			kind := "Все планеты"
			if p.PaymentType == models.PaymentTypeSinglePlanet {
				kind = p.PlanetOrDefault().RussianName()
			}
			lines = append(lines, fmt.Sprintf("%s — %s — %s",
				p.CreatedAt.Format("02.01.2006"),
				kind,
				paymentStatusLabel(p.Status)))
		}
	}

	return c.Send(strings.Join(lines, "\n"), b.keyboard.BackToMenu())
}

func paymentStatusLabel(s models.PaymentStatus) string {
	switch s {
	case models.PaymentStatusPending:
		return "🕒 В ожидании"
	case models.PaymentStatusCompleted:
		return "✅ Оплачен"
	case models.PaymentStatusFailed:
		return "❌ Ошибка"
	case models.PaymentStatusRefunded:
		return "↩️ Возврат"
	case models.PaymentStatusProcessing:
		return "⚙️ Обработка"
	case models.PaymentStatusAnalysisFailed:
		return "⚠️ Ошибка разбора"
	case models.PaymentStatusDelivered:
		return "📦 Доставлен"
	}
	return string(s)
}

// ── Questions ─────────────────────────────────────────────────────────

func (b *Bot) startQuestion(c tele.Context, user *models.User) error {
	pred, err := b.repos.Prediction.FindLatestByUser(user.UserID)
	if err != nil || pred.AnalysisFor(models.PlanetMoon) == "" && pred.AnalysisFor(models.PlanetSun) == "" {
		return c.Send("Вопросы открываются после первого разбора. Начните с бесплатной Луны 🌙", b.keyboard.MainMenu())
	}

	_ = b.repos.User.UpdateStep(user.TelegramID, "ask_question")
	return c.Send("💬 Напишите ваш вопрос, я отвечу с опорой на ваш разбор.")
}

func (b *Bot) handleQuestionText(c tele.Context, user *models.User, text string) error {
	if text == "" {
		return c.Send("Напишите вопрос текстом.")
	}

	pred, err := b.repos.Prediction.FindLatestByUser(user.UserID)
	if err != nil {
		_ = b.repos.User.UpdateStep(user.TelegramID, "none")
		return c.Send("Сначала нужен хотя бы один разбор 🌙", b.keyboard.MainMenu())
	}

	job := queue.QuestionJob{
		PredictionID:   pred.PredictionID,
		UserTelegramID: user.TelegramID,
		Question:       text,
		// Sun context routes the job to the dedicated queue.
		Analysis: pred.AnalysisFor(models.PlanetSun),
	}
	if err := b.producer.EnqueueQuestion(b.ctx(), job); err != nil {
		b.logger.Error("Question not enqueued",
			zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
		return c.Send("Не получилось отправить вопрос, попробуйте чуть позже.")
	}

	_ = b.repos.User.UpdateStep(user.TelegramID, "none")
	return c.Send("✨ Принял! Обдумаю и отвечу в ближайшие минуты.")
}

// ── Subscription ──────────────────────────────────────────────────────

func (b *Bot) handleSubscribe(c tele.Context, user *models.User) error {
	if !b.requireProfile(c, user) {
		return nil
	}

	if sub, err := b.repos.Subscription.FindActiveByUser(user.UserID); err == nil {
		return c.Send(fmt.Sprintf("✨ Подписка активна до %s. Каждое утро я присылаю персональный прогноз.",
			sub.EndDate.Format("02.01.2006")), b.keyboard.BackToMenu())
	}

	p := &models.SubscriptionPayment{
		UserID:         user.UserID,
		AmountKopecks:  int64(b.cfg.Payment.SubscriptionPrice),
		DurationMonths: 1,
	}
	if err := b.repos.Subscription.CreatePayment(p); err != nil {
		b.logger.Error("Subscription payment row not created",
			zap.Int64("user_id", user.UserID), zap.Error(err))
		return c.Send("Не получилось создать платёж, попробуйте ещё раз.")
	}

	meta := payment.Metadata{
		UserID:      fmt.Sprintf("%d", user.UserID),
		PaymentKind: "subscription",
	}
	created, err := b.gateway.CreatePayment(b.ctx(), p.AmountKopecks,
		"Подписка на ежедневные прогнозы, 1 месяц", meta)
	if err != nil {
		b.logger.Error("Gateway subscription payment not created",
			zap.Int64("payment_id", p.PaymentID), zap.Error(err))
		return c.Send("Платёжный сервис сейчас недоступен, попробуйте чуть позже.")
	}

	if err := b.repos.Subscription.UpdatePayment(p.PaymentID, map[string]interface{}{
		"external_payment_id": created.ExternalID,
		"payment_url":         created.PaymentURL,
	}); err != nil {
		b.logger.Error("Gateway ids not stored for subscription",
			zap.Int64("payment_id", p.PaymentID), zap.Error(err))
		return c.Send("Что-то пошло не так, попробуйте ещё раз.")
	}

	metrics.PaymentsCreatedTotal.WithLabelValues("subscription").Inc()
	text := fmt.Sprintf("✨ Подписка на ежедневные прогнозы — %s в месяц.\nПосле оплаты прогнозы начнут приходить каждое утро.",
		utils.FormatRubles(p.AmountKopecks))
	return c.Send(text, b.keyboard.PaymentLink(created.PaymentURL))
}
