package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"astrobot/internal/models"
	"astrobot/internal/pkg/utils"
)

// KeyboardBuilder constructs the inline keyboards the bot sends.
type KeyboardBuilder struct{}

func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// MainMenu builds the main menu keyboard.
func (kb *KeyboardBuilder) MainMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("🌙 Бесплатный разбор Луны", "free_moon")),
		menu.Row(menu.Data("🪐 Купить разбор планет", "buy_analysis")),
		menu.Row(menu.Data("📜 Мои разборы", "my_reports")),
		menu.Row(menu.Data("💬 Задать вопрос", "ask_question")),
		menu.Row(menu.Data("✨ Подписка на прогнозы", "subscribe")),
		menu.Row(menu.Data("📝 Заполнить анкету", "fill_profile")),
	)
	return menu
}

// PlanetsMenu builds the purchase keyboard. Owned planets get a charged
// battery, the rest a drained one, matching the progress framing of the
// original funnel.
func (kb *KeyboardBuilder) PlanetsMenu(owned map[models.Planet]bool, singlePrice, bundlePrice int) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}

	var rows []tele.Row
	available := 0
	for _, planet := range models.PaidPlanetOrder {
		battery := "🪫"
		if owned[planet] {
			battery = "🔋"
		} else {
			available++
		}
		label := fmt.Sprintf("%s %s", battery, planet.RussianName())
		rows = append(rows, menu.Row(menu.Data(label, "pay_"+string(planet))))
	}

	if available > 1 {
		label := fmt.Sprintf("Все планеты %s", utils.FormatRubles(int64(bundlePrice)))
		rows = append(rows, menu.Row(menu.Data(label, "pay_all_planets")))
	}
	rows = append(rows, menu.Row(menu.Data("🔙 Назад", "main_menu")))

	menu.Inline(rows...)
	return menu
}

// PaymentLink builds the keyboard with the gateway checkout URL.
func (kb *KeyboardBuilder) PaymentLink(url string) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.URL("💳 Оплатить", url)),
		menu.Row(menu.Data("🔙 Назад", "main_menu")),
	)
	return menu
}

// GenderChoice builds the gender selection keyboard for the profile flow.
func (kb *KeyboardBuilder) GenderChoice() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(
			menu.Data("Мужской", "gender_male"),
			menu.Data("Женский", "gender_female"),
		),
	)
	return menu
}

// CityConfirm builds the geocoding confirmation keyboard.
func (kb *KeyboardBuilder) CityConfirm() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(
			menu.Data("✅ Да, верно", "city_confirm"),
			menu.Data("✏️ Ввести заново", "city_retry"),
		),
	)
	return menu
}

// BackToMenu builds a single back button.
func (kb *KeyboardBuilder) BackToMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("🔙 В меню", "main_menu")))
	return menu
}
