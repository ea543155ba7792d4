package bot

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"astrobot/internal/models"
)

// The profile flow walks the user through name, gender, birth date, birth
// time and birth city. Each answer is written to the users row immediately,
// so an interrupted flow resumes where it stopped.

func (b *Bot) startProfile(c tele.Context, user *models.User) error {
	_ = b.repos.User.UpdateStep(user.TelegramID, "get_full_name")
	return c.Send("📝 Как вас зовут? Напишите имя, к которому мне обращаться.")
}

func (b *Bot) handleFullName(c tele.Context, user *models.User, text string) error {
	if text == "" || len([]rune(text)) > 100 {
		return c.Send("Напишите, пожалуйста, имя текстом.")
	}
	_ = b.repos.User.Update(user.TelegramID, map[string]interface{}{"full_name": text})
	_ = b.repos.User.UpdateStep(user.TelegramID, "get_gender")
	return c.Send("Укажите ваш пол:", b.keyboard.GenderChoice())
}

func (b *Bot) handleGenderCallback(c tele.Context, user *models.User, data string) error {
	gender := models.GenderMale
	if data == "gender_female" {
		gender = models.GenderFemale
	}
	return b.saveGender(c, user, gender)
}

func (b *Bot) handleGenderText(c tele.Context, user *models.User, text string) error {
	switch strings.ToLower(text) {
	case "мужской", "м":
		return b.saveGender(c, user, models.GenderMale)
	case "женский", "ж":
		return b.saveGender(c, user, models.GenderFemale)
	}
	return c.Send("Выберите пол кнопкой ниже:", b.keyboard.GenderChoice())
}

func (b *Bot) saveGender(c tele.Context, user *models.User, gender models.Gender) error {
	_ = b.repos.User.Update(user.TelegramID, map[string]interface{}{"gender": gender})
	_ = b.repos.User.UpdateStep(user.TelegramID, "get_birth_date")
	return c.Send("📅 Дата рождения в формате ДД.ММ.ГГГГ, например 21.03.1990:")
}

func (b *Bot) handleBirthDate(c tele.Context, user *models.User, text string) error {
	date, err := time.Parse("02.01.2006", text)
	if err != nil {
		return c.Send("Не получилось разобрать дату. Формат: ДД.ММ.ГГГГ, например 21.03.1990.")
	}
	if date.After(time.Now()) || date.Year() < 1900 {
		return c.Send("Проверьте дату, она выглядит неправдоподобно.")
	}

	_ = b.repos.User.Update(user.TelegramID, map[string]interface{}{
		"birth_date":  date,
		"zodiac_sign": zodiacSign(date.Month(), date.Day()),
	})
	_ = b.repos.User.UpdateStep(user.TelegramID, "get_birth_time")
	return c.Send("🕒 Время рождения в формате ЧЧ:ММ, например 14:30.\nЕсли не знаете — напишите «не знаю».")
}

func (b *Bot) handleBirthTime(c tele.Context, user *models.User, text string) error {
	updates := map[string]interface{}{}

	if strings.EqualFold(text, "не знаю") {
		// Noon keeps the chart close for an unknown birth time.
		updates["birth_time_local"] = "12:00"
		updates["birth_time_accuracy"] = "unknown"
	} else {
		if _, err := time.Parse("15:04", text); err != nil {
			return c.Send("Не получилось разобрать время. Формат: ЧЧ:ММ, например 14:30.")
		}
		updates["birth_time_local"] = text
		updates["birth_time_accuracy"] = "exact"
	}

	_ = b.repos.User.Update(user.TelegramID, updates)
	_ = b.repos.User.UpdateStep(user.TelegramID, "get_birth_city")
	return c.Send("🏙 В каком городе вы родились?")
}

func (b *Bot) handleBirthCity(c tele.Context, user *models.User, text string) error {
	if text == "" {
		return c.Send("Напишите название города текстом.")
	}

	place, err := b.geocoder.GeocodeCity(b.ctx(), text)
	if err != nil {
		b.logger.Warn("Geocoding failed",
			zap.String("query", text), zap.Error(err))
		return c.Send("Не получилось найти город, попробуйте ещё раз чуть позже.")
	}
	if place == nil {
		return c.Send("Такой город не нашёлся. Попробуйте написать иначе, например «Казань, Россия».")
	}

	_ = b.repos.User.Update(user.TelegramID, map[string]interface{}{
		"birth_city_input":   text,
		"birth_place_name":   place.PlaceName,
		"birth_country_code": place.CountryCode,
		"birth_lat":          place.Lat,
		"birth_lon":          place.Lon,
	})

	return c.Send(
		fmt.Sprintf("Нашёл: %s\nВсё верно?", place.PlaceName),
		b.keyboard.CityConfirm(),
	)
}

func (b *Bot) handleCityConfirm(c tele.Context, user *models.User, data string) error {
	if data == "city_retry" {
		_ = b.repos.User.UpdateStep(user.TelegramID, "get_birth_city")
		return c.Send("🏙 В каком городе вы родились?")
	}

	_ = b.repos.User.UpdateStep(user.TelegramID, "none")

	// Refresh: the city handler wrote the coordinates after `user` was loaded.
	if updated, err := b.repos.User.FindByTelegramID(user.TelegramID); err == nil {
		user = updated
	}
	if user.BirthDate != nil && user.BirthTimeLocal != "" {
		if t, err := time.Parse("15:04", user.BirthTimeLocal); err == nil {
			utc := time.Date(user.BirthDate.Year(), user.BirthDate.Month(), user.BirthDate.Day(),
				t.Hour(), t.Minute(), 0, 0, time.UTC)
			_ = b.repos.User.Update(user.TelegramID, map[string]interface{}{
				"birth_datetime_utc": utc,
			})
		}
	}

	return c.Send(
		"✨ Анкета заполнена! Теперь я могу составить ваш персональный разбор.",
		b.keyboard.MainMenu(),
	)
}

// zodiacSign returns the western zodiac sign for a birth day.
func zodiacSign(month time.Month, day int) string {
	switch {
	case (month == time.March && day >= 21) || (month == time.April && day <= 19):
		return "aries"
	case (month == time.April && day >= 20) || (month == time.May && day <= 20):
		return "taurus"
	case (month == time.May && day >= 21) || (month == time.June && day <= 20):
		return "gemini"
	case (month == time.June && day >= 21) || (month == time.July && day <= 22):
		return "cancer"
	case (month == time.July && day >= 23) || (month == time.August && day <= 22):
		return "leo"
	case (month == time.August && day >= 23) || (month == time.September && day <= 22):
		return "virgo"
	case (month == time.September && day >= 23) || (month == time.October && day <= 22):
		return "libra"
	case (month == time.October && day >= 23) || (month == time.November && day <= 21):
		return "scorpio"
	case (month == time.November && day >= 22) || (month == time.December && day <= 21):
		return "sagittarius"
	case (month == time.December && day >= 22) || (month == time.January && day <= 19):
		return "capricorn"
	case (month == time.January && day >= 20) || (month == time.February && day <= 18):
		return "aquarius"
	}
	return "pisces"
}
