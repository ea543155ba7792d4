package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// MaxMessageLength is Telegram's hard limit for a single sendMessage call.
const MaxMessageLength = 4096

// BotAPI provides a direct Telegram Bot API client. The workers deliver
// generated content with it without pulling in the full telebot dependency
// graph of the bot process.
type BotAPI struct {
	token  string
	client *resty.Client
}

// NewBotAPI creates a new direct Telegram Bot API client.
func NewBotAPI(token string) *BotAPI {
	return &BotAPI{
		token:  token,
		client: resty.New().SetBaseURL("https://api.telegram.org/bot" + token),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Call makes a raw API call to the Telegram Bot API.
func (b *BotAPI) Call(method string, params map[string]interface{}) (json.RawMessage, error) {
	resp, err := b.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(params).
		Post("/" + method)
	if err != nil {
		return nil, fmt.Errorf("telegram API call %s failed: %w", method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("telegram API call %s: bad response: %w", method, err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram API call %s rejected: %s", method, parsed.Description)
	}
	return parsed.Result, nil
}

// SendMessage sends a text message.
func (b *BotAPI) SendMessage(chatID int64, text string, replyMarkup interface{}) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if replyMarkup != nil {
		params["reply_markup"] = replyMarkup
	}
	_, err := b.Call("sendMessage", params)
	return err
}

// SendLongMessage splits text over the 4096-character limit into chunks and
// sends them in order.
func (b *BotAPI) SendLongMessage(chatID int64, text string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		if err := b.SendMessage(chatID, chunk, nil); err != nil {
			return err
		}
	}
	return nil
}

// SplitMessage cuts text into pieces of at most limit runes, preferring
// paragraph and line boundaries.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
