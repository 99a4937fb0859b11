package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const DefaultTelegramURL = "https://api.telegram.org"

// JSONPoster is the subset of httpclient.Client used by the sinks.
type JSONPoster interface {
	PostJSON(ctx context.Context, url string, in, out any) error
}

type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Telegram posts text messages to a chat through the Bot API.
type Telegram struct {
	apiURL string
	token  string
	chatID string
	http   JSONPoster
}

func NewTelegram(apiURL, token, chatID string, http JSONPoster) *Telegram {
	if apiURL == "" {
		apiURL = DefaultTelegramURL
	}
	return &Telegram{apiURL: strings.TrimRight(apiURL, "/"), token: token, chatID: chatID, http: http}
}

func (t *Telegram) Name() string { return "telegram" }

// Deliver sends Text messages and returns the Telegram message id.
func (t *Telegram) Deliver(ctx context.Context, msg Message) (string, error) {
	text, ok := msg.(Text)
	if !ok {
		return "", unsupported(t.Name(), msg)
	}

	req := telegramSendMessage{
		ChatID:                t.chatID,
		Text:                  text.Content,
		DisableWebPagePreview: true,
	}
	if text.HTML {
		req.ParseMode = "HTML"
	}
	if text.ReplyTo != "" {
		id, err := strconv.ParseInt(text.ReplyTo, 10, 64)
		if err != nil {
			return "", fmt.Errorf("telegram reply id %q: %w", text.ReplyTo, err)
		}
		req.ReplyToMessageID = id
	}

	var resp telegramResponse
	if err := t.http.PostJSON(ctx, t.apiURL+"/bot"+t.token+"/sendMessage", req, &resp); err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return "", fmt.Errorf("telegram api error: %s", resp.Description)
	}
	return strconv.FormatInt(resp.Result.MessageID, 10), nil
}
