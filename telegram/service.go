// Package telegram is a small Bot API client.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultAPIURL = "https://api.telegram.org"

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, options ...MessageOption) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string, options ...MessageOption) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, options ...MessageOption) error
}

type Service struct {
	botToken   string
	apiURL     string
	httpClient *http.Client
}

func NewService(botToken, apiURL string) *Service {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Service{
		botToken:   botToken,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID      int64       `json:"chat_id"`
	Text        string      `json:"text,omitempty"`
	Photo       string      `json:"photo,omitempty"`
	Caption     string      `json:"caption,omitempty"`
	MessageID   int         `json:"message_id,omitempty"`
	ParseMode   string      `json:"parse_mode,omitempty"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type callbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

type MessageOption func(*sendMessageRequest)

func WithKeyboard(rows [][]InlineKeyboardButton) MessageOption {
	return func(req *sendMessageRequest) {
		if len(rows) > 0 {
			req.ReplyMarkup = inlineKeyboardMarkup{InlineKeyboard: rows}
		}
	}
}

func WithHTML() MessageOption {
	return func(req *sendMessageRequest) { req.ParseMode = "HTML" }
}

func Button(text, data string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, CallbackData: data}
}

func (s *Service) SendMessage(ctx context.Context, chatID int64, text string, options ...MessageOption) error {
	req := &sendMessageRequest{ChatID: chatID, Text: text}
	for _, opt := range options {
		opt(req)
	}
	return s.call(ctx, "sendMessage", req)
}

func (s *Service) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, options ...MessageOption) error {
	req := &sendMessageRequest{ChatID: chatID, Photo: fileID, Caption: caption}
	for _, opt := range options {
		opt(req)
	}
	return s.call(ctx, "sendPhoto", req)
}

// EditMessageText falls back to a new message when messageID is 0.
func (s *Service) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, options ...MessageOption) error {
	if messageID == 0 {
		return s.SendMessage(ctx, chatID, text, options...)
	}
	req := &sendMessageRequest{ChatID: chatID, MessageID: messageID, Text: text}
	for _, opt := range options {
		opt(req)
	}
	return s.call(ctx, "editMessageText", req)
}

func (s *Service) AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	if callbackQueryID == "" {
		return fmt.Errorf("telegram: empty callback query id")
	}
	return s.call(ctx, "answerCallbackQuery", callbackQueryRequest{CallbackQueryID: callbackQueryID, Text: text})
}

func (s *Service) call(ctx context.Context, method string, payload interface{}) error {
	if s.botToken == "" {
		return fmt.Errorf("telegram: bot token is not set")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", s.apiURL, s.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
		ErrorCode   int    `json:"error_code,omitempty"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram: %s failed (%d): %s", method, out.ErrorCode, out.Description)
	}
	return nil
}
