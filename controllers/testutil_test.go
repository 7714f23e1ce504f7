package controllers

import (
	"context"
	"sync"
	"testing"
	"time"

	"tool_lending_tracker/app"
	"tool_lending_tracker/db"
	"tool_lending_tracker/events"
	"tool_lending_tracker/models"
	"tool_lending_tracker/telegram"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminChat    int64 = 1000
	employeeChat int64 = 42
)

type sent struct {
	Method string
	ChatID int64
	Text   string
	Photo  string
}

// fakeBot records Bot API calls instead of sending them.
type fakeBot struct {
	mu    sync.Mutex
	calls []sent
}

func (b *fakeBot) add(s sent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, s)
}

func (b *fakeBot) SendMessage(_ context.Context, chatID int64, text string, _ ...telegram.MessageOption) error {
	b.add(sent{Method: "sendMessage", ChatID: chatID, Text: text})
	return nil
}

func (b *fakeBot) SendPhoto(_ context.Context, chatID int64, fileID, caption string, _ ...telegram.MessageOption) error {
	b.add(sent{Method: "sendPhoto", ChatID: chatID, Text: caption, Photo: fileID})
	return nil
}

func (b *fakeBot) AnswerCallbackQuery(_ context.Context, id string, text string) error {
	b.add(sent{Method: "answerCallbackQuery", Text: text})
	return nil
}

func (b *fakeBot) EditMessageText(_ context.Context, chatID int64, _ int, text string, _ ...telegram.MessageOption) error {
	b.add(sent{Method: "editMessageText", ChatID: chatID, Text: text})
	return nil
}

func (b *fakeBot) to(chatID int64) []sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sent
	for _, c := range b.calls {
		if c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBot) last(chatID int64) sent {
	cs := b.to(chatID)
	if len(cs) == 0 {
		return sent{}
	}
	return cs[len(cs)-1]
}

func (b *fakeBot) answers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.calls {
		if c.Method == "answerCallbackQuery" {
			out = append(out, c.Text)
		}
	}
	return out
}

type fixture struct {
	App *app.App
	Srv *Srv
	Bot *fakeBot
	Pub *events.Recorder
	MR  *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := app.Config{
		AdminIDs:      []string{"1000"},
		LoanDays:      7,
		OverdueDays:   7,
		WebhookSecret: "s3cret",
		RateWindow:    time.Second,
		RateBurst:     1000,
		PendingTTL:    time.Hour,
	}
	bot := &fakeBot{}
	pub := &events.Recorder{}
	a := app.Assemble(cfg, zap.NewNop(), conn, rdb, pub, bot)
	t.Cleanup(a.Close)

	return &fixture{App: a, Srv: GetSrv(a), Bot: bot, Pub: pub, MR: mr}
}

func (f *fixture) tool(t *testing.T, name string) models.Tool {
	t.Helper()
	ts, err := f.App.Tracker.AddTool(context.Background(), name, nil, 1)
	require.NoError(t, err)
	return ts[0]
}
