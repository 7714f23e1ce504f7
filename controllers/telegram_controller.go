// controllers/telegram_controller.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tool_lending_tracker/app"
	"tool_lending_tracker/db"
	"tool_lending_tracker/models"
	"tool_lending_tracker/session"
	"tool_lending_tracker/telegram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	dateFmt      = "02.01.2006"
	historyLimit = 20
)

type TelegramController struct{ *Srv }

func NewTelegramController(s *Srv) *TelegramController { return &TelegramController{Srv: s} }

func (tc *TelegramController) Webhook(c *gin.Context) {
	if tc.Cfg.WebhookSecret == "" || c.Param("secret") != tc.Cfg.WebhookSecret {
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
		return
	}
	var u telegram.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	tc.HandleUpdate(c.Request.Context(), u)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (tc *TelegramController) HandleUpdate(ctx context.Context, u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		tc.onCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		tc.onMessage(ctx, u.Message)
	}
}

// --- output helpers ---

func (tc *TelegramController) send(ctx context.Context, chatID int64, text string, opts ...telegram.MessageOption) {
	if err := tc.Bot.SendMessage(ctx, chatID, text, opts...); err != nil {
		tc.Log.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (tc *TelegramController) answer(ctx context.Context, cq *telegram.CallbackQuery, text string) {
	if err := tc.Bot.AnswerCallbackQuery(ctx, cq.ID, text); err != nil {
		tc.Log.Debug("answer callback failed", zap.String("callback_id", cq.ID), zap.Error(err))
	}
}

func (tc *TelegramController) notifyAdmins(ctx context.Context, text string, opts ...telegram.MessageOption) {
	for _, id := range tc.Cfg.AdminChatIDs() {
		tc.send(ctx, id, text, opts...)
	}
}

func keyboard(rows ...[]telegram.InlineKeyboardButton) telegram.MessageOption {
	return telegram.WithKeyboard(rows)
}

func row(btns ...telegram.InlineKeyboardButton) []telegram.InlineKeyboardButton { return btns }

func chatKey(id int64) string { return strconv.FormatInt(id, 10) }

func formatDate(t time.Time) string { return t.Format(dateFmt) }

// humanErr turns store errors into a short chat reply.
func humanErr(err error) string {
	switch {
	case errors.Is(err, db.ErrAlreadyIssued):
		return "❌ Инструмент уже выдан"
	case errors.Is(err, db.ErrDuplicateRequest):
		return "⏳ Запрос уже отправлен, ожидайте решения"
	case errors.Is(err, db.ErrNoPendingRequest):
		return "❌ Запрос не найден или уже обработан"
	case errors.Is(err, db.ErrNoOpenIssue):
		return "❌ Инструмент не найден или уже возвращён"
	case errors.Is(err, db.ErrToolNotFound):
		return "❌ Инструмент не найден"
	case errors.Is(err, db.ErrInvalidInput):
		return "❌ Некорректные данные"
	}
	return "❌ Произошла ошибка, попробуйте позже"
}

// --- messages ---

func (tc *TelegramController) onMessage(ctx context.Context, m *telegram.Message) {
	chat := m.Chat.ID
	if !tc.Limiter.Allow(ctx, chatKey(chat)) {
		return
	}
	if len(m.Photo) > 0 {
		tc.onPhoto(ctx, m)
		return
	}
	text := strings.TrimSpace(m.Text)
	if strings.HasPrefix(text, "/") {
		tc.command(ctx, chat, m.From.ID, text)
		return
	}

	st, err := tc.Chats.Get(ctx, chat)
	if err != nil || st.Step != session.StepAwaitName {
		tc.send(ctx, chat, "Выберите действие в меню: /start")
		return
	}
	if text == "" {
		tc.send(ctx, chat, "👤 Пожалуйста, введите ваше ФИО:")
		return
	}
	_ = tc.Chats.Clear(ctx, chat)
	tc.submitRequest(ctx, chat, st.ToolID, text)
}

func (tc *TelegramController) submitRequest(ctx context.Context, chat int64, toolID uint, employee string) {
	req, err := tc.Tracker.CreateRequest(ctx, toolID, employee, chat)
	if err != nil {
		tc.send(ctx, chat, humanErr(err))
		return
	}
	name := ""
	if req.Tool != nil {
		name = req.Tool.Name
	}
	tc.send(ctx, chat, fmt.Sprintf(
		"✅ Ваш запрос на получение инструмента отправлен администратору.\nИнструмент: %s\nФИО: %s\n\nОжидайте подтверждения.",
		name, req.EmployeeName))

	tc.notifyAdmins(ctx,
		fmt.Sprintf("📝 Новый запрос на получение инструмента\n\nИнструмент: %s (#%d)\nСотрудник: %s\nЧат ID: %d",
			name, toolID, req.EmployeeName, chat),
		keyboard(row(
			telegram.Button("✅ Одобрить", fmt.Sprintf("approve:%d:%d", toolID, chat)),
			telegram.Button("❌ Отклонить", fmt.Sprintf("reject:%d:%d", toolID, chat)),
		)))
}

func (tc *TelegramController) onPhoto(ctx context.Context, m *telegram.Message) {
	chat := m.Chat.ID
	st, err := tc.Chats.Get(ctx, chat)
	if err != nil || st.Step != session.StepAwaitPhoto {
		tc.send(ctx, chat, "Фото не ожидается. Выберите действие: /start")
		return
	}
	_ = tc.Chats.Clear(ctx, chat)

	rec, err := tc.Tracker.BeginReturn(ctx, st.ToolID)
	if err != nil {
		tc.send(ctx, chat, humanErr(err))
		return
	}
	photo := m.LargestPhoto()
	if err := tc.Returns.Save(ctx, session.PendingReturn{
		IssueID: rec.ID, ToolID: rec.ToolID, ChatID: chat, PhotoRef: photo,
	}); err != nil {
		tc.Log.Error("save pending return failed", zap.Uint("issue_id", rec.ID), zap.Error(err))
		tc.send(ctx, chat, humanErr(err))
		return
	}

	caption := fmt.Sprintf("📸 Запрос на возврат инструмента:\n🔧 Инструмент: %s\n🔢 ID: %d\n👤 Сотрудник: %s",
		toolName(rec.Tool), rec.ToolID, rec.EmployeeName)
	kb := keyboard(row(
		telegram.Button("✅ Подтвердить", fmt.Sprintf("retok:%d", rec.ID)),
		telegram.Button("❌ Отклонить", fmt.Sprintf("retno:%d", rec.ID)),
	))
	for _, admin := range tc.Cfg.AdminChatIDs() {
		if err := tc.Bot.SendPhoto(ctx, admin, photo, caption, kb); err != nil {
			tc.Log.Warn("telegram photo failed", zap.Int64("chat_id", admin), zap.Error(err))
		}
	}
	tc.send(ctx, chat, "📸 Фото получено! Ожидайте подтверждения администратора.")
}

func toolName(t *models.Tool) string {
	if t == nil {
		return "?"
	}
	return t.Name
}

// --- commands ---

func (tc *TelegramController) command(ctx context.Context, chat, from int64, text string) {
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	admin := tc.Cfg.IsAdminChat(from)

	switch cmd {
	case "/start", "/menu":
		tc.showMenu(ctx, chat, admin)
	case "/tools":
		tc.showTools(ctx, chat)
	case "/return":
		tc.showReturnMenu(ctx, chat)
	case "/cancel":
		_ = tc.Chats.Clear(ctx, chat)
		tc.send(ctx, chat, "Действие отменено.")
	case "/login":
		if !admin {
			tc.send(ctx, chat, "⛔ У вас нет прав для этого действия")
			return
		}
		tc.sendLoginCode(ctx, from)
	case "/issued", "/overdue", "/history":
		if !admin {
			tc.send(ctx, chat, "⛔ У вас нет прав для этого действия")
			return
		}
		tc.adminView(ctx, chat, cmd)
	default:
		tc.send(ctx, chat, "Неизвестная команда. /start")
	}
}

func (tc *TelegramController) showMenu(ctx context.Context, chat int64, admin bool) {
	rows := [][]telegram.InlineKeyboardButton{
		row(telegram.Button("🛠 Инструменты", "/tools"), telegram.Button("↩️ Вернуть", "/return")),
	}
	text := "👋 Добро пожаловать в систему учёта инструментов!\n\n🛠 Инструменты - получить инструмент\n↩️ Вернуть - вернуть инструмент"
	if admin {
		rows = append(rows,
			row(telegram.Button("📋 Выданные", "/issued"), telegram.Button("⚠️ Просрочки", "/overdue")),
			row(telegram.Button("📜 История", "/history"), telegram.Button("🔐 Вход в веб", "/login")))
		text += "\n\n👨‍💼 Админ панель:\n📋 Выданные\n⚠️ Просрочки\n📜 История"
	}
	tc.send(ctx, chat, text, telegram.WithKeyboard(rows))
}

func (tc *TelegramController) showTools(ctx context.Context, chat int64) {
	groups, err := tc.Tracker.ToolGroups(ctx)
	if err != nil {
		tc.send(ctx, chat, humanErr(err))
		return
	}
	var rows [][]telegram.InlineKeyboardButton
	for _, g := range groups {
		if len(g.AvailableIDs) == 0 {
			continue
		}
		label := fmt.Sprintf("%s (%d/%d)", g.Name, g.Available, g.Total)
		rows = append(rows, row(telegram.Button(label, fmt.Sprintf("req:%d", g.AvailableIDs[0]))))
	}
	if len(rows) == 0 {
		tc.send(ctx, chat, "❌ Нет доступных инструментов")
		return
	}
	tc.send(ctx, chat, "🛠 Выберите инструмент:", telegram.WithKeyboard(rows))
}

func (tc *TelegramController) showReturnMenu(ctx context.Context, chat int64) {
	issued, err := tc.Tracker.ListIssued(ctx)
	if err != nil {
		tc.send(ctx, chat, humanErr(err))
		return
	}
	if len(issued) == 0 {
		tc.send(ctx, chat, "❌ Нет выданных инструментов")
		return
	}
	var rows [][]telegram.InlineKeyboardButton
	for _, r := range issued {
		due := "—"
		if r.ExpectedReturnDate != nil {
			due = formatDate(*r.ExpectedReturnDate)
		}
		label := fmt.Sprintf("🔧 %s - %s (до %s)", toolName(r.Tool), r.EmployeeName, due)
		rows = append(rows, row(telegram.Button(label, fmt.Sprintf("ret:%d", r.ToolID))))
	}
	tc.send(ctx, chat, "📋 Выберите инструмент для возврата:", telegram.WithKeyboard(rows))
}

func (tc *TelegramController) adminView(ctx context.Context, chat int64, cmd string) {
	var b strings.Builder
	switch cmd {
	case "/issued":
		rs, err := tc.Tracker.ListIssued(ctx)
		if err != nil {
			tc.send(ctx, chat, humanErr(err))
			return
		}
		b.WriteString("📋 Выданные инструменты\n")
		if len(rs) == 0 {
			b.WriteString("\nНет выданных инструментов")
		}
		for _, r := range rs {
			fmt.Fprintf(&b, "\n🔧 %s (#%d)\n👤 %s\n📅 %s", toolName(r.Tool), r.ToolID, r.EmployeeName, formatDate(r.IssueDate))
			if r.ExpectedReturnDate != nil {
				fmt.Fprintf(&b, " → %s", formatDate(*r.ExpectedReturnDate))
			}
			b.WriteString("\n")
		}
	case "/overdue":
		rs, err := tc.Tracker.ListOverdue(ctx, 0)
		if err != nil {
			tc.send(ctx, chat, humanErr(err))
			return
		}
		b.WriteString("⚠️ Просроченные инструменты\n")
		if len(rs) == 0 {
			b.WriteString("\nНет просроченных инструментов")
		}
		for _, r := range rs {
			fmt.Fprintf(&b, "\n🔧 %s (#%d)\n👤 %s\n📅 выдан %s\n", toolName(r.Tool), r.ToolID, r.EmployeeName, formatDate(r.IssueDate))
		}
	case "/history":
		hs, err := tc.Tracker.ListHistory(ctx, historyLimit)
		if err != nil {
			tc.send(ctx, chat, humanErr(err))
			return
		}
		b.WriteString("📜 История\n")
		if len(hs) == 0 {
			b.WriteString("\nИстория пуста")
		}
		for _, h := range hs {
			fmt.Fprintf(&b, "\n%s %s: %s (%s)", h.Timestamp.Format("02.01.2006 15:04"), h.Action, toolName(h.Tool), h.EmployeeName)
		}
	}
	tc.send(ctx, chat, b.String())
}

// sendLoginCode delivers a one-time web login code to the admin's private chat.
func (tc *TelegramController) sendLoginCode(ctx context.Context, admin int64) {
	if tc.Logins == nil {
		tc.send(ctx, admin, "❌ Вход недоступен")
		return
	}
	code, err := tc.Logins.Issue(ctx, chatKey(admin))
	if err != nil {
		tc.Log.Error("issue login code failed", zap.Int64("chat_id", admin), zap.Error(err))
		tc.send(ctx, admin, humanErr(err))
		return
	}
	tc.send(ctx, admin, fmt.Sprintf("🔐 Код для входа: %s\nID: %d\nДействует %d мин.",
		code, admin, int(tc.Logins.TTL().Minutes())))
}

// --- callbacks ---

// callbackArgs splits "action:a:b" and checks the argument count.
func callbackArgs(data string, n int) ([]string, bool) {
	parts := strings.Split(data, ":")
	if len(parts) != n+1 {
		return nil, false
	}
	return parts[1:], true
}

// recordID parses a tool or issue id.
func recordID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// chatID parses a Telegram chat id; group chats are negative.
func chatID(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

func (tc *TelegramController) onCallback(ctx context.Context, cq *telegram.CallbackQuery) {
	chat := cq.From.ID
	if cq.Message != nil {
		chat = cq.Message.Chat.ID
	}
	if !tc.Limiter.Allow(ctx, chatKey(cq.From.ID)) {
		tc.answer(ctx, cq, "⏳ Слишком часто, подождите")
		return
	}
	if strings.HasPrefix(cq.Data, "/") {
		tc.answer(ctx, cq, "")
		tc.command(ctx, chat, cq.From.ID, cq.Data)
		return
	}

	action, _, _ := strings.Cut(cq.Data, ":")
	switch action {
	case "req", "ret", "retok", "retno":
		args, ok := callbackArgs(cq.Data, 1)
		if !ok {
			break
		}
		id, ok := recordID(args[0])
		if !ok {
			break
		}
		switch action {
		case "req":
			tc.onSelectTool(ctx, cq, chat, id)
			return
		case "ret":
			tc.onSelectReturn(ctx, cq, chat, id)
			return
		}
		if !tc.Cfg.IsAdminChat(cq.From.ID) {
			tc.answer(ctx, cq, "⛔ У вас нет прав для этого действия")
			return
		}
		tc.onReturnDecision(ctx, cq, action == "retok", id)
		return
	case "approve", "reject":
		args, ok := callbackArgs(cq.Data, 2)
		if !ok {
			break
		}
		toolID, ok := recordID(args[0])
		if !ok {
			break
		}
		requester, ok := chatID(args[1])
		if !ok {
			break
		}
		if !tc.Cfg.IsAdminChat(cq.From.ID) {
			tc.answer(ctx, cq, "⛔ У вас нет прав для этого действия")
			return
		}
		tc.onDecision(ctx, cq, action == "approve", toolID, requester)
		return
	}
	tc.Log.Warn("unknown callback", zap.String("data", cq.Data))
	tc.answer(ctx, cq, "❌ Ошибка обработки запроса")
}

func (tc *TelegramController) onSelectTool(ctx context.Context, cq *telegram.CallbackQuery, chat int64, toolID uint) {
	t, err := tc.Tracker.GetTool(ctx, toolID)
	if err != nil {
		tc.answer(ctx, cq, humanErr(err))
		return
	}
	if g := models.CanRequest(*t); !g.Allowed {
		tc.answer(ctx, cq, humanErr(db.ErrAlreadyIssued))
		return
	}
	if err := tc.Chats.Set(ctx, chat, session.ChatState{Step: session.StepAwaitName, ToolID: toolID}); err != nil {
		tc.answer(ctx, cq, humanErr(err))
		return
	}
	tc.answer(ctx, cq, "")
	tc.send(ctx, chat, fmt.Sprintf("👤 Получение инструмента: %s\n\nПожалуйста, введите ваше ФИО:", t.Name))
}

func (tc *TelegramController) onSelectReturn(ctx context.Context, cq *telegram.CallbackQuery, chat int64, toolID uint) {
	rec, err := tc.Tracker.BeginReturn(ctx, toolID)
	if err != nil {
		tc.answer(ctx, cq, humanErr(err))
		return
	}
	if err := tc.Chats.Set(ctx, chat, session.ChatState{Step: session.StepAwaitPhoto, ToolID: toolID}); err != nil {
		tc.answer(ctx, cq, humanErr(err))
		return
	}
	due := "—"
	if rec.ExpectedReturnDate != nil {
		due = formatDate(*rec.ExpectedReturnDate)
	}
	tc.answer(ctx, cq, "")
	tc.send(ctx, chat, fmt.Sprintf(
		"📸 Возврат инструмента\n\n🛠️ Инструмент: %s\n👤 Сотрудник: %s\n📅 Дата выдачи: %s\n⚠️ Вернуть до: %s\n\nПожалуйста, сфотографируйте инструмент для подтверждения возврата.",
		toolName(rec.Tool), rec.EmployeeName, formatDate(rec.IssueDate), due))
}

func (tc *TelegramController) onDecision(ctx context.Context, cq *telegram.CallbackQuery, approve bool, toolID uint, employeeChat int64) {
	var (
		err    error
		status string
		notice string
	)
	if approve {
		_, _, err = tc.Tracker.ApproveRequest(ctx, toolID, employeeChat)
		status, notice = "✅ Запрос одобрен", "✅ Ваш запрос на получение инструмента одобрен!\nВы можете получить инструмент."
	} else {
		_, err = tc.Tracker.RejectRequest(ctx, toolID, employeeChat)
		status, notice = "❌ Запрос отклонен", "❌ Ваш запрос на получение инструмента отклонен."
	}
	if err != nil {
		tc.answer(ctx, cq, humanErr(err))
		return
	}
	tc.send(ctx, employeeChat, notice)
	tc.markDone(ctx, cq, status)
	tc.answer(ctx, cq, status)
}

func (tc *TelegramController) onReturnDecision(ctx context.Context, cq *telegram.CallbackQuery, confirm bool, issueID uint) {
	var (
		rec *models.IssueRecord
		err error
	)
	if confirm {
		rec, err = tc.Tracker.CompleteReturn(ctx, issueID)
	} else {
		rec, err = tc.Tracker.RejectReturn(ctx, issueID)
	}
	if err != nil {
		tc.answer(ctx, cq, humanErr(err))
		return
	}

	pending, perr := tc.Returns.Take(ctx, issueID)
	if perr != nil && !errors.Is(perr, session.ErrNoState) {
		tc.Log.Warn("load pending return failed", zap.Uint("issue_id", issueID), zap.Error(perr))
	}
	status := "✅ Возврат подтвержден"
	if !confirm {
		status = "❌ Возврат отклонен"
	}
	if pending != nil {
		if confirm {
			tc.send(ctx, pending.ChatID, fmt.Sprintf("✅ Возврат инструмента #%d (%s) подтвержден", rec.ToolID, toolName(rec.Tool)))
		} else {
			tc.send(ctx, pending.ChatID,
				fmt.Sprintf("❌ Возврат инструмента #%d (%s) отклонен.\nПожалуйста, проверьте состояние инструмента и попробуйте снова.", rec.ToolID, toolName(rec.Tool)),
				keyboard(row(telegram.Button("🔄 Попробовать снова", fmt.Sprintf("ret:%d", rec.ToolID)))))
		}
	}
	tc.markDone(ctx, cq, status)
	tc.answer(ctx, cq, status)
}

// markDone appends the outcome to the admin's message and drops its buttons.
func (tc *TelegramController) markDone(ctx context.Context, cq *telegram.CallbackQuery, status string) {
	if cq.Message == nil {
		return
	}
	text := cq.Message.Text
	if text == "" {
		text = cq.Message.Caption
	}
	if len(cq.Message.Photo) > 0 {
		// captions cannot be edited through editMessageText
		tc.send(ctx, cq.Message.Chat.ID, status)
		return
	}
	if err := tc.Bot.EditMessageText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, text+"\n\n"+status); err != nil {
		tc.Log.Debug("edit message failed", zap.Error(err))
	}
}
