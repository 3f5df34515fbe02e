package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/ytakahashi/todo-app/internal/apperr"
	"github.com/ytakahashi/todo-app/internal/auth"
	"github.com/ytakahashi/todo-app/internal/logging"
	"github.com/ytakahashi/todo-app/internal/models"
	"github.com/ytakahashi/todo-app/internal/storage"
	"github.com/ytakahashi/todo-app/internal/todos"
)

const (
	maxQuickReplies  = 5
	maxLabelLen      = 20
	completePostback = "complete"
)

const helpText = `📝 Todo bot

link <code>   connect this chat to your account
list          show your todos
add <text>    add a todo
done <n>      complete todo number n
delete <n>    delete todo number n
help          show this message

Get a link code from POST /api/auth/line/link.`

// Replier is the part of the LINE messaging client the webhook needs.
type Replier interface {
	ReplyMessage(replyMessageRequest *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// WebhookHandler lets a linked LINE user manage their todos from a chat. It
// goes through the same services as the REST API, so every todo operation is
// scoped to the linked account.
type WebhookHandler struct {
	bot           Replier
	channelSecret string
	auth          *auth.Service
	todos         *todos.Service
	links         storage.LinkRepository
	logger        logging.Logger
}

func NewWebhookHandler(bot Replier, channelSecret string, authService *auth.Service, todoService *todos.Service, links storage.LinkRepository, logger logging.Logger) *WebhookHandler {
	return &WebhookHandler{
		bot:           bot,
		channelSecret: channelSecret,
		auth:          authService,
		todos:         todoService,
		links:         links,
		logger:        logger,
	}
}

func getUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	default:
		return ""
	}
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	cb, err := webhook.ParseRequest(h.channelSecret, c.Request())
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn(ctx, "webhook: invalid signature")
			return c.NoContent(http.StatusBadRequest)
		}
		h.logger.Error(ctx, "webhook: parse request failed", "error", err)
		return c.NoContent(http.StatusInternalServerError)
	}

	for _, event := range cb.Events {
		switch e := event.(type) {
		case webhook.MessageEvent:
			if message, ok := e.Message.(webhook.TextMessageContent); ok {
				if err := h.handleTextMessage(ctx, e.ReplyToken, getUserID(e.Source), message.Text); err != nil {
					h.logger.Error(ctx, "webhook: text message failed", "error", err)
				}
			}
		case webhook.PostbackEvent:
			if e.Postback == nil {
				continue
			}
			if err := h.handlePostback(ctx, e.ReplyToken, getUserID(e.Source), e.Postback.Data); err != nil {
				h.logger.Error(ctx, "webhook: postback failed", "error", err)
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleTextMessage(ctx context.Context, replyToken, lineUserID, text string) error {
	if lineUserID == "" {
		return nil
	}

	command, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	command = strings.ToLower(command)
	arg = strings.TrimSpace(arg)

	switch command {
	case "help":
		return h.replyMessage(replyToken, helpText)
	case "link":
		return h.linkAccount(ctx, replyToken, lineUserID, arg)
	case "list", "add", "done", "delete":
	default:
		// Unrecognised messages get no reply.
		return nil
	}

	ownerID, err := h.linkedUser(ctx, lineUserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return h.replyMessage(replyToken, "This chat is not linked yet. Send \"link <code>\" first.")
		}
		return h.replyFailure(ctx, replyToken, err)
	}

	switch command {
	case "list":
		return h.showTodoList(ctx, replyToken, ownerID)
	case "add":
		return h.addTodo(ctx, replyToken, ownerID, arg)
	case "done":
		return h.completeByIndex(ctx, replyToken, ownerID, arg)
	default:
		return h.deleteByIndex(ctx, replyToken, ownerID, arg)
	}
}

func (h *WebhookHandler) handlePostback(ctx context.Context, replyToken, lineUserID, data string) error {
	action, todoID, ok := strings.Cut(data, ":")
	if !ok || action != completePostback || todoID == "" {
		return nil
	}

	ownerID, err := h.linkedUser(ctx, lineUserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return h.replyMessage(replyToken, "This chat is not linked yet. Send \"link <code>\" first.")
		}
		return h.replyFailure(ctx, replyToken, err)
	}

	todo, err := h.todos.Complete(ctx, ownerID, todoID)
	if err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}
	return h.replyMessage(replyToken, fmt.Sprintf("🎉 Completed \"%s\".", todo.Text))
}

func (h *WebhookHandler) linkedUser(ctx context.Context, lineUserID string) (string, error) {
	link, err := h.links.GetLink(ctx, lineUserID)
	if err != nil {
		return "", err
	}
	return link.UserID, nil
}

func (h *WebhookHandler) linkAccount(ctx context.Context, replyToken, lineUserID, code string) error {
	if code == "" {
		return h.replyMessage(replyToken, "Usage: link <code>")
	}

	userID, err := h.auth.ResolveLinkCode(ctx, code)
	if err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}

	link := &models.LineLink{LineUserID: lineUserID, UserID: userID, LinkedAt: time.Now().UTC()}
	if err := h.links.SaveLink(ctx, link); err != nil {
		return h.replyFailure(ctx, replyToken, apperr.Internal(err))
	}

	h.logger.Info(ctx, "line account linked", "user_id", userID)
	return h.replyMessage(replyToken, "✅ Linked. Send \"list\" to see your todos.")
}

func (h *WebhookHandler) addTodo(ctx context.Context, replyToken, ownerID, text string) error {
	todo, err := h.todos.Create(ctx, ownerID, text)
	if err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}
	return h.replyMessage(replyToken, fmt.Sprintf("✅ Added \"%s\".", todo.Text))
}

// todoAt resolves the 1-based position shown by "list".
func (h *WebhookHandler) todoAt(ctx context.Context, ownerID, arg string) (*models.Todo, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return nil, apperr.Validation("Give the todo number from \"list\", e.g. done 1")
	}

	list, err := h.todos.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if n > len(list) {
		return nil, apperr.NotFound(todos.MsgNotFound)
	}
	return list[n-1], nil
}

func (h *WebhookHandler) completeByIndex(ctx context.Context, replyToken, ownerID, arg string) error {
	target, err := h.todoAt(ctx, ownerID, arg)
	if err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}

	todo, err := h.todos.Complete(ctx, ownerID, target.ID)
	if err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}
	return h.replyMessage(replyToken, fmt.Sprintf("🎉 Completed \"%s\".", todo.Text))
}

func (h *WebhookHandler) deleteByIndex(ctx context.Context, replyToken, ownerID, arg string) error {
	target, err := h.todoAt(ctx, ownerID, arg)
	if err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}

	if _, err := h.todos.Remove(ctx, ownerID, target.ID); err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}
	return h.replyMessage(replyToken, fmt.Sprintf("🗑️ Deleted \"%s\".", target.Text))
}

func (h *WebhookHandler) showTodoList(ctx context.Context, replyToken, ownerID string) error {
	list, err := h.todos.List(ctx, ownerID)
	if err != nil {
		return h.replyFailure(ctx, replyToken, err)
	}

	if len(list) == 0 {
		return h.replyMessage(replyToken, "You have no todos.")
	}

	lines := make([]string, 0, len(list))
	var items []messaging_api.QuickReplyItem
	for i, todo := range list {
		mark := "☐"
		if todo.IsCompleted {
			mark = "☑"
		}
		lines = append(lines, fmt.Sprintf("%d. %s %s", i+1, mark, todo.Text))

		if !todo.IsCompleted && len(items) < maxQuickReplies {
			items = append(items, messaging_api.QuickReplyItem{
				Action: &messaging_api.PostbackAction{
					Label:       label(fmt.Sprintf("Done %d", i+1)),
					Data:        completePostback + ":" + todo.ID,
					DisplayText: label("done " + todo.Text),
				},
			})
		}
	}

	message := &messaging_api.TextMessage{
		Text: fmt.Sprintf("📝 Todos (%d)\n\n%s", len(list), strings.Join(lines, "\n")),
	}
	if len(items) > 0 {
		message.QuickReply = &messaging_api.QuickReply{Items: items}
	}

	return h.reply(replyToken, message)
}

// replyFailure tells the user what went wrong without leaking internals.
func (h *WebhookHandler) replyFailure(ctx context.Context, replyToken string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
		return h.replyMessage(replyToken, "⚠️ "+ae.Msg)
	}
	h.logger.Error(ctx, "webhook: operation failed", "error", err)
	return h.replyMessage(replyToken, "⚠️ Something went wrong. Please try again later.")
}

func (h *WebhookHandler) replyMessage(replyToken, text string) error {
	return h.reply(replyToken, &messaging_api.TextMessage{Text: text})
}

func (h *WebhookHandler) reply(replyToken string, message messaging_api.MessageInterface) error {
	_, err := h.bot.ReplyMessage(
		&messaging_api.ReplyMessageRequest{
			ReplyToken: replyToken,
			Messages:   []messaging_api.MessageInterface{message},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to send reply message: %w", err)
	}
	return nil
}

func label(s string) string {
	if utf8.RuneCountInString(s) <= maxLabelLen {
		return s
	}
	return string([]rune(s)[:maxLabelLen-1]) + "…"
}
