package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

const (
	startCommand    = "/start"
	downloadCommand = "/download"
)

// botAPI is the subset of [bot.Bot] the transport calls.
type botAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*tgmodels.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*tgmodels.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Telegram delivers messages and audio files through the Bot API and routes incoming updates to a [Handler].
//
// It implements tasks.Transport.
type Telegram struct {
	api    botAPI
	bot    *bot.Bot
	logger *log.Logger
}

// NewTelegram connects to the Bot API with token. Extra options are passed to [bot.New].
func NewTelegram(token string, logger *log.Logger, opts ...bot.Option) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: telegram token", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "telegram")

	opts = append([]bot.Option{
		bot.WithErrorsHandler(func(err error) { logger.Warn("bot api error", "error", err) }),
	}, opts...)

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Telegram{api: b, bot: b, logger: logger}, nil
}

func newTelegram(api botAPI, logger *log.Logger) *Telegram {
	return &Telegram{api: api, logger: logger}
}

// Listen registers the command and callback routes and long-polls until ctx is done.
func (t *Telegram) Listen(ctx context.Context, h Handler) error {
	if t.bot == nil {
		return fmt.Errorf("%w: telegram bot is not connected", shared.ErrServiceUnavailable)
	}

	t.bot.RegisterHandler(bot.HandlerTypeMessageText, startCommand, bot.MatchTypePrefix,
		func(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) { t.handleStart(ctx, h, update) })
	t.bot.RegisterHandler(bot.HandlerTypeMessageText, downloadCommand, bot.MatchTypePrefix,
		func(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) { t.handleDownload(ctx, h, update) })
	t.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, models.BitrateCallbackPrefix, bot.MatchTypePrefix,
		func(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) { t.handleCallback(ctx, h, update) })

	t.logger.Info("listening for updates")
	t.bot.Start(ctx)
	return nil
}

func (t *Telegram) handleStart(ctx context.Context, h Handler, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	if cmd, _ := SplitCommand(msg.Text); cmd != startCommand {
		return
	}

	firstName := ""
	if msg.From != nil {
		firstName = msg.From.FirstName
	}
	if err := h.OnStart(ctx, msg.Chat.ID, msg.ID, firstName); err != nil {
		t.logger.Warn("start failed", "chat", msg.Chat.ID, "error", err)
	}
}

func (t *Telegram) handleDownload(ctx context.Context, h Handler, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	cmd, args := SplitCommand(msg.Text)
	if cmd != downloadCommand {
		return
	}

	if err := h.OnLinkCommand(ctx, msg.Chat.ID, msg.ID, args); err != nil {
		t.logger.Info("download request rejected", "chat", msg.Chat.ID, "error", err)
	}
}

func (t *Telegram) handleCallback(ctx context.Context, h Handler, update *tgmodels.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	if _, err := t.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		t.logger.Debug("failed to answer callback", "error", err)
	}

	chatID, messageID, ok := callbackOrigin(cq)
	if !ok {
		t.logger.Warn("callback without origin message", "data", cq.Data)
		return
	}

	bitrate, err := models.ParseBitrate(cq.Data)
	if err != nil {
		t.logger.Warn("unknown callback data", "chat", chatID, "data", cq.Data)
		return
	}

	if err := h.OnBitrateSelected(ctx, chatID, messageID, bitrate); err != nil {
		t.logger.Info("quality selection rejected", "chat", chatID, "error", err)
	}
}

func callbackOrigin(cq *tgmodels.CallbackQuery) (int64, int, bool) {
	switch {
	case cq.Message.Message != nil:
		return cq.Message.Message.Chat.ID, cq.Message.Message.ID, true
	case cq.Message.InaccessibleMessage != nil:
		return cq.Message.InaccessibleMessage.Chat.ID, cq.Message.InaccessibleMessage.MessageID, true
	default:
		return 0, 0, false
	}
}

// SplitCommand returns the command word (without any "@botname" suffix) and the rest of the text.
func SplitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	cmd, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, strings.TrimSpace(rest)
}

func (t *Telegram) SendMessage(ctx context.Context, conversationID int64, text string) (int, error) {
	msg, err := t.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: conversationID, Text: text})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (t *Telegram) ReplyTo(ctx context.Context, conversationID int64, messageID int, text string) (int, error) {
	msg, err := t.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          conversationID,
		Text:            text,
		ReplyParameters: &tgmodels.ReplyParameters{MessageID: messageID, AllowSendingWithoutReply: true},
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// EditMessage replaces text and drops any inline keyboard on the message.
func (t *Telegram) EditMessage(ctx context.Context, conversationID int64, messageID int, text string) error {
	_, err := t.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    conversationID,
		MessageID: messageID,
		Text:      text,
	})
	return err
}

// SendChoice lays the choices out one button per row.
func (t *Telegram) SendChoice(ctx context.Context, conversationID int64, text string, choices []models.Choice) (int, error) {
	rows := make([][]tgmodels.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, []tgmodels.InlineKeyboardButton{{Text: c.Label, CallbackData: c.Data}})
	}

	msg, err := t.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      conversationID,
		Text:        text,
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// SendFile uploads path as an audio message.
func (t *Telegram) SendFile(ctx context.Context, conversationID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	_, err = t.api.SendAudio(ctx, &bot.SendAudioParams{
		ChatID: conversationID,
		Audio:  &tgmodels.InputFileUpload{Filename: name, Data: f},
		Title:  strings.TrimSuffix(name, filepath.Ext(name)),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}
