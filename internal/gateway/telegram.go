package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mohamedsaligh/mcp-server-client/internal/agent"
)

// bot is the part of *tgbotapi.BotAPI the gateway uses.
type bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramGateway runs the pipeline for every incoming text message. The chat
// id is the session id, so a chat's history forms one session.
type TelegramGateway struct {
	Bot    bot
	Runner Runner
}

func NewTelegramGateway(token string, runner Runner) (*TelegramGateway, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("[TELEGRAM] Authorized on account %s", api.Self.UserName)

	return &TelegramGateway{Bot: api, Runner: runner}, nil
}

// Start polls for updates until ctx is done. Messages are handled one at a
// time so a chat's runs stay in order.
func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return tg.Stop()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			tg.handle(ctx, update)
		}
	}
}

func (tg *TelegramGateway) handle(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
		return
	}

	user := "telegram"
	if update.Message.From != nil && update.Message.From.UserName != "" {
		user = update.Message.From.UserName
	}
	log.Printf("[TELEGRAM] [%s] %s", user, update.Message.Text)

	chatID := update.Message.Chat.ID
	outcome := agent.Drain(tg.Runner.Run(ctx, agent.Request{
		SessionID: strconv.FormatInt(chatID, 10),
		UserID:    user,
		Prompt:    update.Message.Text,
	}), nil)
	if ctx.Err() != nil {
		return
	}

	if err := tg.Send(strconv.FormatInt(chatID, 10), replyText(outcome)); err != nil {
		log.Printf("[TELEGRAM] failed to reply to %d: %v", chatID, err)
	}
}

// replyText renders a finished run as one chat message.
func replyText(o agent.Outcome) string {
	var b strings.Builder
	switch {
	case o.Error != "":
		b.WriteString(o.Error)
	case o.Result != nil && o.Result.FinalAnswer != "":
		b.WriteString(o.Result.FinalAnswer)
	default:
		b.WriteString("I could not produce an answer for that request.")
	}
	for _, w := range o.Warnings {
		b.WriteString("\n\nNote: ")
		b.WriteString(w)
	}
	return b.String()
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	_, err = tg.Bot.Send(tgbotapi.NewMessage(id, text))
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
