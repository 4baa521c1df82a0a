package telegram

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/service/chat"
	"github.com/sandevgo/recall/pkg/log"
)

const baseContextKey = "base_context"

type Bot struct {
	bot     *tele.Bot
	cfg     *config.TelegramConfig
	chat    *chat.Service
	sender  *sender
	ownerID int64
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	svc *chat.Service,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		cfg:     cfg,
		chat:    svc,
		sender:  newSender(b),
		ownerID: cfg.OwnerID,
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Middleware: Only allow the owner when one is configured
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if bot.ownerID != 0 && c.Sender().ID != bot.ownerID {
				return nil // Ignore unauthorized users
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)
	b.Handle("/language", bot.handleLanguage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)
	userID := fmt.Sprintf("telegram-%d", c.Chat().ID)

	// Notify user we are working
	_ = c.Notify(tele.Typing)

	language := ""
	if c.Sender() != nil {
		language = c.Sender().LanguageCode
	}

	reply, err := b.chat.ProcessMessage(ctx, userID, c.Text(), language)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("message processing failed")
		// The reply still carries the fallback text.
	}

	return b.sender.sendMarkdown(ctx, c.Chat(), reply.Response, false)
}

func (b *Bot) handleLanguage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	userID := fmt.Sprintf("telegram-%d", c.Chat().ID)

	lang := c.Message().Payload
	if lang == "" {
		return c.Send("Usage: /language <code>, e.g. /language de")
	}

	if err := b.chat.SetPreferredLanguage(ctx, userID, lang); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("user_id", userID).Msg("failed to set language preference")
		return c.Send("Could not save your language preference.")
	}
	return c.Send(fmt.Sprintf("Preferred language set to %s.", lang))
}
