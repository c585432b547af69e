package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"blockwatch/internal/config"
	"blockwatch/internal/models"
	"blockwatch/internal/repository"
)

// Heartbeat log cadence, in messages.
const heartbeatEvery = 50

// BlockTradeHandler is invoked once per newly stored block-trade message.
type BlockTradeHandler func(ctx context.Context, messageID int64, ts time.Time, text string) error

// Listener consumes the broadcast channel over Telegram long polling. Every
// message is stored; messages carrying the block-trade tag additionally go
// to the handler. Storage work is one short-lived unit per message.
type Listener struct {
	Cfg          config.TelegramConfig
	Repo         repository.Repository
	OnBlockTrade BlockTradeHandler
	Logger       *zap.Logger

	seen int
}

// Run blocks until ctx is cancelled or the update stream fails.
func (l *Listener) Run(ctx context.Context) error {
	bot, err := telego.NewBot(l.Cfg.Token, telego.WithDefaultLogger(false, false))
	if err != nil {
		return fmt.Errorf("ingest: create bot: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "channel_post"},
	})
	if err != nil {
		return fmt.Errorf("ingest: start long polling: %w", err)
	}
	l.Logger.Info("listener started", zap.Int64("chat_id", l.Cfg.ChatID))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("ingest: update stream closed")
			}
			msg := update.Message
			if msg == nil {
				msg = update.ChannelPost
			}
			if msg == nil || msg.Text == "" {
				continue
			}
			if l.Cfg.ChatID != 0 && msg.Chat.ID != l.Cfg.ChatID {
				continue
			}
			l.handle(ctx, msg)
		}
	}
}

func (l *Listener) handle(ctx context.Context, msg *telego.Message) {
	ts := time.Unix(msg.Date, 0).UTC()
	isBlock := l.Cfg.BlockTradeTag != "" && strings.Contains(msg.Text, l.Cfg.BlockTradeTag)

	row := &models.Message{
		MessageID:    int64(msg.MessageID),
		Date:         ts,
		Text:         msg.Text,
		IsBlockTrade: isBlock,
	}
	inserted, err := l.Repo.SaveMessage(ctx, row)
	if err != nil {
		l.Logger.Error("save message failed",
			zap.Int64("message_id", row.MessageID),
			zap.Error(err))
		return
	}

	l.seen++
	if l.seen%heartbeatEvery == 0 {
		l.Logger.Info("listener heartbeat",
			zap.Int("messages_seen", l.seen),
			zap.Int64("last_message_id", row.MessageID))
	}

	if !isBlock || !inserted {
		return
	}
	if l.OnBlockTrade == nil {
		return
	}
	if err := l.OnBlockTrade(ctx, row.MessageID, ts, msg.Text); err != nil {
		// One bad trade never stops the stream.
		l.Logger.Error("block trade handler failed",
			zap.Int64("message_id", row.MessageID),
			zap.Error(err))
	}
}
