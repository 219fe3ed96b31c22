package opener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"wamsg/internal/dispatch"
	logx "wamsg/pkg/logx"
	"wamsg/pkg/tgui"
)

type TelegramConfig struct {
	Token      string
	ChatID     int64
	ThreadID   int
	RatePerSec int
	// Offline skips the getMe call at construction (tests).
	Offline bool
}

// Telegram delivers each link to a chat as a message with an inline URL
// button; the operator taps it on a phone where the messaging app lives.
// The bot never receives updates, so no poller is started.
type Telegram struct {
	bot      *tele.Bot
	chat     *tele.Chat
	threadID int
	limiter  *rate.Limiter
	log      logx.Logger
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required for the telegram opener")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{
		bot:      b,
		chat:     &tele.Chat{ID: cfg.ChatID},
		threadID: cfg.ThreadID,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		log:      log.With(logx.String("comp", "opener.telegram")),
	}, nil
}

func (t *Telegram) Open(ctx context.Context, url string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(tele.Btn{Text: "Open chat", URL: url}))

	start := time.Now()
	_, err := t.bot.Send(t.chat, linkCard(url).String(), &tele.SendOptions{
		ParseMode:             tgui.ParseMode,
		DisableWebPagePreview: true,
		ThreadID:              t.threadID,
		ReplyMarkup:           rm,
	})
	if err != nil {
		if isRefusal(err) {
			return fmt.Errorf("%w: %v", dispatch.ErrRefused, err)
		}
		return err
	}
	t.log.Debug("link delivered", logx.Int64("chat_id", t.chat.ID), logx.Duration("took", time.Since(start)))
	return nil
}

// previewRunes bounds the quoted message so the card stays well under
// tgui.MaxMessageRunes.
const previewRunes = 600

// linkCard shows the recipient number and a preview of the prefilled text
// so a list of deliveries is scannable.
func linkCard(link string) tgui.H {
	num, text := link, ""
	if u, err := url.Parse(link); err == nil {
		num = path.Base(u.Path)
		text = u.Query().Get("text")
	}
	return tgui.Lines(
		tgui.B("Message to +"+num),
		tgui.Quote(tgui.TruncRunes(text, previewRunes)),
	)
}

// isRefusal reports Telegram errors meaning the chat will not accept
// messages from the bot (blocked, kicked, forbidden).
func isRefusal(err error) bool {
	if errors.Is(err, tele.ErrBlockedByUser) || errors.Is(err, tele.ErrKickedFromGroup) {
		return true
	}
	var te *tele.Error
	if errors.As(err, &te) && te.Code == 403 {
		return true
	}
	return false
}
