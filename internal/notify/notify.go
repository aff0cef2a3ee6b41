// Package notify delivers a run summary to operators.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/profsweep/internal/logger"
	"github.com/aatumaykin/profsweep/internal/report"
)

// Telegram caps message text at 4096 characters.
const maxMessageRunes = 4096

const sendTimeout = 30 * time.Second

// Notifier is told about every finished run. runErr is the fatal error of an
// aborted run, nil otherwise.
type Notifier interface {
	Notify(ctx context.Context, s report.Summary, runErr error) error
}

// Nop drops notifications.
type Nop struct{}

func (Nop) Notify(context.Context, report.Summary, error) error { return nil }

// Sender is the part of telego.Bot the notifier needs.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Telegram posts the summary to one chat.
type Telegram struct {
	sender Sender
	chatID int64
	log    *logger.Logger
}

// NewTelegram creates a bot client for token.
func NewTelegram(token string, chatID int64, log *logger.Logger) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID, log), nil
}

func NewTelegramWithSender(s Sender, chatID int64, log *logger.Logger) *Telegram {
	if log == nil {
		log = logger.Nop()
	}
	return &Telegram{sender: s, chatID: chatID, log: log}
}

func (t *Telegram) Notify(ctx context.Context, s report.Summary, runErr error) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := t.sender.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: t.chatID},
		Text:      Format(s, runErr),
		ParseMode: telego.ModeHTML,
	})
	if err != nil {
		t.log.Error("failed to send telegram notification", err,
			logger.Field{Key: "chat_id", Value: t.chatID})
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// Format renders the summary as Telegram HTML.
func Format(s report.Summary, runErr error) string {
	mode := "apply"
	if s.DryRun {
		mode = "dry-run"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>profsweep</b> (%s)\n", mode)
	if runErr != nil {
		fmt.Fprintf(&b, "<b>aborted:</b> %s\n", html.EscapeString(runErr.Error()))
	}
	body := html.EscapeString(report.Text(s))

	// Leave room for the header and the pre tags.
	room := maxMessageRunes - utf8.RuneCountInString(b.String()) - len("<pre></pre>")
	if utf8.RuneCountInString(body) > room {
		body = truncate(body, room-1) + "…"
	}
	b.WriteString("<pre>")
	b.WriteString(body)
	b.WriteString("</pre>")
	return b.String()
}

// truncate cuts s to n runes without splitting an HTML entity.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if amp := strings.LastIndex(cut, "&"); amp >= 0 && !strings.Contains(cut[amp:], ";") {
		cut = cut[:amp]
	}
	return cut
}
