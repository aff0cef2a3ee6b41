package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/report"
)

type fakeSender struct {
	sent []*telego.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.sent = append(f.sent, params)
	if f.err != nil {
		return nil, f.err
	}
	return &telego.Message{}, nil
}

func summary() report.Summary {
	return report.Summary{
		DryRun:       true,
		InactiveDays: 90,
		HostsQueried: 2,
		Eligible:     1,
		Plans: []profile.HostPlan{
			{Computer: "WS01", SecurityIDs: []string{"S-1"}, Labels: []string{`CORP\alice`}},
		},
	}
}

func TestTelegram_Notify(t *testing.T) {
	s := &fakeSender{}
	n := NewTelegramWithSender(s, 4242, nil)

	require.NoError(t, n.Notify(context.Background(), summary(), nil))
	require.Len(t, s.sent, 1)
	msg := s.sent[0]
	assert.Equal(t, int64(4242), msg.ChatID.ID)
	assert.Equal(t, telego.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "(dry-run)")
	assert.Contains(t, msg.Text, "Total Hosts Queried: 2")
	assert.Contains(t, msg.Text, "&#34;WS01&#34;")
}

func TestTelegram_NotifyError(t *testing.T) {
	s := &fakeSender{err: errors.New("Forbidden: bot was blocked by the user")}
	n := NewTelegramWithSender(s, 1, nil)

	err := n.Notify(context.Background(), summary(), nil)
	assert.ErrorContains(t, err, "blocked")
}

func TestFormat_Aborted(t *testing.T) {
	out := Format(report.Summary{HostsQueried: 5}, errors.New("no reachable hosts <5/5>"))
	assert.Contains(t, out, "(apply)")
	assert.Contains(t, out, "<b>aborted:</b> no reachable hosts &lt;5/5&gt;")
}

func TestFormat_Truncates(t *testing.T) {
	s := summary()
	for i := 0; i < 400; i++ {
		s.Plans = append(s.Plans, profile.HostPlan{
			Computer:    "WORKSTATION-WITH-A-LONG-NAME",
			SecurityIDs: []string{"S-1"},
			Labels:      []string{`CORP\someone.with.a.long.name`},
		})
	}

	out := Format(s, nil)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), maxMessageRunes)
	assert.True(t, strings.HasSuffix(out, "…</pre>"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "x ", truncate("x &amp; y", 4))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), report.Summary{}, nil))
}
