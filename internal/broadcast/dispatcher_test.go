package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	"pgregory.net/rapid"
)

func init() {
	logger.InitHashSaltForTesting("broadcast-test-salt-0123456789abcdef")
}

type fakeSender struct {
	errs     map[int64]error
	messages map[int64][]string
	captions map[int64]string
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		errs:     make(map[int64]error),
		messages: make(map[int64][]string),
		captions: make(map[int64]string),
	}
}

func (f *fakeSender) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	id := p.ChatID.(int64)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	f.messages[id] = append(f.messages[id], p.Text)
	return &models.Message{ID: 1}, nil
}

func (f *fakeSender) SendPhoto(_ context.Context, p *bot.SendPhotoParams) (*models.Message, error) {
	id := p.ChatID.(int64)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	f.captions[id] = p.Caption
	return &models.Message{ID: 1}, nil
}

func TestBroadcast_ClassifiesOutcomes(t *testing.T) {
	sender := newFakeSender()
	sender.errs[2] = fmt.Errorf("%w, Forbidden: bot was blocked by the user", bot.ErrorForbidden)
	d := NewDispatcher(0)

	res, err := d.Broadcast(context.Background(), sender, Payload{Text: "hello"}, []int64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 2, res.Sent)
	require.Equal(t, 0, res.Failed)
	require.Equal(t, 1, res.Blocked)
	require.Equal(t, []int64{2}, res.BlockedIDs)
	require.Equal(t, []string{"hello"}, sender.messages[3])
}

func TestBroadcast_FailureDoesNotAbort(t *testing.T) {
	sender := newFakeSender()
	sender.errs[1] = errors.New("connection reset")
	d := NewDispatcher(0)

	res, err := d.Broadcast(context.Background(), sender, Payload{Text: "x"}, []int64{1, 2})
	require.NoError(t, err)
	require.Equal(t, Result{Sent: 1, Failed: 1}, res)
}

func TestBroadcast_Photo(t *testing.T) {
	sender := newFakeSender()
	d := NewDispatcher(0)

	long := strings.Repeat("я", MaxCaptionLength+100)
	res, err := d.Broadcast(context.Background(), sender, Payload{Text: long, PhotoFileID: "file-1"}, []int64{7})
	require.NoError(t, err)
	require.Equal(t, 1, res.Sent)
	require.Equal(t, MaxCaptionLength, utf16Units(sender.captions[7]))
}

func TestBroadcast_ChunksLongText(t *testing.T) {
	sender := newFakeSender()
	d := NewDispatcher(0)

	text := strings.Repeat("a", MaxTextLength) + strings.Repeat("b", 10)
	_, err := d.Broadcast(context.Background(), sender, Payload{Text: text}, []int64{9})
	require.NoError(t, err)
	require.Len(t, sender.messages[9], 2)
	require.Equal(t, text, strings.Join(sender.messages[9], ""))
}

func TestBroadcast_StopsOnCancel(t *testing.T) {
	sender := newFakeSender()
	d := NewDispatcher(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Broadcast(ctx, sender, Payload{Text: "x"}, []int64{1, 2})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, res.Sent)
}

func TestChunk_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[a-zа-я😀\n ]{0,300}`).Draw(t, "s")
		limit := rapid.IntRange(2, 50).Draw(t, "limit")

		chunks := Chunk(s, limit)
		if strings.Join(chunks, "") != s {
			t.Fatalf("chunks do not reassemble %q", s)
		}
		for _, c := range chunks {
			if utf16Units(c) > limit {
				t.Fatalf("chunk %q longer than %d", c, limit)
			}
		}
	})
}

func utf16Units(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "abcd…", Truncate("abcdefgh", 5))

	t.Run("emoji count as two units", func(t *testing.T) {
		require.Equal(t, "😀😀", Truncate("😀😀", 4))
		require.Equal(t, "😀…", Truncate("😀😀😀", 4))

		long := strings.Repeat("😀", 600)
		cut := Truncate(long, MaxCaptionLength)
		require.LessOrEqual(t, utf16Units(cut), MaxCaptionLength)
		require.Equal(t, strings.Repeat("😀", 511)+"…", cut)
	})
}

func TestChunk_Emoji(t *testing.T) {
	text := strings.Repeat("😀", MaxTextLength)
	chunks := Chunk(text, MaxTextLength)

	require.Len(t, chunks, 2)
	require.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		require.Equal(t, MaxTextLength, utf16Units(c))
	}

	t.Run("never splits a surrogate pair", func(t *testing.T) {
		chunks := Chunk("a😀b", 2)
		require.Equal(t, []string{"a", "😀", "b"}, chunks)
	})
}
