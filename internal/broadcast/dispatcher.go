// Package broadcast fans one message out to many recipients, isolating
// per-recipient failures.
package broadcast

import (
	"context"
	"errors"
	"time"
	"unicode/utf16"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Telegram payload limits, in UTF-16 code units. Characters outside the
// Basic Multilingual Plane, such as most emoji, count as two.
const (
	MaxTextLength    = 4096
	MaxCaptionLength = 1024
)

const instrumentationName = "gitlab.com/yelinaung/contest-bot/internal/broadcast"

// Sender is the subset of the Telegram API a broadcast needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// Payload is the message to fan out. PhotoFileID, if set, sends a photo
// with Text as its caption.
type Payload struct {
	Text        string
	PhotoFileID string
}

// Result counts the outcome of every recipient. Each recipient lands in
// exactly one of Sent, Failed or Blocked.
type Result struct {
	Sent       int
	Failed     int
	Blocked    int
	BlockedIDs []int64
}

// Dispatcher sends a payload to recipients one at a time with a fixed delay
// between sends.
type Dispatcher struct {
	delay    time.Duration
	outcomes metric.Int64Counter
}

// NewDispatcher creates a Dispatcher that waits delay between recipients.
func NewDispatcher(delay time.Duration) *Dispatcher {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"broadcast.deliveries",
		metric.WithDescription("Broadcast deliveries by outcome"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create broadcast counter")
	}
	return &Dispatcher{delay: delay, outcomes: counter}
}

// Broadcast sends payload to each recipient through sender. A failed
// recipient never aborts the batch; cancellation of ctx does, returning the
// partial result and ctx.Err().
func (d *Dispatcher) Broadcast(ctx context.Context, sender Sender, payload Payload, recipients []int64) (Result, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "broadcast.Broadcast")
	defer span.End()
	span.SetAttributes(attribute.Int("broadcast.recipients", len(recipients)))

	var res Result
	for i, chatID := range recipients {
		if i > 0 && d.delay > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(d.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		err := send(ctx, sender, chatID, payload)
		switch {
		case err == nil:
			res.Sent++
			d.count(ctx, "sent")
		case errors.Is(err, bot.ErrorForbidden):
			res.Blocked++
			res.BlockedIDs = append(res.BlockedIDs, chatID)
			d.count(ctx, "blocked")
		default:
			res.Failed++
			d.count(ctx, "failed")
			logger.Log.Warn().Err(err).
				Str("user_hash", logger.HashChatID(chatID)).
				Msg("Broadcast delivery failed")
		}
	}

	span.SetAttributes(
		attribute.Int("broadcast.sent", res.Sent),
		attribute.Int("broadcast.failed", res.Failed),
		attribute.Int("broadcast.blocked", res.Blocked),
	)
	return res, nil
}

func send(ctx context.Context, sender Sender, chatID int64, payload Payload) error {
	if payload.PhotoFileID != "" {
		_, err := sender.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileString{Data: payload.PhotoFileID},
			Caption: Truncate(payload.Text, MaxCaptionLength),
		})
		return err
	}

	for _, chunk := range Chunk(payload.Text, MaxTextLength) {
		if _, err := sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) count(ctx context.Context, outcome string) {
	if d.outcomes == nil {
		return
	}
	d.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Truncate cuts s to at most limit UTF-16 code units, ending with an
// ellipsis when it had to cut.
func Truncate(s string, limit int) string {
	if utf16Len(s) <= limit {
		return s
	}
	n := 0
	for i, r := range s {
		n += utf16.RuneLen(r)
		if n > limit-1 {
			return s[:i] + "…"
		}
	}
	return s
}

// Chunk splits s into pieces of at most limit UTF-16 code units, preferring
// to break after a newline in the second half of a piece. A piece always
// holds at least one character.
func Chunk(s string, limit int) []string {
	if utf16Len(s) <= limit {
		return []string{s}
	}

	runes := []rune(s)
	var chunks []string
	for len(runes) > 0 {
		end, units := 0, 0
		for end < len(runes) {
			u := utf16.RuneLen(runes[end])
			if units+u > limit {
				break
			}
			units += u
			end++
		}
		if end == len(runes) {
			chunks = append(chunks, string(runes))
			break
		}
		if end == 0 {
			end = 1
		}

		cut := end
		for i := end - 1; i >= end/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
