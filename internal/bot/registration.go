package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
)

// referralCodeAttempts bounds retries when a generated code collides.
const referralCodeAttempts = 5

// newReferralCode returns an uppercase hex code of ReferralCodeLength chars.
func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:appmodels.ReferralCodeLength]
}

// referralCodeFromPayload extracts the code from a "ref_<code>" start
// payload. Anything else yields "".
func referralCodeFromPayload(payload string) string {
	code, ok := strings.CutPrefix(strings.TrimSpace(payload), appmodels.ReferralPayloadPrefix)
	if !ok {
		return ""
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != appmodels.ReferralCodeLength {
		return ""
	}
	return code
}

// register creates user and, when code belongs to another user, credits
// the referral bonus to both parties. Everything happens in one transaction.
// It returns the referrer, or nil when the code was empty or unknown.
func (b *Bot) register(ctx context.Context, user *appmodels.User, code string) (*appmodels.User, error) {
	var referrer *appmodels.User
	err := database.WithTx(ctx, b.db, func(tx pgx.Tx) error {
		referrer = nil
		users := repository.NewUserRepository(tx)

		if code != "" {
			r, err := users.GetByReferralCode(ctx, code)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				logger.Log.Info().
					Str("user_hash", logger.HashUserID(user.ID)).
					Msg("Unknown referral code ignored")
			case err != nil:
				return err
			case r.ID != user.ID:
				referrer = r
				user.ReferredBy = &r.ID
			}
		}

		if err := createWithReferralCode(ctx, tx, user); err != nil {
			return err
		}
		if referrer == nil {
			return nil
		}

		bonus := b.cfg.ReferralBonus
		if err := b.ledger.CreditTx(ctx, tx, referrer.ID, bonus, appmodels.KindReferralBonus,
			fmt.Sprintf("referral: invited user %s", logger.HashUserID(user.ID))); err != nil {
			return err
		}
		return b.ledger.CreditTx(ctx, tx, user.ID, bonus, appmodels.KindReferralBonus,
			"referral: joined with code "+code)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return referrer, nil
}

// createWithReferralCode inserts user under a fresh referral code, retrying
// in a savepoint when the code is already taken.
func createWithReferralCode(ctx context.Context, tx pgx.Tx, user *appmodels.User) error {
	for attempt := 1; ; attempt++ {
		user.ReferralCode = newReferralCode()
		err := database.WithTx(ctx, tx, func(sp pgx.Tx) error {
			return repository.NewUserRepository(sp).Create(ctx, user)
		})
		if err == nil || !database.IsUniqueViolation(err) || attempt == referralCodeAttempts {
			return err
		}
		logger.Log.Debug().Int("attempt", attempt).Msg("Referral code collision, retrying")
	}
}

// normalizePhone strips formatting from a phone number and returns it as
// "+<digits>", or "" when it does not look like a phone number.
func normalizePhone(raw string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '+':
		default:
			return ""
		}
	}
	digits := sb.String()
	if len(digits) < 9 || len(digits) > 15 {
		return ""
	}
	return "+" + digits
}

// matchRegion resolves a typed region name case-insensitively.
func matchRegion(text string) (int, bool) {
	text = strings.TrimSpace(text)
	for i, region := range appmodels.Regions {
		if strings.EqualFold(region, text) {
			return i, true
		}
	}
	return 0, false
}
