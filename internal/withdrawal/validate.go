package withdrawal

import (
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

const (
	cardDigits  = 16
	phonePrefix = "+998"
	phoneLength = 13
)

// Quote returns the commission, floored to a whole unit, and the net payout
// for withdrawing amount at rate.
func Quote(amount, rate decimal.Decimal) (commission, net decimal.Decimal) {
	commission = amount.Mul(rate).Floor()
	return commission, amount.Sub(commission)
}

// NormalizeAccount trims whitespace and drops the spaces users type between
// card digit groups.
func NormalizeAccount(method models.WithdrawalMethod, account string) string {
	account = strings.TrimSpace(account)
	if method == models.MethodCard {
		account = strings.ReplaceAll(account, " ", "")
	}
	return account
}

// ValidateAccount checks the account format for the payout method. Cards are
// exactly 16 digits; phones are +998 followed by 9 digits.
func ValidateAccount(method models.WithdrawalMethod, account string) error {
	switch method {
	case models.MethodCard:
		if len(account) != cardDigits || !allDigits(account) {
			return ErrInvalidAccount
		}
	case models.MethodPhone:
		if len(account) != phoneLength || !strings.HasPrefix(account, phonePrefix) ||
			!allDigits(account[len(phonePrefix):]) {
			return ErrInvalidAccount
		}
	default:
		return ErrInvalidMethod
	}
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
