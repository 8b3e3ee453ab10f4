package withdrawal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"pgregory.net/rapid"
)

func TestQuote(t *testing.T) {
	t.Parallel()

	commission, net := Quote(decimal.NewFromInt(50000), decimal.RequireFromString("0.02"))
	require.True(t, decimal.NewFromInt(1000).Equal(commission))
	require.True(t, decimal.NewFromInt(49000).Equal(net))

	t.Run("commission is floored", func(t *testing.T) {
		t.Parallel()
		commission, net := Quote(decimal.NewFromInt(20049), decimal.RequireFromString("0.02"))
		require.True(t, decimal.NewFromInt(400).Equal(commission))
		require.True(t, decimal.NewFromInt(19649).Equal(net))
	})
}

func TestQuote_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := decimal.NewFromInt(rapid.Int64Range(0, 1_000_000_000).Draw(t, "amount"))
		rate := decimal.New(rapid.Int64Range(0, 999).Draw(t, "permille"), -3)

		commission, net := Quote(amount, rate)
		if !commission.Add(net).Equal(amount) {
			t.Fatalf("commission %s + net %s != amount %s", commission, net, amount)
		}
		if commission.IsNegative() || commission.GreaterThan(amount.Mul(rate)) {
			t.Fatalf("commission %s outside [0, %s]", commission, amount.Mul(rate))
		}
		if !commission.Equal(commission.Floor()) {
			t.Fatalf("commission %s is not whole", commission)
		}
	})
}

func TestValidateAccount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  models.WithdrawalMethod
		account string
		wantErr error
	}{
		{"16 digit card", models.MethodCard, "8600123456789012", nil},
		{"15 digit card", models.MethodCard, "860012345678901", ErrInvalidAccount},
		{"card with letters", models.MethodCard, "86001234567890ab", ErrInvalidAccount},
		{"17 digit card", models.MethodCard, "86001234567890123", ErrInvalidAccount},
		{"valid phone", models.MethodPhone, "+998901234567", nil},
		{"phone missing plus", models.MethodPhone, "998901234567", ErrInvalidAccount},
		{"short phone", models.MethodPhone, "+99890123456", ErrInvalidAccount},
		{"phone with other prefix", models.MethodPhone, "+799012345678", ErrInvalidAccount},
		{"phone with letters", models.MethodPhone, "+99890123456a", ErrInvalidAccount},
		{"unknown method", models.WithdrawalMethod("paypal"), "x", ErrInvalidMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAccount(tt.method, tt.account)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeAccount(t *testing.T) {
	t.Parallel()
	require.Equal(t, "8600123456789012", NormalizeAccount(models.MethodCard, " 8600 1234 5678 9012 "))
	require.Equal(t, "+998901234567", NormalizeAccount(models.MethodPhone, " +998901234567\n"))
}

func TestValidateAccount_CardProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		card := rapid.StringMatching(`[0-9]{16}`).Draw(t, "card")
		if err := ValidateAccount(models.MethodCard, card); err != nil {
			t.Fatalf("ValidateAccount(%q): %v", card, err)
		}
		short := card[:rapid.IntRange(0, 15).Draw(t, "n")]
		if err := ValidateAccount(models.MethodCard, short); err == nil {
			t.Fatalf("ValidateAccount(%q) accepted a short card", short)
		}
	})
}
