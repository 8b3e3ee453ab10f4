package bot

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

func TestGenerateWithdrawalsCSV(t *testing.T) {
	t.Parallel()

	t.Run("generates CSV with header and rows", func(t *testing.T) {
		t.Parallel()
		requests := []models.WithdrawalRequest{
			{
				ID:             1,
				UserID:         1001,
				Amount:         decimal.NewFromInt(50000),
				Commission:     decimal.NewFromInt(1000),
				NetAmount:      decimal.NewFromInt(49000),
				Method:         models.MethodCard,
				AccountDetails: "8600123456789012",
				Status:         models.WithdrawalPending,
				CreatedAt:      time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
			},
			{
				ID:             2,
				UserID:         1002,
				Amount:         decimal.RequireFromString("20000.00"),
				Commission:     decimal.NewFromInt(400),
				NetAmount:      decimal.NewFromInt(19600),
				Method:         models.MethodPhone,
				AccountDetails: "+998901234567",
				Status:         models.WithdrawalApproved,
				CreatedAt:      time.Date(2026, 1, 16, 14, 15, 0, 0, time.UTC),
			},
		}

		csvData, err := GenerateWithdrawalsCSV(requests)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(csvData))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, []string{"ID", "Created", "User ID", "Amount", "Commission", "Net", "Method", "Account", "Status"}, records[0])
		require.Equal(t, []string{"1", "2026-01-15 10:30:00", "1001", "50000", "1000", "49000", "card", "8600123456789012", "pending"}, records[1])
		require.Equal(t, "20000", records[2][3])
		require.Equal(t, "+998901234567", records[2][7])
		require.Equal(t, "approved", records[2][8])
	})

	t.Run("handles empty list", func(t *testing.T) {
		t.Parallel()
		csvData, err := GenerateWithdrawalsCSV(nil)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(csvData))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 1)
	})
}

func TestGenerateExportFilename(t *testing.T) {
	t.Parallel()
	require.Equal(t, "withdrawals_2026-10-16.csv", generateExportFilename(time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)))
}
