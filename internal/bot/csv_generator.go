package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// GenerateWithdrawalsCSV generates a CSV file from a list of withdrawal requests.
func GenerateWithdrawalsCSV(requests []models.WithdrawalRequest) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	// Write header
	header := []string{"ID", "Created", "User ID", "Amount", "Commission", "Net", "Method", "Account", "Status"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range requests {
		r := &requests[i]
		row := []string{
			strconv.Itoa(r.ID),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(r.UserID, 10),
			r.Amount.StringFixed(0),
			r.Commission.StringFixed(0),
			r.NetAmount.StringFixed(0),
			string(r.Method),
			r.AccountDetails,
			string(r.Status),
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// generateExportFilename creates filename like "withdrawals_2026-10-16.csv".
func generateExportFilename(now time.Time) string {
	return fmt.Sprintf("withdrawals_%s.csv", now.Format("2006-01-02"))
}
