// Package models defines the domain entities for the contest bot.
package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ReferralCodeLength is the length of generated referral codes.
const ReferralCodeLength = 8

// ReferralPayloadPrefix prefixes the referral code in a /start payload.
const ReferralPayloadPrefix = "ref_"

// ProofScreenshots is the number of images a vote proof must contain.
const ProofScreenshots = 3

// Regions lists the regions offered during registration.
var Regions = []string{
	"Tashkent city",
	"Tashkent region",
	"Andijan",
	"Bukhara",
	"Fergana",
	"Jizzakh",
	"Kashkadarya",
	"Khorezm",
	"Namangan",
	"Navoi",
	"Samarkand",
	"Surkhandarya",
	"Syrdarya",
	"Karakalpakstan",
}

// User represents a registered participant.
type User struct {
	ID                    int64
	Username              string
	FirstName             string
	LastName              string
	Phone                 string
	Region                string
	Language              string
	ReferralCode          string
	ReferredBy            *int64
	Balance               decimal.Decimal
	PendingBalance        decimal.Decimal
	TotalEarned           decimal.Decimal
	TotalWithdrawn        decimal.Decimal
	LastWithdrawalAccount string
	IsActive              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HistoryKind classifies a balance history entry.
type HistoryKind string

// Balance history kinds.
const (
	KindReferralBonus HistoryKind = "referral_bonus"
	KindVoteBonus     HistoryKind = "vote_bonus"
	KindPayment       HistoryKind = "payment"
	KindWithdrawal    HistoryKind = "withdrawal"
)

// HistoryStatus is the lifecycle state of a balance history entry.
type HistoryStatus string

// Balance history statuses.
const (
	HistoryPending  HistoryStatus = "pending"
	HistoryApproved HistoryStatus = "approved"
	HistoryRejected HistoryStatus = "rejected"
)

// BalanceHistoryEntry is an append-only ledger row.
type BalanceHistoryEntry struct {
	ID          int64
	UserID      int64
	Amount      decimal.Decimal
	Kind        HistoryKind
	Description string
	Status      HistoryStatus
	ReferenceID *int64
	CreatedAt   time.Time
}

// Season is a voting period.
type Season struct {
	ID              int
	Name            string
	StartDate       time.Time
	EndDate         time.Time
	MaxVotesPerUser int
	IsActive        bool
	CreatedAt       time.Time
}

// IsCurrent reports whether the season is active and now falls within
// [StartDate, EndDate] by calendar day.
func (s *Season) IsCurrent(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(s.StartDate.Year(), s.StartDate.Month(), s.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(s.EndDate.Year(), s.EndDate.Month(), s.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(start) && !day.After(end)
}

// ProjectSource discriminates the two voteable project tables.
type ProjectSource string

// Project sources.
const (
	SourceSeason ProjectSource = "season"
	SourceAdhoc  ProjectSource = "adhoc"
)

// ProjectRef addresses a voteable project in either table.
type ProjectRef struct {
	Source ProjectSource
	ID     int
}

// String encodes the ref as s<id> or a<id>.
func (r ProjectRef) String() string {
	switch r.Source {
	case SourceSeason:
		return "s" + strconv.Itoa(r.ID)
	case SourceAdhoc:
		return "a" + strconv.Itoa(r.ID)
	default:
		return ""
	}
}

// ParseProjectRef decodes a ref produced by ProjectRef.String.
func ParseProjectRef(s string) (ProjectRef, error) {
	if len(s) < 2 {
		return ProjectRef{}, fmt.Errorf("invalid project ref %q", s)
	}

	var source ProjectSource
	switch s[0] {
	case 's':
		source = SourceSeason
	case 'a':
		source = SourceAdhoc
	default:
		return ProjectRef{}, fmt.Errorf("invalid project source in %q", s)
	}

	id, err := strconv.Atoi(s[1:])
	if err != nil || id <= 0 {
		return ProjectRef{}, fmt.Errorf("invalid project id in %q", s)
	}

	return ProjectRef{Source: source, ID: id}, nil
}

// Project statuses.
const (
	ProjectStatusActive = "active"
)

// VoteableProject is a season-scoped Project or an ad-hoc ApprovedProject.
// Region, Budget and SeasonID are only meaningful for SourceSeason.
type VoteableProject struct {
	Ref       ProjectRef
	SeasonID  int
	Name      string
	Link      string
	Region    string
	Budget    decimal.Decimal
	Status    string
	CreatedAt time.Time
}

// Vote records one user's vote for a project in a season. SeasonID is 0
// when no season was current.
type Vote struct {
	ID        int
	UserID    int64
	Project   ProjectRef
	SeasonID  int
	CreatedAt time.Time
}

// SubmissionStatus is the admin decision state of a vote proof.
type SubmissionStatus string

// Vote submission statuses.
const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// VoteSubmission is the proof a user sent for a vote, awaiting admin review.
type VoteSubmission struct {
	ID          int
	UserID      int64
	Project     ProjectRef
	SeasonID    int
	Screenshots []string
	Status      SubmissionStatus
	DecidedBy   *int64
	DecidedAt   *time.Time
	CreatedAt   time.Time
}

// WithdrawalMethod is the payout channel.
type WithdrawalMethod string

// Withdrawal methods.
const (
	MethodCard  WithdrawalMethod = "card"
	MethodPhone WithdrawalMethod = "phone"
)

// WithdrawalStatus is the state of a payout request.
type WithdrawalStatus string

// Withdrawal statuses.
const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

// WithdrawalRequest is a payout request with snapshotted amounts.
type WithdrawalRequest struct {
	ID             int
	UserID         int64
	Amount         decimal.Decimal
	Commission     decimal.Decimal
	NetAmount      decimal.Decimal
	Method         WithdrawalMethod
	AccountDetails string
	Status         WithdrawalStatus
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}

// Announcement is an admin-authored news item.
type Announcement struct {
	ID        int
	Title     string
	Content   string
	Language  string
	CreatedBy int64
	IsActive  bool
	CreatedAt time.Time
}
