// Package callback encodes and decodes inline button payloads as a closed
// set of tagged actions.
package callback

import (
	"errors"
	"strconv"
	"strings"

	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// ErrMalformed is returned for unknown kinds and bad arguments.
var ErrMalformed = errors.New("callback: malformed payload")

// MaxLen is Telegram's limit on callback_data.
const MaxLen = 64

// Kind identifies a button action.
type Kind string

// Button kinds.
const (
	KindLanguage         Kind = "lang"
	KindRegion           Kind = "region"
	KindVote             Kind = "vote"
	KindVoteApprove      Kind = "vapp"
	KindVoteReject       Kind = "vrej"
	KindWithdrawMethod   Kind = "wmeth"
	KindWithdrawApprove  Kind = "wapp"
	KindWithdrawComplete Kind = "wdone"
	KindWithdrawReject   Kind = "wrej"
	KindEdit             Kind = "edit"
	KindDelete           Kind = "del"
	KindConfirm          Kind = "ok"
	KindDiscard          Kind = "no"
	KindCancel           Kind = "cancel"
)

// Action is a decoded button payload. Only the field matching Kind is set.
type Action struct {
	Kind     Kind
	Language string
	Region   int
	Project  models.ProjectRef
	ID       int
	Method   models.WithdrawalMethod
}

// Language selects a registration language.
func Language(code string) Action { return Action{Kind: KindLanguage, Language: code} }

// Region selects a region by its index in models.Regions.
func Region(i int) Action { return Action{Kind: KindRegion, Region: i} }

// Vote starts a vote for a project.
func Vote(ref models.ProjectRef) Action { return Action{Kind: KindVote, Project: ref} }

// Edit starts editing a project.
func Edit(ref models.ProjectRef) Action { return Action{Kind: KindEdit, Project: ref} }

// Delete starts deleting a project.
func Delete(ref models.ProjectRef) Action { return Action{Kind: KindDelete, Project: ref} }

// VoteApprove approves a vote submission.
func VoteApprove(id int) Action { return Action{Kind: KindVoteApprove, ID: id} }

// VoteReject rejects a vote submission.
func VoteReject(id int) Action { return Action{Kind: KindVoteReject, ID: id} }

// WithdrawMethod picks a payout method.
func WithdrawMethod(m models.WithdrawalMethod) Action {
	return Action{Kind: KindWithdrawMethod, Method: m}
}

// WithdrawApprove approves a withdrawal request.
func WithdrawApprove(id int) Action { return Action{Kind: KindWithdrawApprove, ID: id} }

// WithdrawComplete marks a withdrawal request paid.
func WithdrawComplete(id int) Action { return Action{Kind: KindWithdrawComplete, ID: id} }

// WithdrawReject rejects a withdrawal request.
func WithdrawReject(id int) Action { return Action{Kind: KindWithdrawReject, ID: id} }

// Confirm, Discard and Cancel carry no argument.
var (
	Confirm = Action{Kind: KindConfirm}
	Discard = Action{Kind: KindDiscard}
	Cancel  = Action{Kind: KindCancel}
)

// Encode renders the action as "<kind>:<arg>", or just "<kind>" for
// argument-less kinds.
func (a Action) Encode() string {
	var arg string
	switch a.Kind {
	case KindLanguage:
		arg = a.Language
	case KindRegion:
		arg = strconv.Itoa(a.Region)
	case KindVote, KindEdit, KindDelete:
		arg = a.Project.String()
	case KindVoteApprove, KindVoteReject, KindWithdrawApprove, KindWithdrawComplete, KindWithdrawReject:
		arg = strconv.Itoa(a.ID)
	case KindWithdrawMethod:
		arg = string(a.Method)
	default:
		return string(a.Kind)
	}
	return string(a.Kind) + ":" + arg
}

// Decode parses a payload produced by Encode.
func Decode(data string) (Action, error) {
	if data == "" || len(data) > MaxLen {
		return Action{}, ErrMalformed
	}
	kindStr, arg, hasArg := strings.Cut(data, ":")
	kind := Kind(kindStr)

	switch kind {
	case KindConfirm, KindDiscard, KindCancel:
		if hasArg {
			return Action{}, ErrMalformed
		}
		return Action{Kind: kind}, nil
	}

	if !hasArg || arg == "" {
		return Action{}, ErrMalformed
	}

	switch kind {
	case KindLanguage:
		if len(arg) > 8 {
			return Action{}, ErrMalformed
		}
		return Language(arg), nil
	case KindRegion:
		i, err := strconv.Atoi(arg)
		if err != nil || i < 0 || i >= len(models.Regions) {
			return Action{}, ErrMalformed
		}
		return Region(i), nil
	case KindVote, KindEdit, KindDelete:
		ref, err := models.ParseProjectRef(arg)
		if err != nil {
			return Action{}, ErrMalformed
		}
		return Action{Kind: kind, Project: ref}, nil
	case KindVoteApprove, KindVoteReject, KindWithdrawApprove, KindWithdrawComplete, KindWithdrawReject:
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return Action{}, ErrMalformed
		}
		return Action{Kind: kind, ID: id}, nil
	case KindWithdrawMethod:
		switch m := models.WithdrawalMethod(arg); m {
		case models.MethodCard, models.MethodPhone:
			return WithdrawMethod(m), nil
		}
	}
	return Action{}, ErrMalformed
}
