package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/callback"
	"gitlab.com/yelinaung/contest-bot/internal/catalog"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
	"gitlab.com/yelinaung/contest-bot/internal/session"
	"gitlab.com/yelinaung/contest-bot/internal/votes"
)

// currentSeason returns the season id and vote cap in effect now. Without a
// current season votes fall into season 0 under the configured cap.
func (b *Bot) currentSeason(ctx context.Context) (seasonID, maxVotes int, err error) {
	season, err := b.catalog.CurrentSeason(ctx, b.now())
	if err != nil {
		return 0, 0, err
	}
	if season == nil {
		return 0, b.cfg.MaxVotesPerSeason, nil
	}
	return season.ID, season.MaxVotesPerUser, nil
}

// handleVote handles the /vote command.
func (b *Bot) handleVote(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleVoteCore(ctx, tgBot, update)
}

// handleVoteCore is the testable implementation of handleVote.
func (b *Bot) handleVoteCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := b.loadUser(ctx, tg, update)
	if !ok {
		return
	}

	seasonID, maxVotes, err := b.currentSeason(ctx)
	if err != nil {
		b.fail(ctx, tg, user.ID, chatID, "current season", err)
		return
	}

	used, err := b.votes.CountVotes(ctx, user.ID, seasonID)
	if err != nil {
		b.fail(ctx, tg, user.ID, chatID, "count votes", err)
		return
	}
	if used >= maxVotes {
		b.sendWithMarkup(ctx, tg, chatID,
			fmt.Sprintf("🗳 You have used all %d votes for this season.", maxVotes), mainMenuKeyboard())
		return
	}

	projects, err := b.catalog.ListProjects(ctx, seasonID)
	if err != nil {
		b.fail(ctx, tg, user.ID, chatID, "list projects", err)
		return
	}
	if len(projects) == 0 {
		b.sendWithMarkup(ctx, tg, chatID, "🗳 There are no projects to vote for right now.", mainMenuKeyboard())
		return
	}

	b.sendWithMarkup(ctx, tg, chatID,
		fmt.Sprintf("🗳 <b>Choose a project</b>\n\nVotes used: %d of %d. Each approved vote earns %s.",
			used, maxVotes, formatMoney(b.cfg.VoteBonus)),
		projectKeyboard(projects, callback.Vote))
}

// onVote starts the proof flow for the chosen project.
func (b *Bot) onVote(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, a callback.Action) string {
	userID := q.From.ID

	if exists, err := b.userRepo.Exists(ctx, userID); err != nil {
		b.fail(ctx, tg, userID, userID, "vote lookup", err)
		return ""
	} else if !exists {
		return "Please send /start to register first."
	}

	seasonID, maxVotes, err := b.currentSeason(ctx)
	if err != nil {
		b.fail(ctx, tg, userID, userID, "current season", err)
		return ""
	}

	project, err := b.catalog.GetProject(ctx, a.Project)
	if errors.Is(err, catalog.ErrProjectNotFound) ||
		(err == nil && project.Ref.Source == appmodels.SourceSeason && project.SeasonID != seasonID) {
		b.sendWithMarkup(ctx, tg, userID, "⚠️ That project is no longer available.", mainMenuKeyboard())
		return ""
	}
	if err != nil {
		b.fail(ctx, tg, userID, userID, "get project", err)
		return ""
	}

	err = b.votes.CheckEligible(ctx, userID, project.Ref, seasonID, maxVotes)
	switch {
	case errors.Is(err, votes.ErrAlreadyVoted):
		return "You already voted for this project."
	case errors.Is(err, votes.ErrVoteLimitReached):
		return "You have no votes left this season."
	case err != nil:
		b.fail(ctx, tg, userID, userID, "check vote", err)
		return ""
	}

	b.sessions.Start(userID, session.FlowVote, session.StateScreenshotRequest, session.Data{
		Project:  project.Ref,
		SeasonID: seasonID,
		MaxVotes: maxVotes,
		Name:     project.Name,
		Link:     project.Link,
	})

	b.sendWithMarkup(ctx, tg, userID, fmt.Sprintf(`🗳 <b>%s</b>

1. Open %s and vote.
2. Send %d screenshots proving your vote, one at a time.

Send screenshot 1 of %d.`,
		escapeHTML(project.Name), escapeHTML(project.Link), appmodels.ProofScreenshots, appmodels.ProofScreenshots),
		cancelKeyboard())
	return ""
}

// proofStates maps the number of images collected to the next state.
var proofStates = map[int]session.State{
	1: session.StateScreenshotReceived,
	2: session.StateScreenshotVerification,
}

// handleProofInput collects one screenshot per message. Anything that is
// not a photo re-prompts without touching the collected images.
func (b *Bot) handleProofInput(ctx context.Context, tg TelegramAPI, msg *models.Message, sess *session.Session) {
	have := len(sess.Data.Screenshots)
	if len(msg.Photo) == 0 {
		b.sendWithMarkup(ctx, tg, msg.Chat.ID,
			fmt.Sprintf("🖼 Please send a screenshot as a photo (%d of %d).", have+1, appmodels.ProofScreenshots),
			cancelKeyboard())
		return
	}

	sess.Data.Screenshots = append(sess.Data.Screenshots, msg.Photo[len(msg.Photo)-1].FileID)
	have++

	if have < appmodels.ProofScreenshots {
		sess.State = proofStates[have]
		if !b.sessions.Save(sess) {
			return
		}
		b.sendWithMarkup(ctx, tg, msg.Chat.ID,
			fmt.Sprintf("✅ Screenshot %d received. Send screenshot %d of %d.", have, have+1, appmodels.ProofScreenshots),
			cancelKeyboard())
		return
	}

	b.submitProof(ctx, tg, msg.From, msg.Chat.ID, sess)
}

// submitProof registers the vote with its proof and forwards it to admins.
func (b *Bot) submitProof(ctx context.Context, tg TelegramAPI, from *models.User, chatID int64, sess *session.Session) {
	b.sessions.Delete(from.ID)

	sub, err := b.votes.Submit(ctx, from.ID, sess.Data.Project, sess.Data.SeasonID, sess.Data.MaxVotes, sess.Data.Screenshots)
	switch {
	case errors.Is(err, votes.ErrAlreadyVoted):
		b.sendWithMarkup(ctx, tg, chatID, "⚠️ You already voted for this project.", mainMenuKeyboard())
		return
	case errors.Is(err, votes.ErrVoteLimitReached):
		b.sendWithMarkup(ctx, tg, chatID, "⚠️ You have no votes left this season.", mainMenuKeyboard())
		return
	case errors.Is(err, votes.ErrProjectNotFound):
		b.sendWithMarkup(ctx, tg, chatID, "⚠️ That project is no longer available.", mainMenuKeyboard())
		return
	case err != nil:
		b.fail(ctx, tg, from.ID, chatID, "submit vote", err)
		return
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(from.ID)).
		Int("submission_id", sub.ID).
		Str("project", sub.Project.String()).
		Msg("Vote proof submitted")

	b.sendWithMarkup(ctx, tg, chatID,
		fmt.Sprintf("✅ Thanks! Your proof was sent for review. You will receive %s once it is approved.",
			formatMoney(b.cfg.VoteBonus)),
		mainMenuKeyboard())

	b.notifyVoteProof(ctx, tg, from, sess.Data.Name, sub)
}

// notifyVoteProof posts the screenshots and a review message to the admin
// channel.
func (b *Bot) notifyVoteProof(ctx context.Context, tg TelegramAPI, from *models.User, projectName string, sub *appmodels.VoteSubmission) {
	summary := fmt.Sprintf("🗳 <b>Vote proof #%d</b>\n\nUser: %s (<code>%d</code>)\nProject: %s\nSeason: %d",
		sub.ID, escapeHTML(displayName(from)), from.ID, escapeHTML(projectName), sub.SeasonID)

	media := make([]models.InputMedia, 0, len(sub.Screenshots))
	for i, fileID := range sub.Screenshots {
		photo := &models.InputMediaPhoto{Media: fileID}
		if i == 0 {
			photo.Caption = summary
			photo.ParseMode = models.ParseModeHTML
		}
		media = append(media, photo)
	}

	if _, err := tg.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
		ChatID: b.cfg.AdminChannelID,
		Media:  media,
	}); err != nil {
		logger.Log.Error().Err(err).Int("submission_id", sub.ID).Msg("Failed to forward vote proof")
	}

	b.sendWithMarkup(ctx, tg, b.cfg.AdminChannelID, summary, voteReviewKeyboard(sub.ID))
}

// onVoteDecision approves or rejects a vote submission from the admin
// channel.
func (b *Bot) onVoteDecision(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, a callback.Action) string {
	approve := a.Kind == callback.KindVoteApprove

	var (
		sub *appmodels.VoteSubmission
		err error
	)
	if approve {
		sub, err = b.votes.Approve(ctx, a.ID, q.From.ID)
	} else {
		sub, err = b.votes.Reject(ctx, a.ID, q.From.ID)
	}
	switch {
	case errors.Is(err, votes.ErrAlreadyDecided):
		return "This submission was already decided."
	case errors.Is(err, votes.ErrSubmissionNotFound):
		return "Submission not found."
	case err != nil:
		logger.Log.Error().Err(err).Int("submission_id", a.ID).Msg("Failed to decide vote submission")
		return msgGenericFailure
	}

	logger.Log.Info().
		Int("submission_id", sub.ID).
		Str("status", string(sub.Status)).
		Str("admin_hash", logger.HashUserID(q.From.ID)).
		Msg("Vote submission decided")

	projectName := sub.Project.String()
	if p, err := b.catalog.GetProject(ctx, sub.Project); err == nil {
		projectName = p.Name
	}

	verdict := "✅ Approved"
	if !approve {
		verdict = "❌ Rejected"
	}
	if q.Message.Message != nil {
		b.editMessage(ctx, tg, q.Message.Message,
			fmt.Sprintf("%s\n\n<b>%s</b> by %s", escapeHTML(messageText(q.Message.Message)), verdict, escapeHTML(displayName(&q.From))),
			nil)
	}

	if approve {
		b.send(ctx, tg, sub.UserID, fmt.Sprintf("✅ Your vote for <b>%s</b> was approved! %s was added to your balance.",
			escapeHTML(projectName), formatMoney(b.cfg.VoteBonus)))
		return "Approved"
	}
	b.send(ctx, tg, sub.UserID, fmt.Sprintf("❌ Your vote proof for <b>%s</b> was rejected. You can vote for it again with /vote.",
		escapeHTML(projectName)))
	return "Rejected"
}

// messageText returns the text or caption of msg.
func messageText(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return strings.TrimSpace(msg.Caption)
}

// tallyLines renders vote counts one project per line.
func tallyLines(counts []repository.ProjectVoteCount) string {
	var sb strings.Builder
	for i, c := range counts {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, escapeHTML(c.Name), c.Votes)
	}
	return sb.String()
}
