package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/broadcast"
	"gitlab.com/yelinaung/contest-bot/internal/callback"
	"gitlab.com/yelinaung/contest-bot/internal/catalog"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/session"
)

const dateLayout = "2006-01-02"

// requireAdmin replies with a refusal and returns false for non-admins.
func (b *Bot) requireAdmin(ctx context.Context, tg TelegramAPI, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	if !b.isAdmin(update.Message.From) {
		b.send(ctx, tg, update.Message.Chat.ID, "⛔ This command is only available to admins.")
		return false
	}
	return true
}

// handleAddProject handles the /addproject command.
func (b *Bot) handleAddProject(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddProjectCore(ctx, tgBot, update)
}

// handleAddProjectCore is the testable implementation of handleAddProject.
func (b *Bot) handleAddProjectCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	b.sessions.Start(update.Message.From.ID, session.FlowAddProject, session.StateCollectName, session.Data{})
	b.sendWithMarkup(ctx, tg, update.Message.Chat.ID, "🆕 Send the project name.", cancelKeyboard())
}

// handleAddSeasonProject handles the /addseasonproject command.
func (b *Bot) handleAddSeasonProject(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddSeasonProjectCore(ctx, tgBot, update)
}

// handleAddSeasonProjectCore is the testable implementation of
// handleAddSeasonProject.
func (b *Bot) handleAddSeasonProjectCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	chatID := update.Message.Chat.ID

	season, err := b.catalog.CurrentSeason(ctx, b.now())
	if err != nil {
		b.fail(ctx, tg, update.Message.From.ID, chatID, "current season", err)
		return
	}
	if season == nil {
		b.send(ctx, tg, chatID, "⚠️ There is no current season. Create one with /newseason first.")
		return
	}

	b.sessions.Start(update.Message.From.ID, session.FlowAddSeasonProject, session.StateCollectName,
		session.Data{SeasonID: season.ID})
	b.sendWithMarkup(ctx, tg, chatID,
		fmt.Sprintf("🆕 New project for season <b>%s</b>. Send the project name.", escapeHTML(season.Name)),
		cancelKeyboard())
}

// handleEditProject handles the /editproject command.
func (b *Bot) handleEditProject(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditProjectCore(ctx, tgBot, update)
}

// handleEditProjectCore is the testable implementation of handleEditProject.
func (b *Bot) handleEditProjectCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	b.startProjectPicker(ctx, tg, update, session.FlowEditProject, "✏️ Choose a project to edit:", callback.Edit)
}

// handleDeleteProject handles the /deleteproject command.
func (b *Bot) handleDeleteProject(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteProjectCore(ctx, tgBot, update)
}

// handleDeleteProjectCore is the testable implementation of handleDeleteProject.
func (b *Bot) handleDeleteProjectCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	b.startProjectPicker(ctx, tg, update, session.FlowDeleteProject, "🗑 Choose a project to delete:", callback.Delete)
}

// startProjectPicker lists the voteable projects as buttons for flow.
func (b *Bot) startProjectPicker(
	ctx context.Context,
	tg TelegramAPI,
	update *models.Update,
	flow session.Flow,
	prompt string,
	action func(appmodels.ProjectRef) callback.Action,
) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	adminID, chatID := update.Message.From.ID, update.Message.Chat.ID

	seasonID, _, err := b.currentSeason(ctx)
	if err != nil {
		b.fail(ctx, tg, adminID, chatID, "current season", err)
		return
	}
	projects, err := b.catalog.ListProjects(ctx, seasonID)
	if err != nil {
		b.fail(ctx, tg, adminID, chatID, "list projects", err)
		return
	}
	if len(projects) == 0 {
		b.send(ctx, tg, chatID, "There are no projects yet. Add one with /addproject.")
		return
	}

	b.sessions.Start(adminID, flow, session.StateChoosingProject, session.Data{})
	b.sendWithMarkup(ctx, tg, chatID, prompt, projectKeyboard(projects, action))
}

// onProjectChosen continues an edit or delete flow with the picked project.
func (b *Bot) onProjectChosen(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, a callback.Action) string {
	sess, ok := b.sessions.Get(q.From.ID)
	wantFlow := session.FlowEditProject
	if a.Kind == callback.KindDelete {
		wantFlow = session.FlowDeleteProject
	}
	if !ok || sess.Flow != wantFlow || sess.State != session.StateChoosingProject {
		return "This step has expired."
	}

	project, err := b.catalog.GetProject(ctx, a.Project)
	if errors.Is(err, catalog.ErrProjectNotFound) {
		b.sessions.Delete(q.From.ID)
		return "Project not found."
	}
	if err != nil {
		b.fail(ctx, tg, q.From.ID, q.From.ID, "get project", err)
		return ""
	}

	sess.Data.Project = project.Ref
	if wantFlow == session.FlowDeleteProject {
		sess.Data.Name, sess.Data.Link = project.Name, project.Link
		sess.State = session.StatePreview
		b.sessions.Save(sess)
		b.sendPreview(ctx, tg, q.From.ID, sess)
		return ""
	}

	sess.State = session.StateCollectName
	b.sessions.Save(sess)
	b.sendWithMarkup(ctx, tg, q.From.ID,
		fmt.Sprintf("✏️ Editing <b>%s</b>\n%s\n\nSend the new name.", escapeHTML(project.Name), escapeHTML(project.Link)),
		cancelKeyboard())
	return ""
}

// handleBroadcast handles the /broadcast command.
func (b *Bot) handleBroadcast(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBroadcastCore(ctx, tgBot, update)
}

// handleBroadcastCore is the testable implementation of handleBroadcast.
func (b *Bot) handleBroadcastCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	b.sessions.Start(update.Message.From.ID, session.FlowBroadcast, session.StateCollectContent, session.Data{})
	b.sendWithMarkup(ctx, tg, update.Message.Chat.ID,
		"📣 Send the message to broadcast: text, or a photo with a caption.", cancelKeyboard())
}

// handleAddNews handles the /addnews command.
func (b *Bot) handleAddNews(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddNewsCore(ctx, tgBot, update)
}

// handleAddNewsCore is the testable implementation of handleAddNews.
func (b *Bot) handleAddNewsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	b.sessions.Start(update.Message.From.ID, session.FlowNews, session.StateChoosingLanguage, session.Data{})
	b.sendWithMarkup(ctx, tg, update.Message.Chat.ID, "📰 Choose the language of the news:",
		languageKeyboard(b.cfg.SupportedLanguages))
}

// handleNewSeason handles the /newseason command.
func (b *Bot) handleNewSeason(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleNewSeasonCore(ctx, tgBot, update)
}

// handleNewSeasonCore is the testable implementation of handleNewSeason.
func (b *Bot) handleNewSeasonCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	chatID := update.Message.Chat.ID
	usage := "Usage: <code>/newseason &lt;name&gt; &lt;YYYY-MM-DD&gt; &lt;YYYY-MM-DD&gt; &lt;max votes&gt;</code>"

	season, err := parseSeasonArgs(extractCommandArgs(update.Message.Text, "/newseason"))
	if err != nil {
		b.send(ctx, tg, chatID, "⚠️ "+escapeHTML(err.Error())+"\n\n"+usage)
		return
	}

	err = b.catalog.CreateSeason(ctx, season)
	if errors.Is(err, catalog.ErrInvalidSeason) {
		b.send(ctx, tg, chatID, "⚠️ The end date must not be before the start date.\n\n"+usage)
		return
	}
	if err != nil {
		b.fail(ctx, tg, update.Message.From.ID, chatID, "create season", err)
		return
	}

	logger.Log.Info().Int("season_id", season.ID).Str("name", season.Name).Msg("Season created")
	b.send(ctx, tg, chatID, fmt.Sprintf("✅ Season <b>%s</b> (#%d) runs %s to %s with %d votes per user.",
		escapeHTML(season.Name), season.ID,
		season.StartDate.Format(dateLayout), season.EndDate.Format(dateLayout), season.MaxVotesPerUser))
}

// parseSeasonArgs parses "<name...> <start> <end> <max>" from the end, so
// the name may contain spaces.
func parseSeasonArgs(args string) (*appmodels.Season, error) {
	fields := strings.Fields(args)
	if len(fields) < 4 {
		return nil, errors.New("missing arguments")
	}
	n := len(fields)

	maxVotes, err := strconv.Atoi(fields[n-1])
	if err != nil || maxVotes <= 0 {
		return nil, fmt.Errorf("invalid max votes %q", fields[n-1])
	}
	start, err := time.Parse(dateLayout, fields[n-3])
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q", fields[n-3])
	}
	end, err := time.Parse(dateLayout, fields[n-2])
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q", fields[n-2])
	}

	return &appmodels.Season{
		Name:            strings.Join(fields[:n-3], " "),
		StartDate:       start,
		EndDate:         end,
		MaxVotesPerUser: maxVotes,
	}, nil
}

// validLink accepts absolute http(s) URLs.
func validLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// handleAuthoringInput collects the fields of an admin authoring flow.
// Nothing is written until the preview is approved.
func (b *Bot) handleAuthoringInput(ctx context.Context, tg TelegramAPI, msg *models.Message, sess *session.Session) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch sess.State {
	case session.StateCollectName:
		if text == "" {
			b.sendWithMarkup(ctx, tg, chatID, "⚠️ Please send the project name as text.", cancelKeyboard())
			return
		}
		sess.Data.Name = text
		sess.State = session.StateCollectLink
		b.sessions.Save(sess)
		b.sendWithMarkup(ctx, tg, chatID, "🔗 Send the project link (https://...).", cancelKeyboard())

	case session.StateCollectLink:
		if !validLink(text) {
			b.sendWithMarkup(ctx, tg, chatID, "⚠️ Please send a valid http(s) link.", cancelKeyboard())
			return
		}
		sess.Data.Link = text
		if sess.Flow == session.FlowAddSeasonProject {
			sess.State = session.StateCollectRegion
			b.sessions.Save(sess)
			b.sendWithMarkup(ctx, tg, chatID, "📍 Choose the project region:", regionKeyboard())
			return
		}
		sess.State = session.StatePreview
		b.sessions.Save(sess)
		b.sendPreview(ctx, tg, chatID, sess)

	case session.StateCollectRegion:
		i, ok := matchRegion(text)
		if !ok {
			b.sendWithMarkup(ctx, tg, chatID, "⚠️ Please pick a region from the list:", regionKeyboard())
			return
		}
		sess.Data.Region = appmodels.Regions[i]
		sess.State = session.StateCollectBudget
		b.sessions.Save(sess)
		b.sendWithMarkup(ctx, tg, chatID, "💵 Send the project budget in UZS, e.g. <code>150000000</code>.", cancelKeyboard())

	case session.StateCollectBudget:
		budget, err := decimal.NewFromString(strings.ReplaceAll(text, " ", ""))
		if err != nil || budget.IsNegative() {
			b.sendWithMarkup(ctx, tg, chatID, "⚠️ Please send the budget as a number.", cancelKeyboard())
			return
		}
		sess.Data.Budget = budget
		sess.State = session.StatePreview
		b.sessions.Save(sess)
		b.sendPreview(ctx, tg, chatID, sess)

	case session.StateCollectTitle:
		if text == "" {
			b.sendWithMarkup(ctx, tg, chatID, "⚠️ Please send the title as text.", cancelKeyboard())
			return
		}
		sess.Data.Title = text
		sess.State = session.StateCollectContent
		b.sessions.Save(sess)
		b.sendWithMarkup(ctx, tg, chatID, "📝 Send the news text.", cancelKeyboard())

	case session.StateCollectContent:
		if sess.Flow == session.FlowBroadcast && len(msg.Photo) > 0 {
			sess.Data.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
			text = strings.TrimSpace(msg.Caption)
		}
		if text == "" && sess.Data.PhotoFileID == "" {
			b.sendWithMarkup(ctx, tg, chatID, "⚠️ Please send text or a photo.", cancelKeyboard())
			return
		}
		sess.Data.Content = text
		sess.State = session.StatePreview
		b.sessions.Save(sess)
		b.sendPreview(ctx, tg, chatID, sess)

	default:
		b.send(ctx, tg, chatID, "Please use the buttons above, or /cancel.")
	}
}

// previewText renders what approving sess would publish.
func previewText(sess *session.Session) string {
	d := sess.Data
	switch sess.Flow {
	case session.FlowAddProject:
		return fmt.Sprintf("👀 <b>Preview: new project</b>\n\n%s\n%s", escapeHTML(d.Name), escapeHTML(d.Link))
	case session.FlowAddSeasonProject:
		return fmt.Sprintf("👀 <b>Preview: new season project</b>\n\n%s\n%s\nRegion: %s\nBudget: %s",
			escapeHTML(d.Name), escapeHTML(d.Link), escapeHTML(d.Region), formatMoney(d.Budget))
	case session.FlowEditProject:
		return fmt.Sprintf("👀 <b>Preview: edited project</b>\n\n%s\n%s", escapeHTML(d.Name), escapeHTML(d.Link))
	case session.FlowDeleteProject:
		return fmt.Sprintf("👀 <b>Delete this project?</b>\n\n%s\n%s", escapeHTML(d.Name), escapeHTML(d.Link))
	case session.FlowNews:
		return fmt.Sprintf("👀 <b>Preview: news (%s)</b>\n\n%s", d.Language,
			formatAnnouncement(&appmodels.Announcement{Title: d.Title, Content: d.Content}))
	default:
		return "👀 <b>Preview: broadcast</b>\n\n" + escapeHTML(d.Content)
	}
}

// sendPreview shows the collected fields with approve and discard buttons.
func (b *Bot) sendPreview(ctx context.Context, tg TelegramAPI, chatID int64, sess *session.Session) {
	if sess.Flow == session.FlowBroadcast && sess.Data.PhotoFileID != "" {
		_, err := tg.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileString{Data: sess.Data.PhotoFileID},
			Caption:     broadcast.Truncate(sess.Data.Content, broadcast.MaxCaptionLength),
			ReplyMarkup: previewKeyboard(),
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to send broadcast preview")
		}
		return
	}
	b.sendWithMarkup(ctx, tg, chatID, previewText(sess), previewKeyboard())
}

// onConfirm publishes the previewed content and fans it out. Broadcast
// payloads are plain text.
func (b *Bot) onConfirm(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery) string {
	adminID := q.From.ID
	sess, ok := b.sessions.Get(adminID)
	if !ok || sess.State != session.StatePreview {
		return "Nothing to approve."
	}
	b.sessions.Delete(adminID)
	d := sess.Data

	var (
		payload  broadcast.Payload
		language string
		err      error
	)
	switch sess.Flow {
	case session.FlowAddProject:
		var p *appmodels.VoteableProject
		if p, err = b.catalog.CreateProject(ctx, d.Name, d.Link, adminID); err == nil {
			payload.Text = fmt.Sprintf("🆕 New project to vote for: %s\n%s\n\nVote with /vote!", p.Name, p.Link)
		}
	case session.FlowAddSeasonProject:
		var p *appmodels.VoteableProject
		p, err = b.catalog.CreateSeasonProject(ctx, catalog.SeasonProjectDraft{
			SeasonID: d.SeasonID, Name: d.Name, Link: d.Link, Region: d.Region, Budget: d.Budget,
		})
		if err == nil {
			payload.Text = fmt.Sprintf("🆕 New project in %s: %s\n%s\n\nVote with /vote!", p.Region, p.Name, p.Link)
		}
	case session.FlowEditProject:
		if err = b.catalog.UpdateProject(ctx, d.Project, d.Name, d.Link); err == nil {
			payload.Text = fmt.Sprintf("✏️ Project updated: %s\n%s", d.Name, d.Link)
		}
	case session.FlowDeleteProject:
		if err = b.catalog.DeleteProject(ctx, d.Project); err == nil {
			payload.Text = fmt.Sprintf("🗑 Project %s is no longer open for voting.", d.Name)
		}
	case session.FlowNews:
		a := &appmodels.Announcement{Title: d.Title, Content: d.Content, Language: d.Language, CreatedBy: adminID}
		if err = b.catalog.CreateAnnouncement(ctx, a); err == nil {
			payload.Text = fmt.Sprintf("📰 %s\n\n%s", a.Title, a.Content)
			language = a.Language
		}
	case session.FlowBroadcast:
		payload = broadcast.Payload{Text: d.Content, PhotoFileID: d.PhotoFileID}
	default:
		return "Nothing to approve."
	}

	switch {
	case errors.Is(err, catalog.ErrProjectNotFound):
		b.send(ctx, tg, adminID, "⚠️ That project no longer exists. Nothing was changed.")
		return ""
	case err != nil:
		b.fail(ctx, tg, adminID, adminID, "publish "+string(sess.Flow), err)
		return ""
	}

	logger.Log.Info().Str("flow", string(sess.Flow)).Str("admin_hash", logger.HashUserID(adminID)).Msg("Content published")

	res, err := b.fanOut(ctx, tg, payload, language)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Broadcast interrupted")
	}
	b.send(ctx, tg, adminID, fmt.Sprintf("✅ Published.\n\n📣 Sent: %d\nFailed: %d\nBlocked: %d",
		res.Sent, res.Failed, res.Blocked))
	return "Published"
}

// onDiscard drops a previewed flow without writing anything.
func (b *Bot) onDiscard(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery) string {
	sess, ok := b.sessions.Get(q.From.ID)
	if !ok || sess.State != session.StatePreview {
		return "Nothing to discard."
	}
	b.sessions.Delete(q.From.ID)
	b.send(ctx, tg, q.From.ID, "🗑 Discarded. Nothing was saved.")
	return "Discarded"
}

// fanOut broadcasts payload to active users, all of them when language is
// empty, and deactivates recipients who blocked the bot.
func (b *Bot) fanOut(ctx context.Context, tg TelegramAPI, payload broadcast.Payload, language string) (broadcast.Result, error) {
	ids, err := b.userRepo.ListActiveIDs(ctx, language)
	if err != nil {
		return broadcast.Result{}, err
	}

	res, err := b.broadcaster.Broadcast(ctx, tg, payload, ids)
	if len(res.BlockedIDs) > 0 {
		if derr := b.userRepo.Deactivate(ctx, res.BlockedIDs); derr != nil {
			logger.Log.Error().Err(derr).Int("count", len(res.BlockedIDs)).Msg("Failed to deactivate blocked users")
		}
	}

	logger.Log.Info().
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("blocked", res.Blocked).
		Msg("Broadcast finished")
	return res, err
}
