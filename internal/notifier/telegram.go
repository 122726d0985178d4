// Package notifier delivers critical risk alerts to a Telegram chat and answers simple
// status commands from that chat.
package notifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
)

const previewLength = 150

// StatusSource answers the bot's status commands.
type StatusSource interface {
	Strategy(creatorID string) models.StrategyProfile
	Dashboard() models.DashboardStats
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is the Telegram notifier.
type Bot struct {
	api    sender
	bot    *tgbotapi.BotAPI
	chatID int64
	status StatusSource
	logger *zap.Logger
}

// NewBot creates the notifier. It returns nil, nil when no token is configured.
func NewBot(cfg *config.Config, status StatusSource, logger *zap.Logger) (*Bot, error) {
	if cfg.Notifier.TelegramBotToken == "" {
		logger.Info("Telegram notifier is disabled (token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifier.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:    botAPI,
		bot:    botAPI,
		chatID: cfg.Notifier.ChatID,
		status: status,
		logger: logger,
	}, nil
}

// NotifyCritical sends a summary of the report's critical alerts to the configured chat.
func (b *Bot) NotifyCritical(ctx context.Context, report *models.LearningReport) error {
	if b == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(b.chatID, FormatCriticalAlert(report))
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send critical alert",
			zap.Int64("chat_id", b.chatID),
			zap.String("session_id", report.SessionID),
			zap.Error(err))
		return fmt.Errorf("failed to send notification: %w", err)
	}

	b.logger.Info("Critical alert notification sent",
		zap.String("creator_id", report.CreatorID),
		zap.String("post_id", report.PostID))
	return nil
}

// FormatCriticalAlert renders the notification text for a report.
func FormatCriticalAlert(report *models.LearningReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🚨 Critical risk detected\n\nCreator: %s\nPost: %s\n", report.CreatorID, report.PostID)

	if report.RiskAssessment != nil {
		for _, a := range report.RiskAssessment.CriticalAlerts() {
			fmt.Fprintf(&sb, "⚠️ %s: %.2f\n", a.Category, a.Score)
		}
		fmt.Fprintf(&sb, "Overall risk: %.2f\n", report.RiskAssessment.OverallRisk)
	}

	if preview := []rune(report.Record.Content); len(preview) > 0 {
		text := string(preview)
		if len(preview) > previewLength {
			text = string(preview[:previewLength]) + "..."
		}
		fmt.Fprintf(&sb, "\n📝 Preview:\n%s\n", text)
	}

	for _, in := range report.Insights {
		if in.Priority == models.PriorityCritical && len(in.SuggestedActions) > 0 {
			fmt.Fprintf(&sb, "\n💡 %s", in.SuggestedActions[0])
			break
		}
	}
	return sb.String()
}

// Start answers /start, /help, /strategy <creator_id> and /dashboard until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	if b == nil || b.bot == nil {
		return nil
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.bot.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}
	if message.Chat == nil || message.Chat.ID != b.chatID {
		b.logger.Debug("Ignoring command from unconfigured chat", zap.String("command", message.Command()))
		return
	}
	b.sendMessage(message.Chat.ID, b.reply(message.Command(), message.CommandArguments()))
}

// reply builds the answer to a bot command.
func (b *Bot) reply(command, args string) string {
	switch command {
	case "start":
		return "👋 I report critical engagement risks for tracked creators.\n\nUse /help to see the commands."
	case "help":
		return "📚 Commands:\n\n" +
			"/strategy <creator_id> - current strategy profile\n" +
			"/dashboard - session and alert counts\n" +
			"/help - this message"
	case "strategy":
		creatorID := strings.TrimSpace(args)
		if creatorID == "" {
			return "Usage: /strategy <creator_id>"
		}
		return formatStrategy(b.status.Strategy(creatorID))
	case "dashboard":
		return formatDashboard(b.status.Dashboard())
	default:
		return "Unknown command. Use /help."
	}
}

func formatStrategy(p models.StrategyProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 Strategy for %s (version %d)\n\n", p.CreatorID, p.Version)
	writeWeights(&sb, "Persona", p.PersonaAdjustments)
	writeWeights(&sb, "Style", p.InteractionStyle)
	writeWeights(&sb, "Content", p.ContentTypeWeights)
	fmt.Fprintf(&sb, "Optimal hours: %v\n", p.TimingPreferences.OptimalHours)
	return sb.String()
}

func formatDashboard(s models.DashboardStats) string {
	return fmt.Sprintf("📊 Sessions: %d (completed %d, failed %d)\nCritical alerts: %d\nWarnings: %d\nCreators tracked: %d",
		s.TotalSessions,
		s.SessionsByStatus[models.SessionCompleted],
		s.SessionsByStatus[models.SessionFailed],
		s.AlertsByLevel[models.AlertCritical],
		s.AlertsByLevel[models.AlertWarning],
		s.CreatorsTracked)
}

func writeWeights(sb *strings.Builder, title string, weights map[string]float64) {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(sb, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(sb, "  %s: %.2f\n", k, weights[k])
	}
}

// sendMessage is a helper to send a simple text message
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
