package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"engagement-engine/internal/config"
	"engagement-engine/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, s.err
}

type fakeStatus struct{}

func (fakeStatus) Strategy(creatorID string) models.StrategyProfile {
	p := models.DefaultStrategyProfile(creatorID)
	p.Version = 3
	return p
}

func (fakeStatus) Dashboard() models.DashboardStats {
	return models.DashboardStats{
		TotalSessions:    10,
		SessionsByStatus: map[string]int{models.SessionCompleted: 9, models.SessionFailed: 1},
		AlertsByLevel:    map[string]int{models.AlertCritical: 2},
		CreatorsTracked:  4,
	}
}

func criticalReport() *models.LearningReport {
	return &models.LearningReport{
		SessionID: "s1",
		CreatorID: "c1",
		PostID:    "p1",
		Record:    models.InteractionRecord{Content: strings.Repeat("x", 200)},
		RiskAssessment: &models.RiskAssessment{
			OverallRisk: 0.66,
			Alerts: []models.Alert{
				{Category: models.RiskAIDetection, Level: models.AlertCritical, Score: 0.92},
				{Category: models.RiskTiming, Level: models.AlertWarning, Score: 0.6},
			},
		},
		Insights: []models.Insight{
			{Priority: models.PriorityCritical, SuggestedActions: []string{"Add colloquial, conversational phrasing"}},
		},
	}
}

func TestFormatCriticalAlert(t *testing.T) {
	text := FormatCriticalAlert(criticalReport())

	assert.Contains(t, text, "Creator: c1")
	assert.Contains(t, text, "ai_detection: 0.92")
	assert.NotContains(t, text, "timing")
	assert.Contains(t, text, "Overall risk: 0.66")
	assert.Contains(t, text, strings.Repeat("x", previewLength)+"...")
	assert.NotContains(t, text, strings.Repeat("x", previewLength+1))
	assert.Contains(t, text, "Add colloquial, conversational phrasing")
}

func TestNotifyCriticalSendsToChat(t *testing.T) {
	api := &fakeSender{}
	b := &Bot{api: api, chatID: 42, status: fakeStatus{}, logger: zap.NewNop()}

	require.NoError(t, b.NotifyCritical(context.Background(), criticalReport()))

	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(42), api.sent[0].ChatID)
}

func TestNotifyCriticalReportsSendFailure(t *testing.T) {
	b := &Bot{api: &fakeSender{err: errors.New("bad gateway")}, chatID: 42, logger: zap.NewNop()}

	assert.Error(t, b.NotifyCritical(context.Background(), criticalReport()))
}

func TestNilBotIsNoop(t *testing.T) {
	var b *Bot
	assert.NoError(t, b.NotifyCritical(context.Background(), criticalReport()))
	assert.NoError(t, b.Start(context.Background()))
}

func TestNewBotDisabledWithoutToken(t *testing.T) {
	b, err := NewBot(config.Default(), fakeStatus{}, zap.NewNop())

	require.NoError(t, err)
	assert.Nil(t, b)
}

func commandMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestCommandsAnsweredOnlyInConfiguredChat(t *testing.T) {
	api := &fakeSender{}
	b := &Bot{api: api, chatID: 42, status: fakeStatus{}, logger: zap.NewNop()}

	b.handleMessage(commandMessage(7, "/dashboard"))
	assert.Empty(t, api.sent)

	b.handleMessage(commandMessage(42, "/dashboard"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(42), api.sent[0].ChatID)
}

func TestReply(t *testing.T) {
	b := &Bot{api: &fakeSender{}, status: fakeStatus{}, logger: zap.NewNop()}

	assert.Contains(t, b.reply("help", ""), "/strategy <creator_id>")
	assert.Equal(t, "Usage: /strategy <creator_id>", b.reply("strategy", "  "))

	strategy := b.reply("strategy", "c7")
	assert.Contains(t, strategy, "Strategy for c7 (version 3)")
	assert.Contains(t, strategy, "authenticity: 0.50")

	dashboard := b.reply("dashboard", "")
	assert.Contains(t, dashboard, "Sessions: 10 (completed 9, failed 1)")
	assert.Contains(t, dashboard, "Critical alerts: 2")

	assert.Contains(t, b.reply("unknown", ""), "Unknown command")
}
