package telegram

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
	"github.com/mkovalev/newsedge/pkg/templates"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Notifier posts trade signals and status lines to one Telegram chat.
// A nil Notifier is valid and does nothing, so callers can wire it
// unconditionally.
type Notifier struct {
	api       *tgbotapi.BotAPI
	cfg       *config.TelegramConfig
	templates *template.Template
}

// NewNotifier creates a notifier from configuration. Without a token and
// chat id it returns (nil, nil): notifications stay off and the rest of
// the system runs normally.
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if !cfg.HasTelegram() {
		logger.Info("Telegram notifier disabled")
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	bot.Debug = false

	tmpls, err := template.New("telegram").
		Funcs(templates.GetDefaultFuncMap()).
		ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse telegram templates: %w", err)
	}

	logger.Info("Telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName))

	return &Notifier{
		api:       bot,
		cfg:       cfg,
		templates: tmpls,
	}, nil
}

// SendSignalAlert posts one trade idea to the chat.
func (n *Notifier) SendSignalAlert(idea models.TradeIdea) error {
	if n == nil || !n.cfg.AlertOnSignals {
		return nil
	}

	msg, err := n.renderTemplate("signal_alert.tmpl", signalAlertData(idea))
	if err != nil {
		return err
	}
	return n.sendMarkdown(msg)
}

// SendStatus posts a plain status line to the chat.
func (n *Notifier) SendStatus(text string) error {
	if n == nil || text == "" {
		return nil
	}

	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	if _, err := n.api.Send(msg); err != nil {
		logger.Error("Failed to send telegram message",
			zap.Int64("chat_id", n.cfg.ChatID),
			zap.Error(err))
		return err
	}
	return nil
}

// signalAlertData flattens a trade idea into template fields.
func signalAlertData(idea models.TradeIdea) map[string]interface{} {
	rec := idea.Recommendation

	data := map[string]interface{}{
		"Emoji":        signalEmoji(idea.Estimate.Signal),
		"SignalLabel":  strings.ToUpper(strings.ReplaceAll(string(idea.Estimate.Signal), "_", " ")),
		"Venue":        idea.Market.Venue,
		"Question":     idea.Market.Question,
		"Headline":     idea.News.Headline,
		"CurrentPrice": idea.Estimate.CurrentPrice,
		"FairValue":    idea.Estimate.FairValue,
		"EdgePercent":  idea.Estimate.EdgePercent,
		"Confidence":   idea.Estimate.Confidence,
		"HasTrade":     rec != nil && rec.Action != models.ActionHold,
		"URL":          idea.Market.URL,
	}

	if rec != nil {
		data["Size"] = rec.SuggestedSize.InexactFloat64()
		data["Contracts"] = rec.Contracts
		data["Side"] = rec.Side
		data["EntryPrice"] = rec.EntryPrice
		data["TargetPrice"] = rec.TargetPrice
		data["StopLoss"] = rec.StopLoss
	}

	return data
}

func (n *Notifier) renderTemplate(name string, data interface{}) (string, error) {
	tmpl := n.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (n *Notifier) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(n.cfg.ChatID, text)
	msg.ParseMode = "Markdown"

	if _, err := n.api.Send(msg); err != nil {
		logger.Error("Failed to send telegram message",
			zap.Int64("chat_id", n.cfg.ChatID),
			zap.Error(err))
		return err
	}
	return nil
}

func signalEmoji(signal models.Signal) string {
	switch signal {
	case models.SignalStrongBuy:
		return "🚀"
	case models.SignalBuy:
		return "📈"
	case models.SignalSell:
		return "📉"
	case models.SignalStrongSell:
		return "🔻"
	default:
		return "🤖"
	}
}
