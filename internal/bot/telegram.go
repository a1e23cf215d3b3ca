// Package bot provides the Telegram surface: pump alerts, short signals,
// outcome reports and operator commands.
package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/brain"
	"github.com/web3guy0/pumpwatch/internal/config"
	"github.com/web3guy0/pumpwatch/internal/detector"
	"github.com/web3guy0/pumpwatch/internal/engine"
	"github.com/web3guy0/pumpwatch/internal/listing"
	"github.com/web3guy0/pumpwatch/internal/tracker"
)

// Bot handles Telegram interactions for the pump watcher
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	memory  *brain.Brain
	eng     *engine.Engine
	listing *listing.Detector

	startedAt time.Time
	stopCh    chan struct{}
}

// New connects the bot and wires the engine callbacks
func New(cfg *config.Config, memory *brain.Brain, eng *engine.Engine, ld *listing.Detector) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot connected")

	b := &Bot{
		api:       api,
		cfg:       cfg,
		memory:    memory,
		eng:       eng,
		listing:   ld,
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
	}

	if eng != nil && cfg.TelegramChatID != 0 {
		eng.OnPump(func(ev *detector.PumpEvent, notify bool) {
			if notify {
				b.sendMarkdown(cfg.TelegramChatID, formatPump(ev))
			}
		})
		eng.OnSignal(func(sig *engine.Signal) {
			b.sendMarkdown(cfg.TelegramChatID, formatSignal(sig))
		})
		eng.OnNoSignal(func(symbol, reason string) {
			b.sendMarkdown(cfg.TelegramChatID, formatNoSignal(symbol, reason))
		})
		eng.OnOutcome(func(ev tracker.Event) {
			if msg := formatOutcome(ev); msg != "" {
				b.sendMarkdown(cfg.TelegramChatID, msg)
			}
		})
	}

	if ld != nil && cfg.TelegramChatID != 0 {
		ld.OnListing(func(symbols []string) {
			b.sendMarkdown(cfg.TelegramChatID, formatListing(symbols))
		})
	}

	return b, nil
}

// Start begins the command listener and announces startup
func (b *Bot) Start() {
	go b.listenForCommands()

	if b.cfg.TelegramChatID != 0 {
		b.sendMarkdown(b.cfg.TelegramChatID, "🚀 *PumpWatch online*\nScanning perpetual futures for pump reversals.")
	}
}

// Stop stops the command listener
func (b *Bot) Stop() {
	close(b.stopCh)
}

func (b *Bot) listenForCommands() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				go b.handleMessage(update.Message)
			}
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	log.Debug().
		Int64("chat_id", chatID).
		Str("text", msg.Text).
		Msg("Received message")

	if !msg.IsCommand() {
		return
	}

	switch normalizeCommand(msg.Command()) {
	case "start", "help":
		b.cmdHelp(chatID)
	case "status":
		b.cmdStatus(chatID)
	case "stats":
		b.cmdStats(chatID)
	case "top":
		b.cmdTop(chatID)
	case "listings":
		b.cmdListings(chatID)
	case "test":
		b.cmdTest(chatID)
	case "announce":
		b.cmdAnnounce(chatID, msg.CommandArguments())
	default:
		b.sendText(chatID, "❓ Unknown command. Use /help for available commands.")
	}
}

// normalizeCommand folds command aliases onto their canonical name
func normalizeCommand(cmd string) string {
	if cmd == "listing" {
		return "listings"
	}
	return cmd
}

func (b *Bot) cmdHelp(chatID int64) {
	b.sendMarkdown(chatID, `📚 *PumpWatch Commands*

*📊 Monitoring:*
/status - Engine and tracker status
/stats - Signal outcome statistics
/top - Best performing symbols
/listings - Recently listed contracts

*🛠 Operator:*
/test - Send a test signal message
/announce <text> - Broadcast to the channel (admin)

I watch every perpetual contract, flag pumps as they top
out, and call the short with targets and a stop.`)
}

func (b *Bot) cmdStatus(chatID int64) {
	var active int
	if b.eng != nil {
		active = b.eng.ActiveAnalyses()
	}

	text := fmt.Sprintf(`📡 *Status*

Uptime: %s
Active analyses: %d`,
		time.Since(b.startedAt).Round(time.Second), active)
	b.sendMarkdown(chatID, text)
}

func (b *Bot) cmdStats(chatID int64) {
	stats, err := b.memory.GlobalStats()
	if err != nil {
		b.sendText(chatID, "⚠️ Could not load stats")
		return
	}

	text := fmt.Sprintf(`📈 *Signal Stats*

Total signals: %d
Finalized: %d
Wins: %d  Losses: %d
Win rate: %.1f%%
Symbols traded: %d`,
		stats.TotalSignals, stats.Finalized, stats.Wins, stats.Losses,
		stats.WinRate*100, stats.Symbols)
	b.sendMarkdown(chatID, text)
}

func (b *Bot) cmdTop(chatID int64) {
	top := b.memory.TopSymbols(10)
	if len(top) == 0 {
		b.sendText(chatID, "No finalized signals yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 *Top Symbols*\n\n")
	for i, intel := range top {
		streak := ""
		if intel.IsHot {
			streak = " 🔥"
		} else if intel.IsCold {
			streak = " 🧊"
		}
		sb.WriteString(fmt.Sprintf("%d. `%s` %.0f%% over %d signals (%s)%s\n",
			i+1, intel.Symbol, intel.WinRate*100, intel.Total, intel.RecommendedAction, streak))
	}
	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) cmdListings(chatID int64) {
	if b.listing == nil {
		b.sendText(chatID, "Listing detection is disabled.")
		return
	}
	recent := b.listing.Recent(10)
	if len(recent) == 0 {
		b.sendText(chatID, "No new listings seen since startup.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🆕 *Recent Listings*\n\n")
	for _, l := range recent {
		sb.WriteString(fmt.Sprintf("• `%s` at %s\n", l.Symbol, l.SeenAt.Format("15:04 MST")))
	}
	b.sendMarkdown(chatID, sb.String())
}

// cmdTest renders a synthetic signal so the channel formatting can be
// checked without waiting for a live pump
func (b *Bot) cmdTest(chatID int64) {
	b.sendMarkdown(chatID, formatTestSignal())
	log.Info().Int64("chat_id", chatID).Msg("Test signal sent")
}

func (b *Bot) cmdAnnounce(chatID int64, text string) {
	if chatID != b.cfg.AdminChatID {
		b.sendText(chatID, "⛔ Admin only.")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		b.sendText(chatID, "Usage: /announce <text>")
		return
	}
	b.sendMarkdown(b.cfg.TelegramChatID, "📢 "+text)
	if chatID != b.cfg.TelegramChatID {
		b.sendText(chatID, "Sent.")
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}
