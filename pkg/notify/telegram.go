// Package notify delivers settlement notifications through the Telegram Bot
// API, with bounded retry on transient delivery failures.
package notify

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

// Settlement is one graded wager to announce.
type Settlement struct {
	FixtureID string
	HomeTeam  string
	AwayTeam  string
	Selection string
	Outcome   string
	Score     string
	Stake     decimal.Decimal
	Payout    decimal.Decimal
}

// Notifier sends plain-text messages to one chat.
type Notifier struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	maxRetries int
	retryDelay time.Duration
}

// NewNotifier authenticates against the bot API. chatID is the decimal chat
// identifier.
func NewNotifier(botToken, chatID string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return &Notifier{
		bot:        bot,
		chatID:     id,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// NotifySettlement announces one graded wager.
func (n *Notifier) NotifySettlement(s Settlement) error {
	return n.send(formatSettlement(s))
}

// NotifyText sends a raw plain-text message.
func (n *Notifier) NotifyText(text string) error {
	return n.send(text)
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(n.retryDelay * time.Duration(i+1))
	}
	return fmt.Errorf("sending after %d retries: %w", n.maxRetries, lastErr)
}

func formatSettlement(s Settlement) string {
	match := s.HomeTeam + " vs " + s.AwayTeam
	if s.HomeTeam == "" || s.AwayTeam == "" {
		match = "fixture " + s.FixtureID
	}

	var verdict string
	switch s.Outcome {
	case "win":
		verdict = fmt.Sprintf("WON, returns %s", s.Payout.StringFixed(2))
	case "void":
		verdict = fmt.Sprintf("VOID, stake %s returned", s.Payout.StringFixed(2))
	default:
		verdict = fmt.Sprintf("LOST, stake was %s", s.Stake.StringFixed(2))
	}

	return fmt.Sprintf("%s finished %s.\nBet %q %s.", match, s.Score, s.Selection, verdict)
}
