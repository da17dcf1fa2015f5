package notify

import (
	"encoding/json"
	"fmt"

	"fieldbook/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the minimal telegram surface the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes booking events into manager chats. Delivery is
// best-effort; a failed send never blocks the booking flow.
type TelegramNotifier struct {
	bot          Sender
	managerChats []int64
	logger       *zerolog.Logger
}

func NewTelegramNotifier(bot Sender, managerChats []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:          bot,
		managerChats: managerChats,
		logger:       logger,
	}
}

// Subscribe registers the notifier on every booking lifecycle event.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	if bus == nil {
		return
	}
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingRejected,
		events.EventBookingCancelled,
		events.EventBookingCompleted,
	} {
		bus.Subscribe(eventType, n.handleEvent)
	}
}

func (n *TelegramNotifier) handleEvent(ev *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event", ev.Type).Msg("notify: decode payload")
		return nil
	}

	text := formatMessage(ev.Type, payload)
	for _, chatID := range n.managerChats {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("event", ev.Type).Msg("notify: send failed")
		}
	}
	return nil
}

func formatMessage(eventType string, p events.BookingEventPayload) string {
	var header string
	switch eventType {
	case events.EventBookingCreated:
		header = "🆕 Новая заявка"
	case events.EventBookingConfirmed:
		header = "✅ Бронь подтверждена"
	case events.EventBookingRejected:
		header = "❌ Заявка отклонена"
	case events.EventBookingCancelled:
		header = "🚫 Бронь отменена"
	case events.EventBookingCompleted:
		header = "🏁 Бронь завершена"
	default:
		header = "Событие брони"
	}

	field := p.FieldName
	if field == "" {
		field = fmt.Sprintf("#%d", p.FieldID)
	}

	text := fmt.Sprintf("%s\nПоле: %s\nКлиент: %d\nВремя: %s - %s\nЦена: %.2f",
		header,
		field,
		p.CustomerID,
		p.StartAt.UTC().Format("02.01.2006 15:04"),
		p.EndAt.UTC().Format("15:04"),
		p.Price,
	)
	if p.Note != "" {
		text += "\n💬 " + p.Note
	}
	if p.StatusReason != "" {
		text += "\nПричина: " + p.StatusReason
	}
	return text
}
