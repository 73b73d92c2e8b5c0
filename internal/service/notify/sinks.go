package notify

import (
	"context"
	"fmt"

	"PricePulse/internal/domain/models"
	domsvc "PricePulse/internal/domain/service"
)

var (
	_ domsvc.Notifier = (*TelegramNotifier)(nil)
	_ domsvc.Notifier = (*KafkaNotifier)(nil)
)

// MessageSender is satisfied by the Telegram client.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// TelegramNotifier posts the formatted digest to one chat.
type TelegramNotifier struct {
	sender     MessageSender
	chatID     string
	maxMessage int
}

func NewTelegramNotifier(sender MessageSender, chatID string, maxMessage int) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID, maxMessage: maxMessage}
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(ctx context.Context, d models.Digest) error {
	for i, part := range Split(FormatDigest(d), n.maxMessage) {
		if err := n.sender.SendMessage(ctx, n.chatID, part); err != nil {
			return fmt.Errorf("send digest part %d: %w", i+1, err)
		}
	}
	return nil
}

// Publisher is satisfied by the Kafka producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaNotifier publishes the digest as a JSON event keyed by date.
type KafkaNotifier struct {
	pub   Publisher
	topic string
}

func NewKafkaNotifier(pub Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{pub: pub, topic: topic}
}

func (n *KafkaNotifier) Name() string { return "kafka" }

func (n *KafkaNotifier) Notify(ctx context.Context, d models.Digest) error {
	return n.pub.Publish(ctx, n.topic, dateKey(d.Date), digestEvent{Type: "run_digest", Digest: d})
}

type digestEvent struct {
	Type string `json:"type"`
	models.Digest
}
