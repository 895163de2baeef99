package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"corplandlords/wireboard/internal/config"
	"github.com/redis/go-redis/v9"
)

const mockEmailTTL = 5 * time.Minute

// MockEmail is the JSON stored for each mocked mail.
type MockEmail struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// RedisSender stores emails in Redis instead of sending them, so tests can read them back.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{client: client, cfg: cfg}
}

// MockEmailKey is the Redis key for the latest mock mail to a recipient.
func MockEmailKey(to string) string {
	return fmt.Sprintf("mockemail:%s", strings.ToLower(to))
}

// Send stores one entry per recipient.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	entry := MockEmail{
		To:      strings.Join(to, ", "),
		From:    s.cfg.SmtpFromAddress,
		Subject: subject,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	for _, addr := range to {
		key := MockEmailKey(addr)
		if err := s.client.Set(ctx, key, data, mockEmailTTL).Err(); err != nil {
			return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
		}
		slog.Debug("mock email stored", "key", key, "subject", subject)
	}
	return nil
}

// GetMockEmail reads back the latest mock mail for a recipient; nil when none.
func GetMockEmail(ctx context.Context, client *redis.Client, to string) (*MockEmail, error) {
	data, err := client.Get(ctx, MockEmailKey(to)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mock email: %w", err)
	}
	var m MockEmail
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mock email: %w", err)
	}
	return &m, nil
}
