package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"corplandlords/wireboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	subjects []string
	err      error
}

func (r *recordingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestComposeMessage(t *testing.T) {
	raw := string(ComposeMessage("noreply@corplandlords.example", []string{"a@example.com", "b@example.com"}, "Hello", "line one\nline two"))

	assert.True(t, strings.HasPrefix(raw, "To: a@example.com, b@example.com\r\n"))
	assert.Contains(t, raw, "From: noreply@corplandlords.example\r\n")
	assert.Contains(t, raw, "Subject: Hello\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two\r\n"))
}

func TestNewSMTPSender_FallsBackToLogging(t *testing.T) {
	s := NewSMTPSender(&config.Config{})
	_, ok := s.(*LoggingSender)
	require.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), []string{"a@example.com"}, "subj", []byte("body")))

	s = NewSMTPSender(&config.Config{SmtpHost: "smtp.example.com", SmtpPort: 587})
	smtpSender, ok := s.(*SMTPSender)
	require.True(t, ok)
	assert.Equal(t, "smtp.example.com:587", smtpSender.addr)
}

func TestCompositeEmailSender(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, NewCompositeEmailSender().Send(ctx, nil, "s", nil))

	ok := &recordingSender{}
	failing := &recordingSender{err: errors.New("smtp down")}
	cs := NewCompositeEmailSender(ok)
	cs.AddSender(failing)
	cs.AddSender(nil)

	err := cs.Send(ctx, []string{"a@example.com"}, "s", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, []string{"s"}, ok.subjects, "every sender is tried even when one fails")
	assert.Equal(t, []string{"s"}, failing.subjects)
}

func TestFileEmailSender(t *testing.T) {
	_, err := NewFileEmailSender("  ")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "nested", "mail.log")
	s, err := NewFileEmailSender(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Send(ctx, []string{"a@example.com"}, "first", []byte("body-1")))
	require.NoError(t, s.Send(ctx, []string{"a@example.com"}, "second", []byte("body-2")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Equal(t, 2, strings.Count(content, "--- End Logged Email ---"))
	assert.Contains(t, content, "Subject: first")
	assert.Contains(t, content, "body-2")
}
