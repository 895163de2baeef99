package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"corplandlords/wireboard/internal/config"
	"corplandlords/wireboard/internal/email"
	"corplandlords/wireboard/internal/models"
	"corplandlords/wireboard/internal/services"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskType defines the type of a background task.
const (
	TypeSubmissionMail = "mail:submission"
)

const queueCritical = "critical"

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// SubmissionMailPayload identifies the wire whose confirmation mail should go out.
type SubmissionMailPayload struct {
	WireID string `json:"wire_id"`
}

// NewSubmissionMailTask builds the task for a submitted wire.
func NewSubmissionMailTask(wireID primitive.ObjectID) (*asynq.Task, error) {
	payload, err := json.Marshal(SubmissionMailPayload{WireID: wireID.Hex()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission mail payload: %w", err)
	}
	return asynq.NewTask(TypeSubmissionMail, payload, asynq.MaxRetry(0), asynq.Queue(queueCritical)), nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SubmissionNotifier queues the confirmation mail. The mail is sent at most once.
type SubmissionNotifier struct {
	client enqueuer
}

func NewSubmissionNotifier(client *asynq.Client) *SubmissionNotifier {
	return &SubmissionNotifier{client: client}
}

func (n *SubmissionNotifier) NotifySubmitted(ctx context.Context, wire *models.Wire) error {
	task, err := NewSubmissionMailTask(wire.ID)
	if err != nil {
		return err
	}
	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue submission mail: %w", err)
	}
	slog.Debug("submission mail queued", "wire_id", wire.ID.Hex(), "task_id", info.ID)
	return nil
}

// --- Task Server (Processing tasks) ---

type wireFinder interface {
	FindWireFresh(ctx context.Context, id primitive.ObjectID) (*models.Wire, error)
}

// TaskProcessor holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	wires       wireFinder
	mails       services.IMailService
}

func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, wires wireFinder, mails services.IMailService) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		wires:       wires,
		mails:       mails,
	}
}

// SetupServer configures an Asynq server and its mux. The caller runs it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				queueCritical: 6,
				"default":     3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slog.Error("task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSubmissionMail, processor.HandleSubmissionMailTask)
	return srv, mux
}

// --- Task Handlers ---

// HandleSubmissionMailTask records, renders and sends the confirmation mail
// for a submitted wire. Every failure is final.
func (p *TaskProcessor) HandleSubmissionMailTask(ctx context.Context, t *asynq.Task) error {
	var payload SubmissionMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal submission mail payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := primitive.ObjectIDFromHex(payload.WireID)
	if err != nil {
		return fmt.Errorf("invalid wire id %q: %w", payload.WireID, asynq.SkipRetry)
	}

	wire, err := p.wires.FindWireFresh(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load wire %s: %v: %w", payload.WireID, err, asynq.SkipRetry)
	}
	if wire == nil {
		return fmt.Errorf("wire %s not found: %w", payload.WireID, asynq.SkipRetry)
	}
	if !wire.Submitted {
		slog.Warn("skipping submission mail for unsubmitted wire", "wire_id", payload.WireID)
		return nil
	}

	mail, err := p.mails.RecordSubmissionMail(ctx, wire)
	if err != nil {
		return fmt.Errorf("failed to record submission mail: %v: %w", err, asynq.SkipRetry)
	}
	content, err := p.mails.Render(mail)
	if err != nil {
		return errors.Join(p.mails.MarkDelivered(ctx, mail.ID, err), fmt.Errorf("failed to render mail: %v: %w", err, asynq.SkipRetry))
	}

	raw := email.ComposeMessage(p.cfg.SmtpFromAddress, mail.To, content.Subject, content.Body)
	sendErr := p.emailSender.Send(ctx, mail.To, content.Subject, raw)
	if err := p.mails.MarkDelivered(ctx, mail.ID, sendErr); err != nil {
		slog.Error("failed to mark mail delivery", "mail_id", mail.ID.Hex(), "error", err)
	}
	if sendErr != nil {
		return fmt.Errorf("failed to send submission mail: %v: %w", sendErr, asynq.SkipRetry)
	}

	slog.Info("submission mail sent", "wire_id", payload.WireID, "request_id", wire.RequestID, "to", mail.To)
	return nil
}
