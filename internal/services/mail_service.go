package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"corplandlords/wireboard/internal/config"
	"corplandlords/wireboard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MailContent is a rendered mail ready for a sender.
type MailContent struct {
	Subject string
	Body    string
}

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var mailTemplates = map[string]mailTemplate{
	models.TemplateUserRequest: {
		subject: template.Must(template.New("subject").Parse(`Your property request {{.ID}} has been received`)),
		body: template.Must(template.New("body").Parse(`Hello {{.Name}},

Thank you for submitting your property request. Your request ID is {{.ID}}.

To publish your request, complete the listing payment of {{.Fee}} at:
{{.PaymentLink}}

Once payment is confirmed your request will appear on the wire board.

The {{.AppName}} team
`)),
	},
}

// IMailService records outbound mails and renders them.
type IMailService interface {
	RecordSubmissionMail(ctx context.Context, wire *models.Wire) (*models.SentMail, error)
	Render(mail *models.SentMail) (*MailContent, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, sendErr error) error
}

type mailService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewMailService creates a new MailService.
func NewMailService(database *mongo.Database, cfg *config.Config) IMailService {
	return &mailService{db: database, cfg: cfg}
}

func (s *mailService) collection() *mongo.Collection {
	return s.db.Collection(s.cfg.CollectionName(config.SentMailsCollection))
}

// BuildSubmissionMail builds the confirmation record for a submitted wire. The
// requester is chosen by usingAgent and the configured copy address is appended.
func BuildSubmissionMail(wire *models.Wire, copyAddress string) (*models.SentMail, error) {
	name, email, ok := wire.Requester()
	if !ok || email == "" {
		return nil, models.NewValidationError("usingAgent", "wire has no authoritative contact")
	}
	to := []string{email}
	if copyAddress != "" && !strings.EqualFold(copyAddress, email) {
		to = append(to, copyAddress)
	}
	return &models.SentMail{
		Template: models.MailTemplate{
			Name: models.TemplateUserRequest,
			Data: models.MailTemplateData{ID: wire.RequestID, Name: name, Email: email},
		},
		To:        to,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *mailService) RecordSubmissionMail(ctx context.Context, wire *models.Wire) (*models.SentMail, error) {
	mail, err := BuildSubmissionMail(wire, s.cfg.MailCopyAddress)
	if err != nil {
		return nil, err
	}
	mail.ID = primitive.NewObjectID()
	if _, err := s.collection().InsertOne(ctx, mail); err != nil {
		return nil, persistenceError("record submission mail", err)
	}
	return mail, nil
}

func (s *mailService) Render(mail *models.SentMail) (*MailContent, error) {
	tmpl, ok := mailTemplates[mail.Template.Name]
	if !ok {
		return nil, fmt.Errorf("mail template not found: %s", mail.Template.Name)
	}
	data := struct {
		models.MailTemplateData
		PaymentLink string
		Fee         string
		AppName     string
	}{
		MailTemplateData: mail.Template.Data,
		PaymentLink:      s.cfg.PaymentLinkURL,
		Fee:              formatFee(s.cfg.ListingFee),
		AppName:          s.cfg.AppName,
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}
	return &MailContent{Subject: subject.String(), Body: body.String()}, nil
}

func (s *mailService) MarkDelivered(ctx context.Context, id primitive.ObjectID, sendErr error) error {
	set := bson.M{"delivered": sendErr == nil}
	if sendErr != nil {
		set["lastError"] = sendErr.Error()
	}
	if _, err := s.collection().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return persistenceError("mark mail delivered", err)
	}
	return nil
}

// formatFee renders a whole-naira amount with thousands separators, e.g. "₦3,100".
func formatFee(amount int64) string {
	digits := fmt.Sprintf("%d", amount)
	if amount < 0 {
		digits = digits[1:]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if amount < 0 {
		return "-₦" + b.String()
	}
	return "₦" + b.String()
}
