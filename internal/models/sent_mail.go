package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TemplateUserRequest is the mail template used for submission confirmations.
const TemplateUserRequest = "userRequest"

// SentMail is a record in the outbound mail collection. A mail relay may pick
// these up; the service also sends them directly through the configured sender.
type SentMail struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Template  MailTemplate       `bson:"template" json:"template"`
	To        []string           `bson:"to" json:"to"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Delivered bool               `bson:"delivered" json:"delivered"`
	LastError string             `bson:"lastError,omitempty" json:"lastError,omitempty"`
}

type MailTemplate struct {
	Name string           `bson:"name" json:"name"`
	Data MailTemplateData `bson:"data" json:"data"`
}

// MailTemplateData carries the wire's request identifier and requester.
type MailTemplateData struct {
	ID    string `bson:"id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}
