package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =====================================================
// Message Entity (DynamoDB item)
// =====================================================

// Message is the single greeting record stored in the messages table as
// {id: N, msg: S}.
type Message struct {
	ID   int64  `json:"id" dynamodbav:"id" validate:"gte=0"`
	Text string `json:"msg" dynamodbav:"msg" validate:"required,max=1024"`
}

var validate = validator.New()

// Validate checks field constraints before a write
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s:%s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid message: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid message: %w", err)
	}
	return nil
}

// =====================================================
// API Responses
// =====================================================

// MessagesResponse is the body of GET /api/messages. User holds the
// forwarded identity claims and is an empty object when anonymous.
type MessagesResponse struct {
	Message string         `json:"message"`
	User    map[string]any `json:"user"`
}

// IdentityResponse is the body of GET /debug/identity
type IdentityResponse struct {
	Outcome  string         `json:"outcome"`
	Verified bool           `json:"verified"`
	KeyID    string         `json:"kid,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Subject  string         `json:"subject,omitempty"`
	Claims   map[string]any `json:"claims"`
}
