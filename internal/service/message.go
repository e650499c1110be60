package service

import (
	"context"
	"errors"

	"aws-examples-api/internal/domain"
	"aws-examples-api/internal/observability/logger"
	"aws-examples-api/internal/repo"

	"go.uber.org/zap"
)

// MessageStore is the subset of repo.MessageRepository the service needs
type MessageStore interface {
	Get(ctx context.Context, id int64) (*domain.Message, error)
}

type MessageService struct {
	store          MessageStore
	messageID      int64
	defaultMessage string
	log            *logger.Logger
}

func NewMessageService(store MessageStore, messageID int64, defaultMessage string, log *logger.Logger) *MessageService {
	return &MessageService{
		store:          store,
		messageID:      messageID,
		defaultMessage: defaultMessage,
		log:            log,
	}
}

// Greeting returns the stored message, or the default when the item is
// missing, empty or unreadable. It never fails.
func (s *MessageService) Greeting(ctx context.Context) string {
	msg, err := s.store.Get(ctx, s.messageID)
	switch {
	case errors.Is(err, repo.ErrMessageNotFound):
		s.log.Info(ctx, "message not seeded, using default",
			logger.Module("messages"),
			logger.Action("greeting"),
			zap.Int64("message_id", s.messageID),
		)
		return s.defaultMessage
	case err != nil:
		s.log.Error(ctx, "failed to read message, using default",
			logger.Module("messages"),
			logger.Action("greeting"),
			zap.Int64("message_id", s.messageID),
			zap.Error(err),
		)
		return s.defaultMessage
	case msg.Text == "":
		return s.defaultMessage
	}

	return msg.Text
}
