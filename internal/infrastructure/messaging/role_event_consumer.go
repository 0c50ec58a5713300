package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
)

// ErrMalformedEvent marks messages that can never be processed and must not be requeued.
var ErrMalformedEvent = errors.New("malformed role event")

// DecodeRoleEvent parses and checks a queued role event.
func DecodeRoleEvent(body []byte) (entity.RoleEvent, error) {
	var ev entity.RoleEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	switch {
	case ev.ID == "":
		return ev, fmt.Errorf("%w: missing id", ErrMalformedEvent)
	case ev.SchoolID == "":
		return ev, fmt.Errorf("%w: missing school_id", ErrMalformedEvent)
	case ev.Type == "":
		return ev, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev, nil
}

// AuditConsumer persists role events delivered from the queue.
type AuditConsumer struct {
	repo   repository.AuditRepository
	logger logrus.FieldLogger
}

func NewAuditConsumer(repo repository.AuditRepository, logger logrus.FieldLogger) *AuditConsumer {
	return &AuditConsumer{repo: repo, logger: logger}
}

// Handle stores one message body. Malformed bodies return ErrMalformedEvent.
func (c *AuditConsumer) Handle(ctx context.Context, body []byte) error {
	ev, err := DecodeRoleEvent(body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.repo.Save(ctx, ev); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"event_id":  ev.ID,
		"type":      ev.Type,
		"school_id": ev.SchoolID,
		"role":      ev.Role,
	}).Info("role event recorded")
	return nil
}

// Run acks stored messages, drops malformed ones and requeues the rest until msgs closes or ctx ends.
func (c *AuditConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			err := c.Handle(ctx, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, ErrMalformedEvent):
				c.logger.WithError(err).Warn("dropping role event")
				_ = msg.Nack(false, false)
			default:
				c.logger.WithError(err).Error("role event not stored, requeueing")
				_ = msg.Nack(false, true)
			}
		}
	}
}
