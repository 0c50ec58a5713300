package messaging

import (
	"context"
	"time"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

// JSONPublisher is satisfied by helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// RoleEventPublisher sends role events to the audit queue.
type RoleEventPublisher struct {
	pub     JSONPublisher
	timeout time.Duration
}

func NewRoleEventPublisher(pub JSONPublisher, timeout time.Duration) *RoleEventPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RoleEventPublisher{pub: pub, timeout: timeout}
}

// Publish detaches from the caller's cancellation so a finished request does not abort the send.
func (p *RoleEventPublisher) Publish(ctx context.Context, ev entity.RoleEvent) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return p.pub.PublishJSON(ctx, ev)
}

// NewRabbitRoleEventPublisher dials RabbitMQ and declares the queue.
// The returned close func releases the connection.
func NewRabbitRoleEventPublisher(url, queue string) (*RoleEventPublisher, func(), error) {
	rp, err := helpers.NewRabbitPublisher(url, queue)
	if err != nil {
		return nil, nil, err
	}
	return NewRoleEventPublisher(rp, 0), rp.Close, nil
}
