package messaging

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/memory"
)

type capturePublisher struct {
	bodies []any
	ctxErr error
}

func (c *capturePublisher) PublishJSON(ctx context.Context, body any) error {
	c.ctxErr = ctx.Err()
	c.bodies = append(c.bodies, body)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPublishIgnoresCallerCancellation(t *testing.T) {
	cp := &capturePublisher{}
	p := NewRoleEventPublisher(cp, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Publish(ctx, entity.RoleEvent{ID: "e1"}))
	require.Len(t, cp.bodies, 1)
	assert.NoError(t, cp.ctxErr)
}

func TestDecodeRoleEvent(t *testing.T) {
	_, err := DecodeRoleEvent([]byte("{"))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = DecodeRoleEvent([]byte(`{"id":"e1","type":"role.custom_created"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	ev, err := DecodeRoleEvent([]byte(`{"id":"e1","type":"role.custom_created","school_id":"s1","role":"Coach"}`))
	require.NoError(t, err)
	assert.Equal(t, entity.RoleEventCustomCreated, ev.Type)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestAuditConsumerHandle(t *testing.T) {
	store := memory.NewStore()
	c := NewAuditConsumer(store.Audit(), quietLogger())

	body, err := json.Marshal(entity.RoleEvent{
		ID:          "e1",
		Type:        entity.RoleEventPermissionsUpdated,
		SchoolID:    "s1",
		Role:        entity.RoleTeacher,
		Permissions: []entity.Permission{entity.PermViewExams},
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, c.Handle(context.Background(), body))
	require.NoError(t, c.Handle(context.Background(), body))
	events := store.AuditEvents()
	require.Len(t, events, 1)
	assert.Equal(t, []entity.Permission{entity.PermViewExams}, events[0].Permissions)

	store.FailNext(assert.AnError)
	assert.ErrorIs(t, c.Handle(context.Background(), body), assert.AnError)
}
