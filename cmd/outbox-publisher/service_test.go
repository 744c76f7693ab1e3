package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentloop/rentloop-backend/pkg/config"
	"github.com/rentloop/rentloop-backend/pkg/db/models"
	"github.com/rentloop/rentloop-backend/pkg/enums"
	"github.com/rentloop/rentloop-backend/pkg/logger"
	"github.com/rentloop/rentloop-backend/pkg/outbox"
	"github.com/rentloop/rentloop-backend/pkg/outbox/payloads"
	"github.com/rentloop/rentloop-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &memOutboxRepo{
		events: []models.OutboxEvent{
			outboxRow(t, "event-one"),
			outboxRow(t, "event-two"),
		},
	}
	pub := &scriptedPublisher{
		results: []publishResult{
			scriptedResult{err: errors.New("transient")},
			scriptedResult{},
		},
	}
	svc := newTestService(t, repo, pub, &staticRegistry{resolved: orderCreatedResolved()}, &memDLQRepo{}, nil)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("first event should be the only failed row, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("second event should be the only published row, got %v", repo.published)
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := outboxRow(t, "nonretryable")
	repo := &memOutboxRepo{events: []models.OutboxEvent{event}}
	resolver := &staticRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &memDLQRepo{}
	svc := newTestService(t, repo, &scriptedPublisher{}, resolver, dlqRepo, nil)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(dlqRepo.entries))
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := outboxRow(t, "max-attempts")
	event.AttemptCount = 1
	repo := &memOutboxRepo{events: []models.OutboxEvent{event}}
	pub := &scriptedPublisher{
		results: []publishResult{
			scriptedResult{err: errors.New("transient")},
		},
	}
	dlqRepo := &memDLQRepo{}
	svc := newTestService(t, repo, pub, &staticRegistry{resolved: orderCreatedResolved()}, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(dlqRepo.entries) != 1 {
		t.Fatalf("expected one dlq entry, got %d", len(dlqRepo.entries))
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, resolver registryResolver, dlq dlqRepository, outboxCfg *config.OutboxConfig) *Service {
	t.Helper()
	if outboxCfg == nil {
		outboxCfg = &config.OutboxConfig{
			BatchSize:      2,
			PollIntervalMS: 100,
			MaxAttempts:    5,
		}
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: *outboxCfg},
		Logger:           logg,
		DB:               &passthroughDB{},
		PubSub:           &noopPubSub{},
		Repository:       repo,
		DLQRepository:    dlq,
		Registry:         resolver,
		PublisherFactory: func(_ string) publisher { return pub },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return svc
}

func outboxRow(tb testing.TB, eventID string) models.OutboxEvent {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func orderCreatedResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "order-events",
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderCreatedEvent{},
	}
}

type memOutboxRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (m *memOutboxRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return m.events, nil
}

func (m *memOutboxRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memOutboxRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memOutboxRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	m.failed = append(m.failed, id)
	return nil
}

type passthroughDB struct{}

func (passthroughDB) Ping(context.Context) error {
	return nil
}

func (passthroughDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type noopPubSub struct{}

func (noopPubSub) Ping(context.Context) error {
	return nil
}

func (noopPubSub) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type scriptedPublisher struct {
	results []publishResult
}

func (p *scriptedPublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	if len(p.results) == 0 {
		return nil
	}
	next := p.results[0]
	p.results = p.results[1:]
	return next
}

type scriptedResult struct {
	err error
}

func (r scriptedResult) Get(context.Context) (string, error) {
	return "", r.err
}

type staticRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (s *staticRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.resolved == nil {
		return nil, s.err
	}
	resolved := *s.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, s.err
}

type memDLQRepo struct {
	entries []models.OutboxDLQ
}

func (m *memDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}
