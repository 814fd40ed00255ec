package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/githubpalak/gas-utility-portal/internal/config"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/repository/memory"
	"github.com/githubpalak/gas-utility-portal/internal/service"
)

type recordingPublisher struct {
	channels []string
	bodies   [][]byte
}

func (r *recordingPublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	r.channels = append(r.channels, channel)
	if body, ok := message.([]byte); ok {
		r.bodies = append(r.bodies, body)
	}
	cmd := redis.NewIntCmd(context.Background())
	cmd.SetVal(1)
	return cmd
}

func TestStartNotificationWorkerForwardsEvents(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:   dispatcher,
		IdentityRepo: store.Identities,
		RequestRepo:  store.Requests,
		Logger:       logger,
		Config:       config.NotificationConfig{EmailFrom: "noreply@gas.example"},
	})
	pub := &recordingPublisher{}
	sink := events.NewRedisSink(pub, "service-requests.events")

	StartNotificationWorker(dispatcher, notifications, sink, logger)

	if err := dispatcher.Publish(ctx, events.Event{ID: "evt-1", Type: events.EventRequestUpdated, Reference: "SR-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := dispatcher.Publish(ctx, events.Event{ID: "evt-2", Type: events.EventRequestCreated, Reference: "SR-2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(pub.channels) != 2 {
		t.Fatalf("expected both events forwarded, got %d", len(pub.channels))
	}
	if pub.channels[0] != "service-requests.events" {
		t.Fatalf("unexpected channel %q", pub.channels[0])
	}
	var decoded map[string]any
	if err := json.Unmarshal(pub.bodies[1], &decoded); err != nil {
		t.Fatalf("decode forwarded event: %v", err)
	}
	if decoded["id"] != "evt-2" {
		t.Fatalf("unexpected forwarded event: %v", decoded)
	}
	if logs.FilterMessage("ServiceRequestCreated").Len() != 1 {
		t.Fatalf("expected the notification handler to run")
	}
}

func TestStartNotificationWorkerWithoutSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)

	StartNotificationWorker(dispatcher, nil, nil, logger)

	if err := dispatcher.Publish(context.Background(), events.Event{ID: "evt-1", Type: events.EventRequestUpdated}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if logs.FilterMessage("forwarding domain events to redis").Len() != 0 {
		t.Fatalf("sink should not be wired")
	}
}
