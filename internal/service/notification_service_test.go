package service

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/githubpalak/gas-utility-portal/internal/config"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

func TestNotificationsReachCustomer(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.DebugLevel)
	notifications := NewNotificationService(NotificationDependencies{
		Dispatcher:   f.dispatcher,
		IdentityRepo: f.store.Identities,
		RequestRepo:  f.store.Requests,
		Logger:       zap.New(core),
		Config:       config.NotificationConfig{EmailFrom: "noreply@gas.example"},
	})
	notifications.RegisterHandlers()

	req := f.newRequest(t, f.customer1)
	if _, err := f.requests.ChangeStatus(f.ctx, f.agent, req.ID, domain.StatusInProgress, ""); err != nil {
		t.Fatalf("change status: %v", err)
	}
	if _, err := f.requests.Assign(f.ctx, f.manager, req.ID, &f.agent.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.discussion.AddComment(f.ctx, f.customer1, req.ID, "thanks", false); err != nil {
		t.Fatalf("customer comment: %v", err)
	}
	if _, err := f.discussion.AddComment(f.ctx, f.agent, req.ID, "internal", true); err != nil {
		t.Fatalf("note: %v", err)
	}
	if _, err := f.discussion.AddComment(f.ctx, f.agent, req.ID, "crew on the way", false); err != nil {
		t.Fatalf("agent comment: %v", err)
	}

	sent := logs.FilterMessage("sendEmailNotificationStub").All()
	// created, status change, assignment, public staff reply
	if len(sent) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(sent))
	}
	recipients := map[string]int{}
	for _, entry := range sent {
		recipients[entry.ContextMap()["to"].(string)]++
	}
	if recipients[f.customer1.Email] != 3 || recipients[f.agent.Email] != 1 {
		t.Fatalf("unexpected recipients: %+v", recipients)
	}
}

func TestNotificationsSilentWithoutSender(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.DebugLevel)
	NewNotificationService(NotificationDependencies{
		Dispatcher:   f.dispatcher,
		IdentityRepo: f.store.Identities,
		RequestRepo:  f.store.Requests,
		Logger:       zap.New(core),
	}).RegisterHandlers()

	f.newRequest(t, f.customer1)
	if n := logs.FilterMessage("sendEmailNotificationStub").Len(); n != 0 {
		t.Fatalf("expected no email stubs, got %d", n)
	}
	if n := logs.FilterMessage("ServiceRequestCreated").Len(); n != 1 {
		t.Fatalf("expected the created event to be logged once, got %d", n)
	}
}
