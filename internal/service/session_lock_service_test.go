package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stemsi/ujian-proctor/internal/model"
)

func TestSessionLockService_ConsentThenEngage(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.db.addAttempt(10, 3, 7, model.AttemptStarted)
	f.db.addLock(20, 10, "tok-10")

	t.Run("EngageBeforeConsent", func(t *testing.T) {
		if _, err := f.lockSvc.Engage(ctx, "tok-10", 3, ClientInfo{}); !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	st, err := f.lockSvc.Consent(ctx, ConsentInput{SessionToken: "tok-10", ParticipantID: 3, ScreenResolution: "1920x1080"})
	if err != nil {
		t.Fatalf("Consent: %v", err)
	}
	if !st.Consented || st.Valid {
		t.Errorf("expected consented but not yet valid, got %+v", st)
	}
	first := *f.db.locks[20].ConsentedAt

	if _, err := f.lockSvc.Consent(ctx, ConsentInput{SessionToken: "tok-10", ParticipantID: 3}); err != nil {
		t.Fatalf("second Consent: %v", err)
	}
	if !f.db.locks[20].ConsentedAt.Equal(first) {
		t.Error("repeated consent must keep the first timestamp")
	}

	st, err = f.lockSvc.Engage(ctx, "tok-10", 3, ClientInfo{IPAddress: "10.0.0.3"})
	if err != nil {
		t.Fatalf("Engage: %v", err)
	}
	if !st.Locked || !st.Valid {
		t.Errorf("expected valid lock, got %+v", st)
	}
	if _, err := f.lockSvc.Engage(ctx, "tok-10", 3, ClientInfo{}); err != nil {
		t.Fatalf("second Engage: %v", err)
	}
	if n := len(f.db.eventsOfType(model.EventLock)); n != 1 {
		t.Errorf("expected 1 LOCK event, got %d", n)
	}
}

func TestSessionLockService_ValidityFollowsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.db.addAttempt(10, 3, 7, model.AttemptStarted)
	f.db.addLock(20, 10, "tok-10")

	if _, err := f.lockSvc.Consent(ctx, ConsentInput{SessionToken: "tok-10", ParticipantID: 3}); err != nil {
		t.Fatalf("Consent: %v", err)
	}
	if _, err := f.lockSvc.Engage(ctx, "tok-10", 3, ClientInfo{}); err != nil {
		t.Fatalf("Engage: %v", err)
	}

	if _, err := f.attemptSvc.BulkTransition(ctx, []int{10}, model.AttemptDisqualified); err != nil {
		t.Fatalf("BulkTransition: %v", err)
	}

	st, err := f.lockSvc.Status(ctx, "tok-10", 3, ClientInfo{})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Valid {
		t.Error("lock must be invalid once the attempt is disqualified")
	}
	if !st.Locked || !st.Consented {
		t.Errorf("stored flags must be untouched, got %+v", st)
	}

	active, err := f.lockSvc.ListActive(ctx, nil)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active locks, got %d", len(active))
	}
}

func TestSessionLockService_Unlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.db.addAttempt(10, 3, 7, model.AttemptStarted)
	f.db.addLock(20, 10, "tok-10")
	_, _ = f.lockSvc.Consent(ctx, ConsentInput{SessionToken: "tok-10", ParticipantID: 3})
	_, _ = f.lockSvc.Engage(ctx, "tok-10", 3, ClientInfo{})

	if _, err := f.lockSvc.Unlock(ctx, 20, "wrong", 1, ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if !f.db.locks[20].Locked {
		t.Fatal("wrong token must not unlock")
	}

	st, err := f.lockSvc.Unlock(ctx, 20, "unlock-tok-10", 1, ClientInfo{})
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if st.Locked || st.Valid {
		t.Errorf("expected released lock, got %+v", st)
	}
	if got := f.db.locks[20].UnlockAttempts; got != 2 {
		t.Errorf("expected 2 unlock attempts, got %d", got)
	}
	if n := len(f.db.eventsOfType(model.EventUnlockAttempt)); n != 2 {
		t.Errorf("expected 2 UNLOCK_ATTEMPT events, got %d", n)
	}
	if n := len(f.db.eventsOfType(model.EventUnlockFailed)); n != 1 {
		t.Errorf("expected 1 UNLOCK_FAILED event, got %d", n)
	}
	if n := len(f.db.eventsOfType(model.EventUnlockSuccess)); n != 1 {
		t.Errorf("expected 1 UNLOCK_SUCCESS event, got %d", n)
	}

	if _, err := f.lockSvc.Unlock(ctx, 404, "x", 1, ClientInfo{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionLockService_Tamper(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.db.addAttempt(10, 3, 7, model.AttemptStarted)
	f.db.addLock(20, 10, "tok-10")

	if _, err := f.lockSvc.Status(ctx, "tok-10", 5, ClientInfo{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign token, got %v", err)
	}
	if _, err := f.lockSvc.Status(ctx, "bogus", 3, ClientInfo{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown token, got %v", err)
	}
	events := f.db.eventsOfType(model.EventSessionTamper)
	if len(events) != 2 {
		t.Fatalf("expected 2 SESSION_TAMPER events, got %d", len(events))
	}
	if events[0].SessionLockID == nil || *events[0].SessionLockID != 20 {
		t.Error("foreign token event should reference the lock")
	}
	if events[1].SessionLockID != nil {
		t.Error("unknown token event has no lock")
	}
}

func TestSessionLockService_RegenerateTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.db.addAttempt(10, 3, 7, model.AttemptStarted)
	f.db.addLock(20, 10, "tok-10")

	tokens, err := f.lockSvc.RegenerateTokens(ctx, 20, 1)
	if err != nil {
		t.Fatalf("RegenerateTokens: %v", err)
	}
	if tokens.SessionToken == "tok-10" || len(tokens.UnlockToken) != unlockTokenLength {
		t.Errorf("tokens not rotated: %+v", tokens)
	}
	if _, err := f.lockSvc.Status(ctx, "tok-10", 3, ClientInfo{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("old session token must stop working, got %v", err)
	}

	got, err := f.lockSvc.Tokens(ctx, 20)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if *got != *tokens {
		t.Errorf("Tokens returned %+v, want %+v", got, tokens)
	}
}

func TestSecurityEventService_ListRecent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lockID := 20
	for i := 0; i < 5; i++ {
		if err := f.events.Record(ctx, &lockID, model.EventPageViolation, "x", ClientInfo{}, nil); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	_ = f.events.Record(ctx, nil, model.EventSessionTamper, "y", ClientInfo{}, nil)

	all, err := f.events.ListRecent(ctx, model.SecurityEventFilter{})
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(all) != 6 || all[0].EventType != model.EventSessionTamper {
		t.Fatalf("expected newest first, got %d events starting with %v", len(all), all[0].EventType)
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID > all[i-1].ID {
			t.Fatal("events not in reverse-chronological order")
		}
	}

	byLock, _ := f.events.ListRecent(ctx, model.SecurityEventFilter{SessionLockID: &lockID, Limit: 2})
	if len(byLock) != 2 {
		t.Errorf("expected 2 events for lock with limit, got %d", len(byLock))
	}
	before := byLock[1].ID
	older, _ := f.events.ListRecent(ctx, model.SecurityEventFilter{SessionLockID: &lockID, BeforeID: &before})
	if len(older) != 3 {
		t.Errorf("expected 3 older events, got %d", len(older))
	}
}
