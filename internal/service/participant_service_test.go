package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/roster"
)

func TestParticipantService_Resolve(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	db.addParticipant(3, "Siti Aminah")
	src := roster.New([]roster.Entry{{Name: "Putri", ExternalID: "12345", ClassLabel: "RPL"}})
	svc := NewParticipantService(participantStore{db}, src, testLogger())

	t.Run("ExistingCaseInsensitive", func(t *testing.T) {
		p, err := svc.Resolve(ctx, "  siti AMINAH ")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if p.ID != 3 {
			t.Errorf("expected participant 3, got %d", p.ID)
		}
	})

	t.Run("CreatedFromRoster", func(t *testing.T) {
		p, err := svc.Resolve(ctx, "putri")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if p.Name != "Putri" || p.ExternalID != "12345" || p.ClassLabel != "RPL" {
			t.Errorf("roster fields not copied verbatim: %+v", p)
		}

		again, err := svc.Resolve(ctx, "PUTRI")
		if err != nil {
			t.Fatalf("second Resolve: %v", err)
		}
		if again.ID != p.ID {
			t.Errorf("expected same participant, got %d and %d", p.ID, again.ID)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := svc.Resolve(ctx, "Nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := svc.Resolve(ctx, "   "); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for blank name, got %v", err)
		}
	})
}

func TestParticipantService_ConcurrentFirstLogin(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	src := roster.New([]roster.Entry{{Name: "Dimas", ExternalID: "1"}})
	svc := NewParticipantService(participantStore{db}, src, testLogger())

	const n = 16
	ids := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.Resolve(ctx, "dimas")
			if err != nil {
				t.Errorf("Resolve: %v", err)
				return
			}
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent logins produced different participants: %v", ids)
		}
	}
	if len(db.participants) != 1 {
		t.Errorf("expected 1 participant row, got %d", len(db.participants))
	}
}

func TestParticipantService_CreateConflict(t *testing.T) {
	db := newMemDB()
	db.addParticipant(1, "Rina")
	svc := NewParticipantService(participantStore{db}, nil, testLogger())

	_, err := svc.Create(context.Background(), &model.CreateParticipantRequest{Name: "RINA"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestParticipantService_ImportRoster(t *testing.T) {
	db := newMemDB()
	db.addParticipant(1, "Rina")
	src := roster.New([]roster.Entry{
		{Name: "rina"},
		{Name: "Bagas", ClassLabel: "XI"},
		{Name: "Citra", ClassLabel: "XII"},
	})
	svc := NewParticipantService(participantStore{db}, src, testLogger())

	res, err := svc.ImportRoster(context.Background())
	if err != nil {
		t.Fatalf("ImportRoster: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 1 || len(res.Errors) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestParticipantService_ExportXLSX(t *testing.T) {
	db := newMemDB()
	db.addParticipant(1, "Rina")
	db.addParticipant(2, "Bagas")
	svc := NewParticipantService(participantStore{db}, nil, testLogger())

	var buf bytes.Buffer
	if err := svc.ExportXLSX(context.Background(), &buf); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	r, err := roster.LoadXLSX(&buf)
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 exported rows, got %d", r.Len())
	}
}
