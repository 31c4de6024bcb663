package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUsersAreUniqueByEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	u, err := m.CreateUser(ctx, User{Name: "Ana", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := m.CreateUser(ctx, User{Name: "Other", Email: "A@B.com "}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	got, err := m.GetByEmail(ctx, "A@b.COM")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail: %+v %v", got, err)
	}
}

func TestUpdateUserReindexesEmail(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ana, _ := m.CreateUser(ctx, User{Name: "Ana", Email: "a@b.com"})
	_, _ = m.CreateUser(ctx, User{Name: "Bia", Email: "bia@b.com"})

	ana.Email = "bia@b.com"
	if err := m.UpdateUser(ctx, ana); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	ana.Email = "ana@b.com"
	if err := m.UpdateUser(ctx, ana); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if _, err := m.GetByEmail(ctx, "a@b.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old email should be released, got %v", err)
	}
	if got, _ := m.GetByEmail(ctx, "ana@b.com"); got.ID != ana.ID {
		t.Fatalf("new email not indexed: %+v", got)
	}
}

func TestListProvidersExcludesCaller(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	me, _ := m.CreateUser(ctx, User{Name: "Zeca", Email: "z@b.com"})
	_, _ = m.CreateUser(ctx, User{Name: "Carlos", Email: "c@b.com"})
	_, _ = m.CreateUser(ctx, User{Name: "Ana", Email: "a@b.com"})

	got := m.ListProviders(ctx, me.ID)
	if len(got) != 2 || got[0].Name != "Ana" || got[1].Name != "Carlos" {
		t.Fatalf("unexpected providers %+v", got)
	}
}

func TestAppointmentsBlockTheirHour(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	at := time.Date(2026, 1, 28, 14, 0, 0, 0, time.UTC)
	if _, err := m.CreateAppointment(ctx, Appointment{ProviderID: "p1", UserID: "u1", Date: at}); err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	if _, err := m.CreateAppointment(ctx, Appointment{ProviderID: "p1", UserID: "u2", Date: at}); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if _, err := m.CreateAppointment(ctx, Appointment{ProviderID: "p2", UserID: "u2", Date: at}); err != nil {
		t.Fatalf("another provider should be free: %v", err)
	}

	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	busy := m.BusyIntervals(ctx, "p1", day, day.Add(24*time.Hour))
	if len(busy) != 1 || !busy[0].Start.Equal(at) || !busy[0].End.Equal(at.Add(time.Hour)) {
		t.Fatalf("unexpected busy intervals %+v", busy)
	}
	if busy := m.BusyIntervals(ctx, "p1", day.Add(24*time.Hour), day.Add(48*time.Hour)); len(busy) != 0 {
		t.Fatalf("next day should be free, got %+v", busy)
	}
}
