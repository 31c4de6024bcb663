package main

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/storage"
)

func TestSeedProviders(t *testing.T) {
	store := storage.NewMemory()
	if err := seedProviders(context.Background(), store); err != nil {
		t.Fatalf("seedProviders failed: %v", err)
	}
	if got := store.ListProviders(context.Background(), ""); len(got) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(got))
	}
	if err := seedProviders(context.Background(), store); err == nil {
		t.Fatal("seeding twice should fail on duplicate emails")
	}
}
