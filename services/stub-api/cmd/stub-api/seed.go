package main

import (
	"context"

	"github.com/md-rashed-zaman/barberbook/services/stub-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// seedProviders registers a few barbers so a fresh client has someone to book.
// They all share the password "barber1".
func seedProviders(ctx context.Context, store *storage.Memory) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("barber1"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	for _, p := range []struct{ name, email string }{
		{"Carlos Navalha", "carlos@barberbook.dev"},
		{"Diego Tesoura", "diego@barberbook.dev"},
		{"Marta Pente", "marta@barberbook.dev"},
	} {
		if _, err := store.CreateUser(ctx, storage.User{Name: p.name, Email: p.email, PasswordHash: string(hash)}); err != nil {
			return err
		}
	}
	return nil
}
