package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// CreateAccount inserts an account projection and returns it.
func CreateAccount(t *testing.T, s store.Store, firstName, lastName string) *domain.Account {
	t.Helper()

	account := &domain.Account{FirstName: firstName, LastName: lastName}
	if err := s.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

// CreateMission inserts a mission projection and returns it.
func CreateMission(t *testing.T, s store.Store, description string, canceled bool) *domain.Mission {
	t.Helper()

	mission := &domain.Mission{Description: description, Canceled: canceled}
	if err := s.CreateMission(context.Background(), mission); err != nil {
		t.Fatalf("failed to create mission: %v", err)
	}
	return mission
}
