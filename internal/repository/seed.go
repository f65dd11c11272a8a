package store

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/fieldops/internal/domain"
)

// Seed inserts demo accounts and missions into an empty database. It is a
// no-op when account 1 already exists.
func Seed(ctx context.Context, s Store) (bool, error) {
	existing, err := s.GetAccount(ctx, 1)
	if err != nil {
		return false, fmt.Errorf("failed to check seed data: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	accounts := []domain.Account{
		{FirstName: "Camille", LastName: "Durand"},
		{FirstName: "Hugo", LastName: "Martin"},
		{FirstName: "Lea", LastName: "Bernard"},
	}
	for i := range accounts {
		if err := s.CreateAccount(ctx, &accounts[i]); err != nil {
			return false, fmt.Errorf("failed to seed account %s %s: %w", accounts[i].FirstName, accounts[i].LastName, err)
		}
	}

	missions := []domain.Mission{
		{Description: "Boiler maintenance, 12 rue des Lilas"},
		{Description: "Fiber installation, industrial park north"},
		{Description: "Roof inspection (client canceled)", Canceled: true},
	}
	for i := range missions {
		if err := s.CreateMission(ctx, &missions[i]); err != nil {
			return false, fmt.Errorf("failed to seed mission %q: %w", missions[i].Description, err)
		}
	}
	return true, nil
}
