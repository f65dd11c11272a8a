package service

import (
	"github.com/xiaot623/gogo/fieldops/internal/clock"
	"github.com/xiaot623/gogo/fieldops/internal/domain"
	"github.com/xiaot623/gogo/fieldops/internal/policy"
	"github.com/xiaot623/gogo/fieldops/internal/repository"
)

// Publisher receives session events after a successful write. Publish
// must not block.
type Publisher interface {
	Publish(event domain.SessionEvent)
}

type Service struct {
	store        store.Store
	clock        clock.Clock
	policyEngine *policy.Engine
	publisher    Publisher
}

// New creates a Service. A nil clock uses the wall clock; a nil policy
// engine or publisher disables that step.
func New(store store.Store, clk clock.Clock, policyEngine *policy.Engine, publisher Publisher) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		store:        store,
		clock:        clk,
		policyEngine: policyEngine,
		publisher:    publisher,
	}
}
