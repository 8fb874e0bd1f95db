package service

import (
	"sync"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/resilience"
)

// latchSet keys one in-flight latch per resource. A second call for the
// same key while the first is pending gets ErrInFlight.
type latchSet struct {
	m sync.Map // string -> *resilience.Latch
}

func (s *latchSet) acquire(op, key string) (func(), error) {
	v, _ := s.m.LoadOrStore(key, &resilience.Latch{})
	l := v.(*resilience.Latch)
	if !l.TryAcquire() {
		return nil, &domain.ErrInFlight{Operation: op}
	}
	return l.Release, nil
}
