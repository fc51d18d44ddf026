package cache

import "github.com/bacstack/bacnet-go/pkg/clock"

// Entity is a cached value with the expiry state computed by its policy at
// insertion. It is immutable; replacing a value means storing a new Entity.
type Entity[T any] struct {
	value  T
	policy Policy
	state  State
}

// NewEntity wraps value, preparing its expiry state from policy.
func NewEntity[T any](c clock.Clock, value T, policy Policy) *Entity[T] {
	return &Entity[T]{
		value:  value,
		policy: policy,
		state:  policy.PrepareState(c),
	}
}

// Value returns the cached value.
func (e *Entity[T]) Value() T {
	return e.value
}

// Policy returns the policy the entity was stored under.
func (e *Entity[T]) Policy() Policy {
	return e.policy
}

// HasExpired reports whether the entity is stale at the clock's time.
func (e *Entity[T]) HasExpired(c clock.Clock) bool {
	return e.policy.HasExpired(c, e.state)
}
