package domain

import "github.com/google/uuid"

// ActorContext identifies the acting back-office administrator. It is passed
// explicitly into every mutating call rather than read from ambient state.
type ActorContext struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

// System is the actor used by background jobs such as the lifecycle sweeper.
var System = ActorContext{ID: uuid.Nil, Role: "system"}
