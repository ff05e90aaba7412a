package service

import (
	"fmt"

	"shopdesk/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID  uuid.UUID
	OwnerID uuid.UUID
	Role    string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func (a Actor) requireAdmin() error {
	if !a.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

func (a Actor) userRef() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
