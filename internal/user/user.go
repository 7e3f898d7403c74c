package user

import (
	"time"

	"github.com/workstream/access-management/internal"
)

// User is a read-only view of the application's user record. The engine
// never mutates users; it only verifies assignment targets and reads the
// attributes scope checks depend on.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var ErrUserNotFound = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
