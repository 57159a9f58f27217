// Package user defines the user model persisted by the storages
// and returned by the HTTP API.
package user

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents a registered account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr" json:"-"`

	// ID is the unique identifier of the user, meaning a UUID.
	ID string `bun:"id,pk" json:"id"`

	Name  string `bun:"name,notnull" json:"name"`
	Email string `bun:"email,notnull,unique" json:"email"`

	// Password holds the bcrypt hash, never the plain text.
	Password string `bun:"password,notnull" json:"-"`

	// Avatar is the blob name of the current avatar, nil if the user has none.
	Avatar *string `bun:"avatar,nullzero" json:"avatar"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// HasAvatar reports whether the user has an avatar reference.
func (u *User) HasAvatar() bool {
	return u.Avatar != nil && *u.Avatar != ""
}
