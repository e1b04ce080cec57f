package types

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidPermission = errors.New("invalid share permission")

// Share permissions
const (
	PermissionReadOnly  = "read-only"
	PermissionReadWrite = "read-write"
)

// Share grants access to a single item through an unguessable token.
type Share struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	Token      string    `json:"token"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"created_at"`
}

// URL renders the public link for the share under base.
func (s *Share) URL(base string) string {
	return strings.TrimRight(base, "/") + "/shared/" + s.Token
}

func (s *Share) CanWrite() bool {
	return s.Permission == PermissionReadWrite
}

func ValidPermission(p string) bool {
	return p == PermissionReadOnly || p == PermissionReadWrite
}
