// Package session resolves the local user identity and client paths.
package session

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/intransparency/msgcenter/internal/config"
)

// Roles a participant may hold on the platform.
var validRoles = []string{"student", "recruiter", "university", "admin"}

var idRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Identity is the authenticated user this client acts as. It is
// stamped on every SEND_MESSAGE frame; the server trusts it because
// authentication happened before the socket was opened.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

// Resolve determines the active identity using precedence:
// 1. command-line flags
// 2. config.toml [user] section
func Resolve(flagID, flagName, flagRole string, cfg *config.Config) Identity {
	id := Identity{
		UserID: cfg.User.ID,
		Name:   cfg.User.Name,
		Role:   cfg.User.Role,
	}
	if flagID != "" {
		id.UserID = flagID
	}
	if flagName != "" {
		id.Name = flagName
	}
	if flagRole != "" {
		id.Role = flagRole
	}
	if id.Role == "" {
		id.Role = "student"
	}
	return id
}

// Validate checks that the identity is usable.
func (i Identity) Validate() error {
	if !idRegexp.MatchString(i.UserID) {
		return fmt.Errorf("invalid user id %q: must match ^[A-Za-z0-9_-]{1,64}$", i.UserID)
	}
	if !slices.Contains(validRoles, i.Role) {
		return fmt.Errorf("invalid role %q: must be one of %v", i.Role, validRoles)
	}
	return nil
}
