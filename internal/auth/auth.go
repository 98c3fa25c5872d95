// Package auth gates operations on a verified claim set. Roles are a flat
// space: there is no hierarchy, and admin does not imply sponsor.
package auth

import (
	"fmt"
	"strings"

	"bountyline/internal/token"
)

// UnauthorizedError indicates a missing or unverified token.
type UnauthorizedError struct{}

func (UnauthorizedError) Error() string { return "authentication required" }

// ForbiddenError indicates an authenticated caller lacking a role,
// permission, or ownership of the target record.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string { return e.Reason }

// Identity is a verified caller. Source records which credential path
// produced it.
type Identity struct {
	Claims token.Claims
	Source string
}

const (
	SourceToken          = "token"
	SourceInternalHeader = "internal_header"
)

// RequireAuthenticated fails unless an identity is present.
func RequireAuthenticated(id *Identity) error {
	if id == nil || id.Claims.Subject == "" {
		return UnauthorizedError{}
	}
	return nil
}

// RequireRole admits the caller if its role is exactly one of oneOf.
// Membership is case-sensitive and flat.
func RequireRole(id *Identity, oneOf ...string) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	for _, r := range oneOf {
		if id.Claims.Role == r {
			return nil
		}
	}
	return ForbiddenError{Reason: fmt.Sprintf("role %s required", strings.Join(oneOf, " or "))}
}

// RequirePermission admits the caller if perm is exactly present in the
// claim set.
func RequirePermission(id *Identity, perm string) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	for _, p := range id.Claims.Permissions {
		if p == perm {
			return nil
		}
	}
	return ForbiddenError{Reason: fmt.Sprintf("permission %s required", perm)}
}
