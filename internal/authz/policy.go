package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrUnknownSubject is returned by a RoleSource that answered but has no
// record for the user. The resolver treats it as a plain "user", not a failure.
var ErrUnknownSubject = errors.New("unknown subject")

// Policy holds the owner allow-list. It never changes after construction.
type Policy struct {
	owners map[string]struct{}
}

func NewPolicy(ownerEmails []string) *Policy {
	return &Policy{owners: emailSet(ownerEmails)}
}

// IsOwner matches the allow-list only against an email the user has proven
// they control. Anyone can register an unverified address.
func (p *Policy) IsOwner(email string, verified bool) bool {
	if !verified {
		return false
	}
	_, ok := p.owners[normalizeEmail(email)]
	return ok
}

// ResolveRole returns owner for allow-listed verified emails regardless of the
// stored value, the stored role when it is valid, and user otherwise.
func (p *Policy) ResolveRole(email string, verified bool, storedRole string) Role {
	if p.IsOwner(email, verified) {
		return RoleOwner
	}
	if r, ok := ParseRole(storedRole); ok {
		return r
	}
	return RoleUser
}

func (p *Policy) HasPermission(email string, verified bool, storedRole string, perm Permission) bool {
	return Can(p.ResolveRole(email, verified, storedRole), perm)
}

// Permissions returns the full flag set for a role.
func Permissions(role Role) map[string]bool {
	out := make(map[string]bool, len(AllPermissions))
	for _, perm := range AllPermissions {
		out[string(perm)] = Can(role, perm)
	}
	return out
}

// RoleSource supplies a stored role string for a user. email is empty unless
// it has been verified.
type RoleSource interface {
	StoredRole(ctx context.Context, userID uuid.UUID, email string) (string, error)
}

// AllowList maps emails to roles from static configuration. It never fails.
type AllowList struct {
	roles map[string]Role
}

func NewAllowList(admins, moderators, uploaders []string) *AllowList {
	roles := make(map[string]Role)
	// Lowest first so a higher list overwrites a duplicate entry.
	for email := range emailSet(uploaders) {
		roles[email] = RoleUploader
	}
	for email := range emailSet(moderators) {
		roles[email] = RoleModerator
	}
	for email := range emailSet(admins) {
		roles[email] = RoleAdmin
	}
	return &AllowList{roles: roles}
}

func (a *AllowList) StoredRole(_ context.Context, _ uuid.UUID, email string) (string, error) {
	if r, ok := a.roles[normalizeEmail(email)]; ok {
		return string(r), nil
	}
	return string(RoleUser), nil
}

// Resolver is the single entry point for role resolution. Sources are tried
// in order and the next one is consulted only when the previous one failed.
type Resolver struct {
	policy  *Policy
	sources []RoleSource
}

func NewResolver(policy *Policy, sources ...RoleSource) *Resolver {
	return &Resolver{policy: policy, sources: sources}
}

func (r *Resolver) Policy() *Policy {
	return r.policy
}

// Resolve never returns a role above what a source granted. Email allow-lists
// apply only when emailVerified is set; otherwise only the stored role counts.
// When every source fails the caller gets RoleUser together with the joined errors.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, email string, emailVerified bool) (Role, error) {
	if r.policy.IsOwner(email, emailVerified) {
		return RoleOwner, nil
	}

	trusted := ""
	if emailVerified {
		trusted = email
	}

	var errs []error
	for i, src := range r.sources {
		stored, err := src.StoredRole(ctx, userID, trusted)
		if errors.Is(err, ErrUnknownSubject) {
			return RoleUser, nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("role source %d: %w", i, err))
			continue
		}
		return r.policy.ResolveRole(email, emailVerified, stored), nil
	}
	if len(errs) == 0 {
		return RoleUser, nil
	}
	return RoleUser, errors.Join(errs...)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if n := normalizeEmail(e); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
