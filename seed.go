package sge

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// SeedManagerIdentity makes sure the bootstrap manager account
// exists so a fresh installation can sign in and start approving
// registrations. Existing records are left untouched; re-seeding is a
// no-op.
func SeedManagerIdentity(ctx context.Context, repo RepositoryManager, cred FallbackCredential) (*Identity, error) {
	email := NormalizeEmail(cred.Email)

	existing, err := repo.Identities().GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve seed identity")
	}

	hash, err := HashPassword(cred.Password)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		Name:         cred.Name,
		Email:        email,
		Role:         RoleGestor,
		PasswordHash: hash,
	}
	if id, err := hashid.NewUUID(email); err == nil {
		identity.ID = id
	}

	created, err := repo.Identities().Create(ctx, identity)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed manager identity")
	}
	return created, nil
}
