package sge

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var clearPasswordFlagsSQL = `UPDATE "identities" AS "idt"
SET
	"is_first_login" = FALSE,
	"needs_password_change" = FALSE,
	"updated_at" = ?
WHERE
	"idt"."id" = ?
RETURNING *;`

var resetIdentityPasswordSQL = `UPDATE "identities" AS "idt"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"idt"."id" = ?
RETURNING *;`

// Identities is the repository for Identity records.
type Identities interface {
	repository.Repository[*Identity]

	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error)
	Create(ctx context.Context, record *Identity, criteria ...repository.InsertCriteria) (*Identity, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Identity, criteria ...repository.InsertCriteria) (*Identity, error)
	ClearPasswordFlags(ctx context.Context, id uuid.UUID) (*Identity, error)
	ClearPasswordFlagsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Identity, error)
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type identities struct {
	repository.Repository[*Identity]
	db *bun.DB
}

var _ Identities = (*identities)(nil)

// NewIdentitiesRepository wires the Identity model into the generic
// repository layer.
func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*Identity](db, repository.ModelHandlers[*Identity]{
		NewRecord: func() *Identity { return &Identity{} },
		GetID: func(i *Identity) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Identity, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &identities{Repository: repo, db: db}
}

func (a *identities) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *identities) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Identity, error) {
	record := &Identity{}
	err := tx.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}
	return record, nil
}

func (a *identities) Create(ctx context.Context, record *Identity, criteria ...repository.InsertCriteria) (*Identity, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *identities) CreateTx(ctx context.Context, tx bun.IDB, record *Identity, criteria ...repository.InsertCriteria) (*Identity, error) {
	prepareIdentityDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *identities) ClearPasswordFlags(ctx context.Context, id uuid.UUID) (*Identity, error) {
	return a.ClearPasswordFlagsTx(ctx, a.db, id)
}

func (a *identities) ClearPasswordFlagsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Identity, error) {
	res, err := a.Repository.RawTx(ctx, tx, clearPasswordFlagsSQL, time.Now(), id.String())
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}
	return res[0], nil
}

func (a *identities) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *identities) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, resetIdentityPasswordSQL, passwordHash, time.Now(), id.String())
	if err != nil {
		return err
	}
	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}
	return nil
}

func prepareIdentityDefaults(record *Identity) {
	if record == nil {
		return
	}
	record.NormalizeEmail()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// VerifyLocalIdentity resolves an identity from the local store and
// checks the password against its bcrypt hash. Used by the gateway
// when the remote authority is unreachable, so identities minted by
// the approval workbench stay authenticatable offline.
func VerifyLocalIdentity(ctx context.Context, repo Identities, email, password string) (*Identity, error) {
	identity, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve identity")
	}

	if identity.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, identity.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return identity, nil
}
