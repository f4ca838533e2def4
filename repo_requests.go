package sge

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// The resolve statements carry the status precondition in the WHERE
// clause. Zero rows back means the request was already resolved (or
// never existed); two concurrent approvers can never both succeed.
var approveRequestSQL = `UPDATE "registration_requests" AS "req"
SET
	"status" = 'approved',
	"resolved_by" = ?,
	"resolved_at" = ?,
	"issued_temporary_password" = ?
WHERE
	"req"."id" = ?
	AND "req"."status" = 'pending'
RETURNING *;`

var rejectRequestSQL = `UPDATE "registration_requests" AS "req"
SET
	"status" = 'rejected',
	"resolved_by" = ?,
	"resolved_at" = ?,
	"rejection_reason" = ?
WHERE
	"req"."id" = ?
	AND "req"."status" = 'pending'
RETURNING *;`

// Requests is the repository for RegistrationRequest records.
type Requests interface {
	repository.Repository[*RegistrationRequest]

	ListByStatus(ctx context.Context, status ...RequestStatus) ([]*RegistrationRequest, error)
	Create(ctx context.Context, record *RegistrationRequest, criteria ...repository.InsertCriteria) (*RegistrationRequest, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *RegistrationRequest, criteria ...repository.InsertCriteria) (*RegistrationRequest, error)
	MarkApprovedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, resolvedBy string, resolvedAt time.Time, temporaryPassword string) (*RegistrationRequest, error)
	MarkRejectedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, resolvedBy string, resolvedAt time.Time, reason string) (*RegistrationRequest, error)
}

type requests struct {
	repository.Repository[*RegistrationRequest]
	db *bun.DB
}

var _ Requests = (*requests)(nil)

// NewRequestsRepository wires the RegistrationRequest model into the
// generic repository layer.
func NewRequestsRepository(db *bun.DB) Requests {
	repo := repository.NewRepository[*RegistrationRequest](db, repository.ModelHandlers[*RegistrationRequest]{
		NewRecord: func() *RegistrationRequest { return &RegistrationRequest{} },
		GetID: func(r *RegistrationRequest) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RegistrationRequest, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &requests{Repository: repo, db: db}
}

func (a *requests) ListByStatus(ctx context.Context, status ...RequestStatus) ([]*RegistrationRequest, error) {
	var records []*RegistrationRequest
	q := a.db.NewSelect().
		Model(&records).
		Order("submitted_at ASC")

	if len(status) > 0 {
		q = q.Where("?TableAlias.status IN (?)", bun.In(status))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *requests) Create(ctx context.Context, record *RegistrationRequest, criteria ...repository.InsertCriteria) (*RegistrationRequest, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *requests) CreateTx(ctx context.Context, tx bun.IDB, record *RegistrationRequest, criteria ...repository.InsertCriteria) (*RegistrationRequest, error) {
	prepareRequestDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *requests) MarkApprovedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, resolvedBy string, resolvedAt time.Time, temporaryPassword string) (*RegistrationRequest, error) {
	return a.resolveTx(ctx, tx, approveRequestSQL, resolvedBy, resolvedAt, temporaryPassword, id)
}

func (a *requests) MarkRejectedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, resolvedBy string, resolvedAt time.Time, reason string) (*RegistrationRequest, error) {
	return a.resolveTx(ctx, tx, rejectRequestSQL, resolvedBy, resolvedAt, reason, id)
}

func (a *requests) resolveTx(ctx context.Context, tx bun.IDB, query string, resolvedBy string, resolvedAt time.Time, payload string, id uuid.UUID) (*RegistrationRequest, error) {
	res, err := a.Repository.RawTx(ctx, tx, query, resolvedBy, resolvedAt, payload, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		// distinguish "already resolved" from "no such request";
		// the lookup must ride the open transaction or it blocks on
		// the connection the transaction holds
		if _, err := a.Repository.GetByIDTx(ctx, tx, id.String()); err != nil {
			if repository.IsRecordNotFound(err) {
				return nil, repository.NewRecordNotFound().
					WithMetadata(map[string]any{"id": id.String()})
			}
			return nil, err
		}
		return nil, ErrRequestNotPending.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return res[0], nil
}

func prepareRequestDefaults(record *RegistrationRequest) {
	if record == nil {
		return
	}
	record.Email = NormalizeEmail(record.Email)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = RequestPending
	}
	if record.SubmittedAt == nil {
		now := time.Now()
		record.SubmittedAt = &now
	}
}
