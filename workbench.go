package sge

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Workbench is the approval surface for pending registration
// requests. Listing is manager-only; approve and reject additionally
// require the users capability (or the all grant).
type Workbench struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
	now      func() time.Time
	generate func() string
}

// NewWorkbench creates a workbench over the durable store.
func NewWorkbench(repo RepositoryManager) *Workbench {
	return &Workbench{
		repo:     repo,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
		generate: func() string { return GenerateTemporaryPassword(MinPasswordLength) },
	}
}

func (w *Workbench) WithLogger(logger Logger) *Workbench {
	if logger != nil {
		w.logger = logger
	}
	return w
}

func (w *Workbench) WithActivitySink(sink ActivitySink) *Workbench {
	w.activity = normalizeActivitySink(sink)
	return w
}

// WithClock injects a custom clock (useful for tests).
func (w *Workbench) WithClock(clock func() time.Time) *Workbench {
	if clock != nil {
		w.now = clock
	}
	return w
}

// WithCredentialGenerator overrides the temporary password source.
func (w *Workbench) WithCredentialGenerator(generate func() string) *Workbench {
	if generate != nil {
		w.generate = generate
	}
	return w
}

// ListRequests returns registration requests, optionally filtered by
// status. Only a manager may reach the workbench at all; any other
// role is refused access, not merely shown an empty list.
func (w *Workbench) ListRequests(ctx context.Context, viewer *Identity, status ...RequestStatus) ([]*RegistrationRequest, error) {
	if viewer == nil || viewer.Role != RoleGestor {
		return nil, ErrNotAuthorized
	}
	return w.repo.Requests().ListByStatus(ctx, status...)
}

// Approve resolves a pending request: it generates a temporary
// credential, creates the identity with both rotation flags set, and
// marks the request approved. The three effects commit atomically;
// the status check-and-set guarantees exactly one winner between
// concurrent approvers.
func (w *Workbench) Approve(ctx context.Context, requestID uuid.UUID, approver *Identity) (*RegistrationRequest, error) {
	if err := w.authorizeApprover(approver); err != nil {
		return nil, err
	}

	var resolved *RegistrationRequest

	err := w.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		temporaryPassword := w.generate()

		request, err := w.repo.Requests().MarkApprovedTx(ctx, tx, requestID, approver.Email, w.now(), temporaryPassword)
		if err != nil {
			return err
		}

		hash, err := HashPassword(temporaryPassword)
		if err != nil {
			return err
		}

		identity := &Identity{
			Name:                request.Name,
			Email:               request.Email,
			Role:                request.RequestedRole,
			PasswordHash:        hash,
			IsFirstLogin:        true,
			NeedsPasswordChange: true,
		}
		if id, err := hashid.NewUUID(request.Email); err == nil {
			identity.ID = id
		}

		if _, err := w.repo.Identities().CreateTx(ctx, tx, identity); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create identity")
		}

		resolved = request
		return nil
	})

	if err != nil {
		if goerrors.Is(err, ErrRequestNotPending) {
			return nil, ErrRequestNotPending
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "approval transaction failed")
	}

	w.emit(ctx, ActivityEventApprovalGranted, approver, resolved)
	return resolved, nil
}

// Reject resolves a pending request with a mandatory reason. Terminal
// like Approve; the second resolution attempt on a request always
// fails with ErrRequestNotPending.
func (w *Workbench) Reject(ctx context.Context, requestID uuid.UUID, approver *Identity, reason string) (*RegistrationRequest, error) {
	if err := w.authorizeApprover(approver); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingRejectionReason
	}

	var resolved *RegistrationRequest

	err := w.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		request, err := w.repo.Requests().MarkRejectedTx(ctx, tx, requestID, approver.Email, w.now(), reason)
		if err != nil {
			return err
		}
		resolved = request
		return nil
	})

	if err != nil {
		if goerrors.Is(err, ErrRequestNotPending) {
			return nil, ErrRequestNotPending
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "rejection transaction failed")
	}

	w.emit(ctx, ActivityEventApprovalRejected, approver, resolved)
	return resolved, nil
}

// authorizeApprover cross-checks the capability table, not the
// navigation filter: approvers need users or all.
func (w *Workbench) authorizeApprover(approver *Identity) error {
	if approver == nil || !CanPerform(approver.Role, CapabilityUsers) {
		return ErrNotAuthorized
	}
	return nil
}

func (w *Workbench) emit(ctx context.Context, event ActivityEventType, approver *Identity, request *RegistrationRequest) {
	metadata := map[string]any{
		"email": request.Email,
		"role":  request.RequestedRole,
	}
	if request.RejectionReason != "" {
		metadata["reason"] = request.RejectionReason
	}

	err := w.activity.Record(ctx, ActivityEvent{
		EventType:  event,
		Actor:      ActorRef{ID: approver.Email, Type: "identity"},
		SubjectID:  request.ID.String(),
		Metadata:   metadata,
		OccurredAt: w.now(),
	})
	if err != nil {
		w.logger.Error("failed to record approval activity", "error", err)
	}
}
