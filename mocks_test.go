package sge_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	sge "github.com/sge-esporte/go-sge"
	"github.com/uptrace/bun"
)

// fakeIdentities is an in-memory Identities backend. The embedded
// interface is never reached; every method the code under test calls
// is implemented here.
type fakeIdentities struct {
	sge.Identities

	mu      sync.Mutex
	byEmail map[string]*sge.Identity
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byEmail: map[string]*sge.Identity{}}
}

func (f *fakeIdentities) add(record *sge.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.byEmail[sge.NormalizeEmail(record.Email)] = record
}

func (f *fakeIdentities) GetByEmail(ctx context.Context, email string) (*sge.Identity, error) {
	return f.GetByEmailTx(ctx, nil, email)
}

func (f *fakeIdentities) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*sge.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.byEmail[sge.NormalizeEmail(email)]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	copied := *record
	return &copied, nil
}

func (f *fakeIdentities) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*sge.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.byEmail {
		if record.ID.String() == id {
			copied := *record
			return &copied, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeIdentities) Create(ctx context.Context, record *sge.Identity, criteria ...repository.InsertCriteria) (*sge.Identity, error) {
	return f.CreateTx(ctx, nil, record, criteria...)
}

func (f *fakeIdentities) CreateTx(ctx context.Context, tx bun.IDB, record *sge.Identity, criteria ...repository.InsertCriteria) (*sge.Identity, error) {
	f.add(record)
	return record, nil
}

func (f *fakeIdentities) ClearPasswordFlags(ctx context.Context, id uuid.UUID) (*sge.Identity, error) {
	return f.ClearPasswordFlagsTx(ctx, nil, id)
}

func (f *fakeIdentities) ClearPasswordFlagsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*sge.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.byEmail {
		if record.ID == id {
			record.IsFirstLogin = false
			record.NeedsPasswordChange = false
			copied := *record
			return &copied, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeIdentities) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return f.ResetPasswordTx(ctx, nil, id, passwordHash)
}

func (f *fakeIdentities) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.byEmail {
		if record.ID == id {
			record.PasswordHash = passwordHash
			return nil
		}
	}
	return repository.NewRecordNotFound()
}

// fakeRequests is an in-memory Requests backend with the same
// check-and-set resolution semantics as the SQL statements.
type fakeRequests struct {
	sge.Requests

	mu   sync.Mutex
	byID map[uuid.UUID]*sge.RegistrationRequest
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{byID: map[uuid.UUID]*sge.RegistrationRequest{}}
}

func (f *fakeRequests) add(record *sge.RegistrationRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = sge.RequestPending
	}
	f.byID[record.ID] = record
}

func (f *fakeRequests) ListByStatus(ctx context.Context, status ...sge.RequestStatus) ([]*sge.RegistrationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*sge.RegistrationRequest
	for _, record := range f.byID {
		if len(status) > 0 {
			match := false
			for _, s := range status {
				if record.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		copied := *record
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeRequests) Create(ctx context.Context, record *sge.RegistrationRequest, criteria ...repository.InsertCriteria) (*sge.RegistrationRequest, error) {
	return f.CreateTx(ctx, nil, record, criteria...)
}

func (f *fakeRequests) CreateTx(ctx context.Context, tx bun.IDB, record *sge.RegistrationRequest, criteria ...repository.InsertCriteria) (*sge.RegistrationRequest, error) {
	f.add(record)
	return record, nil
}

func (f *fakeRequests) MarkApprovedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, resolvedBy string, resolvedAt time.Time, temporaryPassword string) (*sge.RegistrationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.byID[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	if record.Status != sge.RequestPending {
		return nil, sge.ErrRequestNotPending
	}

	record.Status = sge.RequestApproved
	record.ResolvedBy = resolvedBy
	record.ResolvedAt = &resolvedAt
	record.IssuedTemporaryPassword = temporaryPassword
	copied := *record
	return &copied, nil
}

func (f *fakeRequests) MarkRejectedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, resolvedBy string, resolvedAt time.Time, reason string) (*sge.RegistrationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.byID[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	if record.Status != sge.RequestPending {
		return nil, sge.ErrRequestNotPending
	}

	record.Status = sge.RequestRejected
	record.ResolvedBy = resolvedBy
	record.ResolvedAt = &resolvedAt
	record.RejectionReason = reason
	copied := *record
	return &copied, nil
}

// fakeRepo wires the two fakes into a RepositoryManager. RunInTx
// applies the callback directly; the fakes have no rollback, which the
// resolution tests account for by ordering the check-and-set first.
type fakeRepo struct {
	identities *fakeIdentities
	requests   *fakeRequests
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		identities: newFakeIdentities(),
		requests:   newFakeRequests(),
	}
}

func (f *fakeRepo) Validate() error { return nil }
func (f *fakeRepo) MustValidate()   {}

func (f *fakeRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(context.Context, bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (f *fakeRepo) Identities() sge.Identities { return f.identities }
func (f *fakeRepo) Requests() sge.Requests     { return f.requests }

// recordingSink captures activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []sge.ActivityEvent
}

func (r *recordingSink) Record(ctx context.Context, event sge.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) eventTypes() []sge.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sge.ActivityEventType
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// recordingNotifier captures console notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Success(message string) { r.record("success: " + message) }
func (r *recordingNotifier) Error(message string)   { r.record("error: " + message) }
func (r *recordingNotifier) Info(message string)    { r.record("info: " + message) }

func (r *recordingNotifier) record(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, entry)
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
