package sge

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is a coarse account category gating navigation
type Role = string

const (
	// RoleGestor manages the whole program, including user approvals
	RoleGestor Role = "gestor"
	// RoleDirigente runs a delegation (teams, athletes, registrations)
	RoleDirigente Role = "dirigente"
	// RoleArbitro officiates competitions and records results
	RoleArbitro Role = "arbitro"
	// RoleAtleta is a competing Master 60+ athlete
	RoleAtleta Role = "atleta"
	// RoleLeitor has read-only access to public data and reports
	RoleLeitor Role = "leitor"
	// RoleOperador operates the system itself (data management, users)
	RoleOperador Role = "operador"
)

// DocumentType identifies the national ID variant on a registration
type DocumentType = string

const (
	DocumentCPF DocumentType = "cpf"
	DocumentRG  DocumentType = "rg"
)

// Identity is a human account. It reaches the authenticated
// application only once both password rotation flags are false.
type Identity struct {
	bun.BaseModel       `bun:"table:identities,alias:idt"`
	ID                  uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                string     `bun:"name,notnull" json:"name,omitempty"`
	Email               string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Role                Role       `bun:"role,notnull" json:"role,omitempty"`
	PasswordHash        string     `bun:"password_hash" json:"-"`
	IsFirstLogin        bool       `bun:"is_first_login,notnull" json:"isFirstLogin"`
	NeedsPasswordChange bool       `bun:"needs_password_change,notnull" json:"needsPasswordChange"`
	CreatedAt           *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// MustRotatePassword reports whether the identity has to complete the
// forced password change before it may use the application.
func (i *Identity) MustRotatePassword() bool {
	if i == nil {
		return false
	}
	return i.IsFirstLogin || i.NeedsPasswordChange
}

// NormalizeEmail lowercases and trims the identity email. Emails are
// unique case-insensitively, so every write path goes through this.
func (i *Identity) NormalizeEmail() {
	i.Email = NormalizeEmail(i.Email)
}

// NormalizeEmail canonicalizes an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestStatus is the disposition of a registration request
type RequestStatus = string

const (
	// RequestPending awaits an approver decision, the only mutable state
	RequestPending RequestStatus = "pending"
	// RequestApproved is terminal, credentials were issued
	RequestApproved RequestStatus = "approved"
	// RequestRejected is terminal, a reason was recorded
	RequestRejected RequestStatus = "rejected"
)

// RegistrationRequest is a self-service signup awaiting disposition.
// Status is monotonic: pending is the only state transitions leave.
type RegistrationRequest struct {
	bun.BaseModel `bun:"table:registration_requests,alias:req"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Email         string        `bun:"email,notnull" json:"email,omitempty"`
	Document      string        `bun:"document,notnull" json:"document,omitempty"`
	DocumentType  DocumentType  `bun:"document_type,notnull" json:"documentType,omitempty"`
	RequestedRole Role          `bun:"requested_role,notnull" json:"role,omitempty"`
	Status        RequestStatus `bun:"status,notnull,default:'pending'" json:"status,omitempty"`
	SubmittedAt   *time.Time    `bun:"submitted_at,nullzero,default:current_timestamp" json:"submittedAt,omitempty"`
	ResolvedBy    string        `bun:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt    *time.Time    `bun:"resolved_at,nullzero" json:"resolvedAt,omitempty"`
	// IssuedTemporaryPassword is kept for one-time display to the
	// approver; the identity record stores only the bcrypt hash.
	IssuedTemporaryPassword string `bun:"issued_temporary_password" json:"issuedTemporaryPassword,omitempty"`
	RejectionReason         string `bun:"rejection_reason" json:"rejectionReason,omitempty"`
}

// IsResolved reports whether the request reached a terminal status.
func (r *RegistrationRequest) IsResolved() bool {
	return r != nil && r.Status != RequestPending
}

// RegisterData is the registration submission payload
type RegisterData struct {
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Document     string       `json:"document"`
	DocumentType DocumentType `json:"documentType"`
	Role         Role         `json:"role"`
}

// SessionMode records whether the session came from the remote
// authority or from the degraded offline path. Downstream screens use
// it to render the demo-mode indicator.
type SessionMode = string

const (
	SessionModeOnline  SessionMode = "online"
	SessionModeOffline SessionMode = "offline"
)

// Session binds one client to one authenticated Identity
type Session struct {
	AccessToken string      `json:"accessToken"`
	Identity    *Identity   `json:"user"`
	Mode        SessionMode `json:"mode,omitempty"`
}
