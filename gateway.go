package sge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Gateway performs login, registration submission, and password
// change. It talks to the remote authority when reachable and falls
// back to the local identity store, then the configured allow-list,
// when not. Callers never observe raw transport errors.
type Gateway struct {
	cfg      Config
	client   *http.Client
	sessions *SessionStore
	tokens   *TokenService
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
}

// NewGateway returns a Gateway bound to the given session store.
func NewGateway(cfg Config, sessions *SessionStore) *Gateway {
	return &Gateway{
		cfg:      cfg,
		client:   &http.Client{},
		sessions: sessions,
		tokens:   NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer()),
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (g *Gateway) WithLogger(logger Logger) *Gateway {
	if logger != nil {
		g.logger = logger
	}
	return g
}

func (g *Gateway) WithActivitySink(sink ActivitySink) *Gateway {
	g.activity = normalizeActivitySink(sink)
	return g
}

// WithRepository attaches the durable local store. It backs both the
// offline authentication path for approved identities and the durable
// recording of registration requests.
func (g *Gateway) WithRepository(repo RepositoryManager) *Gateway {
	g.repo = repo
	return g
}

func (g *Gateway) WithHTTPClient(client *http.Client) *Gateway {
	if client != nil {
		g.client = client
	}
	return g
}

// SessionStore exposes the store so the shell can share it.
func (g *Gateway) SessionStore() *SessionStore {
	return g.sessions
}

type loginResponse struct {
	User        *Identity `json:"user"`
	AccessToken string    `json:"accessToken"`
}

// Login authenticates the credentials and persists the session. The
// remote authority is tried first under a bounded timeout; a network
// failure, timeout, or 5xx opens the fallback ladder: the local
// identity store, then the static allow-list. A definitive remote
// rejection (4xx) never falls back.
func (g *Gateway) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrEmptyCredentials
	}

	session, err := g.remoteLogin(ctx, email, password)
	switch {
	case err == nil:
		// remote accepted
	case goerrors.Is(err, ErrNetworkUnavailable):
		g.logger.Info("remote authority unreachable, trying fallback", "email", email)
		session, err = g.fallbackLogin(ctx, email, password)
	default:
		err = ErrInvalidCredentials
	}

	if err != nil {
		g.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": email,
		})
		return nil, err
	}

	if err := g.sessions.Save(session); err != nil {
		return nil, err
	}

	event := ActivityEventLoginSuccess
	if session.Mode == SessionModeOffline {
		event = ActivityEventLoginFallback
	}
	g.emit(ctx, event, ActorRef{ID: session.Identity.ID.String(), Type: "identity"}, session.Identity.ID.String(), map[string]any{
		"email": email,
		"mode":  session.Mode,
	})

	return session, nil
}

func (g *Gateway) remoteLogin(ctx context.Context, email, password string) (*Session, error) {
	var out loginResponse
	status, err := g.postJSON(ctx, "/auth/login", g.cfg.GetLoginTimeout(), map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK || out.User == nil || out.AccessToken == "" {
		return nil, ErrInvalidCredentials
	}

	return &Session{
		AccessToken: out.AccessToken,
		Identity:    out.User,
		Mode:        SessionModeOnline,
	}, nil
}

func (g *Gateway) fallbackLogin(ctx context.Context, email, password string) (*Session, error) {
	// identities minted by the approval workbench live in the local
	// store and must stay authenticatable without the remote
	if g.repo != nil {
		identity, err := VerifyLocalIdentity(ctx, g.repo.Identities(), email, password)
		if err == nil {
			return g.offlineSession(identity)
		}
		if !goerrors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
	}

	for _, cred := range g.cfg.GetFallbackCredentials() {
		if NormalizeEmail(cred.Email) == email && cred.Password == password {
			return g.offlineSession(&Identity{
				ID:    uuid.New(),
				Name:  cred.Name,
				Email: email,
				Role:  RoleGestor,
			})
		}
	}

	return nil, ErrInvalidCredentials
}

func (g *Gateway) offlineSession(identity *Identity) (*Session, error) {
	token, err := g.tokens.Generate(identity, SessionModeOffline)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: token,
		Identity:    identity,
		Mode:        SessionModeOffline,
	}, nil
}

// Register validates and submits a registration. The request is
// durably recorded in the local store first; remote submission is
// best-effort under a short timeout, so the pending-approval state is
// reachable regardless of backend availability.
func (g *Gateway) Register(ctx context.Context, data RegisterData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	data = data.normalized()

	if g.repo != nil {
		record := &RegistrationRequest{
			Name:          data.Name,
			Email:         data.Email,
			Document:      data.Document,
			DocumentType:  data.DocumentType,
			RequestedRole: data.Role,
		}
		err := g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := g.repo.Requests().CreateTx(ctx, tx, record)
			return err
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record registration request")
		}
	}

	status, err := g.postJSON(ctx, "/auth/register", g.cfg.GetRegisterTimeout(), data, nil)
	delivered := err == nil && status < http.StatusMultipleChoices
	if !delivered {
		g.logger.Info("registration not delivered to remote authority", "email", data.Email)
	}

	// Success means the request landed somewhere durable. Without a
	// local store the remote authority is the only durable target.
	if g.repo == nil && !delivered {
		return goerrors.New("registration could not be recorded", goerrors.CategoryOperation).
			WithTextCode("REGISTRATION_NOT_RECORDED")
	}

	g.emit(ctx, ActivityEventRegistrationSubmitted, ActorRef{Type: "visitor"}, data.Email, map[string]any{
		"email":     data.Email,
		"role":      data.Role,
		"delivered": delivered,
	})

	return nil
}

// ChangePassword rotates the current identity's password and clears
// both rotation flags. All policy checks run locally before any store
// mutation; the caller enforces new-vs-confirmation equality.
func (g *Gateway) ChangePassword(ctx context.Context, current, newPassword string) error {
	session := g.sessions.Current()
	if session == nil || session.Identity == nil {
		return goerrors.New("no authenticated session", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	if err := ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}
	if newPassword == current {
		return ErrPasswordUnchanged
	}

	identity := session.Identity

	if g.repo != nil {
		stored, err := g.repo.Identities().GetByEmail(ctx, identity.Email)
		if err == nil {
			if err := ComparePasswordAndHash(current, stored.PasswordHash); err != nil {
				return ErrReauthenticationFailed
			}

			hash, err := HashPassword(newPassword)
			if err != nil {
				return err
			}

			err = g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if err := g.repo.Identities().ResetPasswordTx(ctx, tx, stored.ID, hash); err != nil {
					return err
				}
				_, err := g.repo.Identities().ClearPasswordFlagsTx(ctx, tx, stored.ID)
				return err
			})
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate password")
			}
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve identity")
		} else if !g.reauthenticateFallback(identity.Email, current) {
			return ErrReauthenticationFailed
		}
	} else if !g.reauthenticateFallback(identity.Email, current) {
		return ErrReauthenticationFailed
	}

	updated := *identity
	updated.IsFirstLogin = false
	updated.NeedsPasswordChange = false
	if err := g.sessions.UpdateIdentity(&updated); err != nil {
		return err
	}

	g.emit(ctx, ActivityEventPasswordChanged, ActorRef{ID: identity.ID.String(), Type: "identity"}, identity.ID.String(), nil)
	return nil
}

// reauthenticateFallback verifies the current password for sessions
// whose identity has no local record (allow-list logins).
func (g *Gateway) reauthenticateFallback(email, current string) bool {
	email = NormalizeEmail(email)
	for _, cred := range g.cfg.GetFallbackCredentials() {
		if NormalizeEmail(cred.Email) == email {
			return cred.Password == current
		}
	}
	return false
}

// CurrentUser resolves the identity from the persisted session only.
// It never fails for "not logged in": no session means nil.
func (g *Gateway) CurrentUser() *Identity {
	return g.sessions.Identity()
}

// Logout clears the persisted session unconditionally. Idempotent.
func (g *Gateway) Logout() {
	if err := g.sessions.Clear(); err != nil {
		g.logger.Error("failed to clear session", "error", err)
	}
}

// postJSON sends a JSON POST to the authority under a bounded
// timeout. Network errors, timeouts, and 5xx responses come back as
// ErrNetworkUnavailable; 4xx responses return their status so the
// caller can treat them as definitive.
func (g *Gateway) postJSON(ctx context.Context, path string, timeout time.Duration, payload any, out any) (int, error) {
	base := strings.TrimRight(g.cfg.GetAuthorityURL(), "/")
	if base == "" {
		return 0, ErrNetworkUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request payload")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("authority request failed", "path", path, "error", err)
		return 0, ErrNetworkUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		g.logger.Debug("authority request errored", "path", path, "status", resp.StatusCode)
		return resp.StatusCode, ErrNetworkUnavailable
	}

	if out != nil && resp.StatusCode < http.StatusMultipleChoices {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode response")
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode, nil
}

func (g *Gateway) emit(ctx context.Context, event ActivityEventType, actor ActorRef, subject string, metadata map[string]any) {
	err := g.activity.Record(ctx, ActivityEvent{
		EventType:  event,
		Actor:      actor,
		SubjectID:  subject,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	})
	if err != nil {
		g.logger.Error(fmt.Sprintf("failed to record %s activity", event), "error", err)
	}
}
