package sge

import (
	"context"
	"fmt"
	"sync"
)

// AuthState is the coarse screen the shell is presenting.
type AuthState string

const (
	StateLoading         AuthState = "loading"
	StateLogin           AuthState = "login"
	StateRegister        AuthState = "register"
	StatePendingApproval AuthState = "pending-approval"
	StateChangePassword  AuthState = "change-password"
	StateAuthenticated   AuthState = "authenticated"
)

// Shell drives the console's authentication lifecycle: which screen
// is visible, which module is selected, and which operation is in
// flight. One shell instance serves one interactive console; its
// methods are safe to call from concurrent event handlers but at most
// one mutating operation runs at a time.
type Shell struct {
	gateway  *Gateway
	notifier Notifier
	logger   Logger

	mu           sync.Mutex
	state        AuthState
	module       Module
	pendingEmail string
	busy         bool
}

// NewShell creates a shell in the loading state. Call Boot to resolve
// the first screen.
func NewShell(gateway *Gateway) *Shell {
	return &Shell{
		gateway:  gateway,
		notifier: noopNotifier{},
		logger:   defLogger{},
		state:    StateLoading,
		module:   DefaultModule,
	}
}

func (s *Shell) WithNotifier(notifier Notifier) *Shell {
	s.notifier = normalizeNotifier(notifier)
	return s
}

func (s *Shell) WithLogger(logger Logger) *Shell {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// State returns the screen the shell is currently presenting.
func (s *Shell) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsLoading reports whether an operation is in flight.
func (s *Shell) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// PendingEmail is the address shown on the pending-approval screen.
func (s *Shell) PendingEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingEmail
}

// CurrentModule is the selected navigation module.
func (s *Shell) CurrentModule() Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.module
}

// SelectModule switches the active module when the signed-in role may
// see it. Unknown or disallowed modules leave the selection untouched.
func (s *Shell) SelectModule(module Module) bool {
	identity := s.gateway.CurrentUser()
	if identity == nil {
		return false
	}
	for _, item := range NavigationFor(identity.Role) {
		if item.Module == module {
			s.mu.Lock()
			s.module = module
			s.mu.Unlock()
			return true
		}
	}
	return false
}

// Navigation returns the menu for the signed-in role. Empty when no
// one is signed in.
func (s *Shell) Navigation() []MenuItem {
	identity := s.gateway.CurrentUser()
	if identity == nil {
		return nil
	}
	return NavigationFor(identity.Role)
}

// Boot restores a persisted session and resolves the first screen.
// A session whose identity still carries a rotation flag lands on
// change-password; anything else authenticated; no session, or any
// restore failure, lands on login. Boot never surfaces errors: a
// broken session is indistinguishable from no session.
func (s *Shell) Boot() {
	if err := s.gateway.SessionStore().Init(); err != nil {
		s.logger.Debug("session restore failed", "error", err)
	}

	identity := s.gateway.CurrentUser()

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case identity == nil:
		s.state = StateLogin
	case identity.MustRotatePassword():
		s.state = StateChangePassword
	default:
		s.state = StateAuthenticated
	}
}

// Login runs the gateway login and routes the result. A first login
// or a flagged identity goes to change-password before anything else.
func (s *Shell) Login(ctx context.Context, email, password string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	session, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		s.notifier.Error(userMessage(err))
		return err
	}

	s.mu.Lock()
	if session.Identity.MustRotatePassword() {
		s.state = StateChangePassword
	} else {
		s.state = StateAuthenticated
	}
	state := s.state
	s.mu.Unlock()

	if state == StateAuthenticated {
		s.notifier.Success(fmt.Sprintf("Bem-vindo, %s!", session.Identity.Name))
	}
	return nil
}

// ShowRegister switches from login to the registration screen.
func (s *Shell) ShowRegister() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateLogin {
		s.state = StateRegister
	}
}

// BackToLogin returns to the login screen from registration or the
// pending-approval notice.
func (s *Shell) BackToLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRegister || s.state == StatePendingApproval {
		s.state = StateLogin
		s.pendingEmail = ""
	}
}

// Register submits the registration and, on success, parks the shell
// on the pending-approval screen carrying the submitted email.
func (s *Shell) Register(ctx context.Context, data RegisterData) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.gateway.Register(ctx, data); err != nil {
		s.notifier.Error(userMessage(err))
		return err
	}

	s.mu.Lock()
	s.state = StatePendingApproval
	s.pendingEmail = NormalizeEmail(data.Email)
	s.mu.Unlock()

	s.notifier.Info("Cadastro enviado. Aguarde a aprovação do gestor.")
	return nil
}

// ChangePassword rotates the password and, on success, moves to the
// authenticated state with the rotation flags cleared.
func (s *Shell) ChangePassword(ctx context.Context, current, newPassword, confirmation string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if newPassword != confirmation {
		s.notifier.Error(userMessage(ErrPasswordConfirmationMismatch))
		return ErrPasswordConfirmationMismatch
	}

	if err := s.gateway.ChangePassword(ctx, current, newPassword); err != nil {
		s.notifier.Error(userMessage(err))
		return err
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.notifier.Success("Senha alterada com sucesso.")
	return nil
}

// Logout clears the session, resets the module selection, and returns
// to login. Safe to call from any state, repeatedly.
func (s *Shell) Logout() {
	s.gateway.Logout()

	s.mu.Lock()
	s.state = StateLogin
	s.module = DefaultModule
	s.pendingEmail = ""
	s.mu.Unlock()
}

// acquire claims the single in-flight slot. Concurrent mutating calls
// fail fast instead of queueing behind a slow network round trip.
func (s *Shell) acquire() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrOperationInFlight
	}
	s.busy = true
	return func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}, nil
}
