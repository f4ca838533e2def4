package sge_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	sge "github.com/sge-esporte/go-sge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(t *testing.T, storage sge.Storage, repo *fakeRepo) (*sge.Shell, *recordingNotifier) {
	t.Helper()

	gw := sge.NewGateway(gatewayConfig(unreachableURL), sge.NewSessionStore(storage))
	if repo != nil {
		gw = gw.WithRepository(repo)
	}

	notifier := &recordingNotifier{}
	return sge.NewShell(gw).WithNotifier(notifier), notifier
}

func TestShellBootWithoutSessionLandsOnLogin(t *testing.T) {
	shell, _ := newTestShell(t, sge.NewMemoryStorage(), nil)
	assert.Equal(t, sge.StateLoading, shell.State())

	shell.Boot()
	assert.Equal(t, sge.StateLogin, shell.State())
}

func TestShellBootRestoresAuthenticatedSession(t *testing.T) {
	storage := sge.NewMemoryStorage()

	seed := sge.NewSessionStore(storage)
	require.NoError(t, seed.Init())
	require.NoError(t, seed.Save(&sge.Session{
		AccessToken: "token-123",
		Identity:    testIdentity(sge.RoleDirigente),
		Mode:        sge.SessionModeOnline,
	}))

	shell, _ := newTestShell(t, storage, nil)
	shell.Boot()
	assert.Equal(t, sge.StateAuthenticated, shell.State())
}

func TestShellBootRoutesRotationFlagToChangePassword(t *testing.T) {
	storage := sge.NewMemoryStorage()

	identity := testIdentity(sge.RoleAtleta)
	identity.NeedsPasswordChange = true

	seed := sge.NewSessionStore(storage)
	require.NoError(t, seed.Init())
	require.NoError(t, seed.Save(&sge.Session{
		AccessToken: "token-123",
		Identity:    identity,
		Mode:        sge.SessionModeOnline,
	}))

	shell, _ := newTestShell(t, storage, nil)
	shell.Boot()
	assert.Equal(t, sge.StateChangePassword, shell.State())
}

func TestShellBootSwallowsCorruptState(t *testing.T) {
	storage := sge.NewMemoryStorage()
	require.NoError(t, storage.Set(sge.StorageKeyAccessToken, "token-123"))
	require.NoError(t, storage.Set(sge.StorageKeyUser, "{broken"))

	shell, _ := newTestShell(t, storage, nil)
	shell.Boot()
	assert.Equal(t, sge.StateLogin, shell.State())
}

func TestShellLoginWelcomesAndAuthenticates(t *testing.T) {
	shell, notifier := newTestShell(t, sge.NewMemoryStorage(), nil)
	shell.Boot()

	require.NoError(t, shell.Login(context.Background(), "admin@sge.gov.br", "SGE@Admin2024!"))
	assert.Equal(t, sge.StateAuthenticated, shell.State())
	assert.Contains(t, notifier.all(), "success: Bem-vindo, Administrador Sistema!")
}

func TestShellLoginFailureStaysOnLogin(t *testing.T) {
	shell, notifier := newTestShell(t, sge.NewMemoryStorage(), nil)
	shell.Boot()

	err := shell.Login(context.Background(), "nobody@sge.gov.br", "wrong")
	assert.ErrorIs(t, err, sge.ErrInvalidCredentials)
	assert.Equal(t, sge.StateLogin, shell.State())
	assert.Contains(t, notifier.all(), "error: Email ou senha incorretos.")
}

func TestShellLoginRoutesRotationFlagToChangePassword(t *testing.T) {
	repo := newFakeRepo()
	hash, err := sge.HashPassword("Abcdefgh123!")
	require.NoError(t, err)
	repo.identities.add(&sge.Identity{
		ID:                  uuid.New(),
		Name:                "Carlos Pereira",
		Email:               "carlos@sge.gov.br",
		Role:                sge.RoleArbitro,
		PasswordHash:        hash,
		IsFirstLogin:        true,
		NeedsPasswordChange: true,
	})

	shell, notifier := newTestShell(t, sge.NewMemoryStorage(), repo)
	shell.Boot()

	require.NoError(t, shell.Login(context.Background(), "carlos@sge.gov.br", "Abcdefgh123!"))
	assert.Equal(t, sge.StateChangePassword, shell.State())
	// no welcome toast until the rotation is done
	assert.Empty(t, notifier.all())

	require.NoError(t, shell.ChangePassword(context.Background(), "Abcdefgh123!", "Zyxwvuts987!", "Zyxwvuts987!"))
	assert.Equal(t, sge.StateAuthenticated, shell.State())
	assert.Contains(t, notifier.all(), "success: Senha alterada com sucesso.")
}

func TestShellChangePasswordConfirmationMismatch(t *testing.T) {
	shell, _ := newTestShell(t, sge.NewMemoryStorage(), nil)
	shell.Boot()
	require.NoError(t, shell.Login(context.Background(), "admin@sge.gov.br", "SGE@Admin2024!"))

	err := shell.ChangePassword(context.Background(), "SGE@Admin2024!", "Zyxwvuts987!", "Different987!")
	require.ErrorIs(t, err, sge.ErrPasswordConfirmationMismatch)
	assert.Equal(t, sge.StateAuthenticated, shell.State())
}

func TestShellRegisterFlow(t *testing.T) {
	repo := newFakeRepo()
	shell, notifier := newTestShell(t, sge.NewMemoryStorage(), repo)
	shell.Boot()

	shell.ShowRegister()
	assert.Equal(t, sge.StateRegister, shell.State())

	require.NoError(t, shell.Register(context.Background(), validRegistration()))
	assert.Equal(t, sge.StatePendingApproval, shell.State())
	assert.Equal(t, "joao@prefeitura.gov.br", shell.PendingEmail())
	assert.Contains(t, notifier.all(), "info: Cadastro enviado. Aguarde a aprovação do gestor.")

	shell.BackToLogin()
	assert.Equal(t, sge.StateLogin, shell.State())
	assert.Equal(t, "", shell.PendingEmail())
}

func TestShellRegisterValidationFailureStaysOnRegister(t *testing.T) {
	shell, _ := newTestShell(t, sge.NewMemoryStorage(), newFakeRepo())
	shell.Boot()
	shell.ShowRegister()

	data := validRegistration()
	data.Email = "not-an-email"

	err := shell.Register(context.Background(), data)
	require.Error(t, err)
	assert.Equal(t, sge.StateRegister, shell.State())
}

func TestShellShowRegisterOnlyFromLogin(t *testing.T) {
	shell, _ := newTestShell(t, sge.NewMemoryStorage(), nil)
	shell.Boot()
	require.NoError(t, shell.Login(context.Background(), "admin@sge.gov.br", "SGE@Admin2024!"))

	shell.ShowRegister()
	assert.Equal(t, sge.StateAuthenticated, shell.State())
}

func TestShellLogoutResetsNavigation(t *testing.T) {
	shell, _ := newTestShell(t, sge.NewMemoryStorage(), nil)
	shell.Boot()
	require.NoError(t, shell.Login(context.Background(), "admin@sge.gov.br", "SGE@Admin2024!"))

	require.True(t, shell.SelectModule(sge.ModuleApprovals))
	assert.Equal(t, sge.ModuleApprovals, shell.CurrentModule())

	shell.Logout()
	assert.Equal(t, sge.StateLogin, shell.State())
	assert.Equal(t, sge.DefaultModule, shell.CurrentModule())
	assert.Empty(t, shell.Navigation())

	// repeat logout stays harmless
	shell.Logout()
	assert.Equal(t, sge.StateLogin, shell.State())
}

func TestShellSelectModuleHonorsRoleGating(t *testing.T) {
	repo := newFakeRepo()
	hash, err := sge.HashPassword("Abcdefgh123!")
	require.NoError(t, err)
	repo.identities.add(&sge.Identity{
		ID:           uuid.New(),
		Name:         "Carlos Pereira",
		Email:        "carlos@sge.gov.br",
		Role:         sge.RoleArbitro,
		PasswordHash: hash,
	})

	shell, _ := newTestShell(t, sge.NewMemoryStorage(), repo)
	shell.Boot()
	require.NoError(t, shell.Login(context.Background(), "carlos@sge.gov.br", "Abcdefgh123!"))

	assert.True(t, shell.SelectModule(sge.ModuleResults))
	assert.Equal(t, sge.ModuleResults, shell.CurrentModule())

	assert.False(t, shell.SelectModule(sge.ModuleApprovals))
	assert.Equal(t, sge.ModuleResults, shell.CurrentModule())
}

func TestShellSerializesOperations(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer authority.Close()

	gw := sge.NewGateway(gatewayConfig(authority.URL), sge.NewSessionStore(sge.NewMemoryStorage()))
	shell := sge.NewShell(gw)
	shell.Boot()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		shell.Login(context.Background(), "admin@sge.gov.br", "SGE@Admin2024!")
	}()

	<-started
	assert.True(t, shell.IsLoading())

	err := shell.Login(context.Background(), "admin@sge.gov.br", "SGE@Admin2024!")
	assert.ErrorIs(t, err, sge.ErrOperationInFlight)

	close(release)
	wg.Wait()
	assert.False(t, shell.IsLoading())
}
