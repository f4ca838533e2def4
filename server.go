package sge

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// AuthorityRoutes holds the paths the authority server answers on.
type AuthorityRoutes struct {
	Health   string
	Login    string
	Register string
	Requests string
}

// AuthorityServer is the HTTP surface of the authority: login and
// registration for the console, plus the approval endpoints for the
// workbench. It is the counterpart the Gateway posts to.
type AuthorityServer struct {
	Debug     bool
	Logger    Logger
	Routes    *AuthorityRoutes
	repo      RepositoryManager
	tokens    *TokenService
	workbench *Workbench
}

type AuthorityOption func(*AuthorityServer) *AuthorityServer

func WithAuthorityLogger(logger Logger) AuthorityOption {
	return func(s *AuthorityServer) *AuthorityServer {
		if logger != nil {
			s.Logger = logger
		}
		return s
	}
}

func WithAuthorityDebug(debug bool) AuthorityOption {
	return func(s *AuthorityServer) *AuthorityServer {
		s.Debug = debug
		return s
	}
}

func NewAuthorityServer(repo RepositoryManager, tokens *TokenService, workbench *Workbench, opts ...AuthorityOption) *AuthorityServer {
	s := &AuthorityServer{
		Logger: defLogger{},
		Routes: &AuthorityRoutes{
			Health:   "/test",
			Login:    "/auth/login",
			Register: "/auth/register",
			Requests: "/auth/requests",
		},
		repo:      repo,
		tokens:    tokens,
		workbench: workbench,
	}

	for _, opt := range opts {
		s = opt(s)
	}

	return s
}

// RegisterRoutes mounts the authority endpoints on the app.
func (s *AuthorityServer) RegisterRoutes(app *fiber.App) {
	app.Get(s.Routes.Health, s.Health)
	app.Post(s.Routes.Login, s.LoginPost)
	app.Post(s.Routes.Register, s.RegisterPost)
	app.Get(s.Routes.Requests, s.RequestsList)
	app.Post(s.Routes.Requests+"/:id/approve", s.RequestApprove)
	app.Post(s.Routes.Requests+"/:id/reject", s.RequestReject)
}

func (s *AuthorityServer) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthorityServer) LoginPost(c *fiber.Ctx) error {
	payload := loginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return s.renderError(c, ErrEmptyCredentials)
	}

	if s.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	if payload.Email == "" || payload.Password == "" {
		return s.renderError(c, ErrEmptyCredentials)
	}

	identity, err := VerifyLocalIdentity(c.Context(), s.repo.Identities(), payload.Email, payload.Password)
	if err != nil {
		return s.renderError(c, err)
	}

	token, err := s.tokens.Generate(identity, SessionModeOnline)
	if err != nil {
		return s.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":        identity,
		"accessToken": token,
	})
}

func (s *AuthorityServer) RegisterPost(c *fiber.Ctx) error {
	data := RegisterData{}
	if err := c.BodyParser(&data); err != nil {
		return s.renderError(c, InvalidRegistrationData("body", "corpo da requisição inválido"))
	}

	if err := data.Validate(); err != nil {
		return s.renderError(c, err)
	}
	data = data.normalized()

	record := &RegistrationRequest{
		Name:          data.Name,
		Email:         data.Email,
		Document:      data.Document,
		DocumentType:  data.DocumentType,
		RequestedRole: data.Role,
	}

	created, err := s.repo.Requests().Create(c.Context(), record)
	if err != nil {
		return s.renderError(c, err)
	}

	if s.Debug {
		fmt.Println(print.MaybePrettyJSON(created))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"request": created,
		"status":  created.Status,
	})
}

func (s *AuthorityServer) RequestsList(c *fiber.Ctx) error {
	viewer, err := s.authenticate(c)
	if err != nil {
		return s.renderError(c, err)
	}

	var statuses []RequestStatus
	if raw := c.Query("status"); raw != "" {
		statuses = append(statuses, RequestStatus(raw))
	}

	records, err := s.workbench.ListRequests(c.Context(), viewer, statuses...)
	if err != nil {
		return s.renderError(c, err)
	}

	return c.JSON(fiber.Map{"requests": records})
}

func (s *AuthorityServer) RequestApprove(c *fiber.Ctx) error {
	viewer, err := s.authenticate(c)
	if err != nil {
		return s.renderError(c, err)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return s.renderError(c, InvalidRegistrationData("id", "identificador inválido"))
	}

	resolved, err := s.workbench.Approve(c.Context(), id, viewer)
	if err != nil {
		return s.renderError(c, err)
	}

	return c.JSON(fiber.Map{"request": resolved})
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

func (s *AuthorityServer) RequestReject(c *fiber.Ctx) error {
	viewer, err := s.authenticate(c)
	if err != nil {
		return s.renderError(c, err)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return s.renderError(c, InvalidRegistrationData("id", "identificador inválido"))
	}

	payload := rejectPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return s.renderError(c, ErrMissingRejectionReason)
	}

	resolved, err := s.workbench.Reject(c.Context(), id, viewer, payload.Reason)
	if err != nil {
		return s.renderError(c, err)
	}

	return c.JSON(fiber.Map{"request": resolved})
}

// authenticate resolves the bearer token into a stored identity.
func (s *AuthorityServer) authenticate(c *fiber.Ctx) (*Identity, error) {
	header := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return nil, ErrInvalidCredentials
	}

	claims, err := s.tokens.Validate(header[len(prefix):])
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.repo.Identities().GetByID(c.Context(), claims.Subject)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return identity, nil
}

func (s *AuthorityServer) renderError(c *fiber.Ctx, err error) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		status := rich.Code
		if status == 0 {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{
			"error":    rich.Message,
			"textCode": rich.TextCode,
			"metadata": rich.Metadata,
		})
	}

	s.Logger.Error("authority handler failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
	})
}
