// FILE: internal/controller/auth_controller.go
package controller

import (
	"errors"

	"chemviz-dashboard/internal/dto"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/serverutils"
	"chemviz-dashboard/internal/service"
	"chemviz-dashboard/pkg/chemapi"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Login(ctx *fiber.Ctx) error
	Register(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
}

type authController struct {
	sessions service.ISessionService
	secret   string
}

func NewAuthController(sessions service.ISessionService, secret string) IAuthController {
	return &authController{sessions: sessions, secret: secret}
}

func (c *authController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/auth")
	h.Post("/login", c.Login)
	h.Post("/register", c.Register)
	h.Get("/session", c.Session)
	h.Post("/logout", jwtMiddleware, c.Logout)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	sess, err := c.sessions.Login(ctx.UserContext(), &req)
	if err != nil {
		return authFailure(ctx, err)
	}
	return c.issue(ctx, "Logged in", sess)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	sess, err := c.sessions.Register(ctx.UserContext(), &req)
	if err != nil {
		return authFailure(ctx, err)
	}
	return c.issue(ctx, "Account created", sess)
}

func (c *authController) issue(ctx *fiber.Ctx, message string, sess *entity.Session) error {
	token, err := serverutils.IssueViewerToken(c.secret, sess.Username, serverutils.ViewerTokenTTL)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(message, dto.SessionResponse{
		Authenticated: true,
		Username:      sess.Username,
		ViewerToken:   token,
	}))
}

// authFailure shows the backend's field errors joined into one line, as the
// login form does.
func authFailure(ctx *fiber.Ctx, err error) error {
	var reqErr *chemapi.RequestError
	if errors.As(err, &reqErr) {
		code := backendStatus(reqErr.Status)
		if reqErr.Status == fiber.StatusUnauthorized {
			code = fiber.StatusBadRequest
		}
		return ctx.Status(code).JSON(serverutils.ErrorResponse(code, reqErr.Message()))
	}
	return failure(ctx, err, chemapi.GenericMessage)
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	if err := c.sessions.Logout(ctx.UserContext()); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out", nil))
}

func (c *authController) Session(ctx *fiber.Ctx) error {
	res := dto.SessionResponse{Loading: c.sessions.Loading()}
	if sess := c.sessions.Current(); sess != nil {
		res.Authenticated = true
		res.Username = sess.Username
	}
	return ctx.JSON(serverutils.SuccessResponse("Session", res))
}
