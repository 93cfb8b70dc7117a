// FILE: internal/service/session_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chemviz-dashboard/internal/dto"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/logger"
	"chemviz-dashboard/internal/repository/contract"
	"chemviz-dashboard/pkg/chemapi"

	"github.com/go-playground/validator/v10"
)

var ErrFormValidation = errors.New("invalid form")

// FormError lists what is wrong with a login or register form, in field
// order. It matches ErrFormValidation.
type FormError struct {
	Messages []string
}

func (e *FormError) Error() string {
	return strings.Join(e.Messages, " ")
}

func (e *FormError) Is(target error) bool {
	return target == ErrFormValidation
}

// AuthAPI is the part of the backend the session service talks to.
type AuthAPI interface {
	Login(ctx context.Context, req chemapi.LoginRequest) (*chemapi.AuthResponse, error)
	Register(ctx context.Context, req chemapi.RegisterRequest) (*chemapi.AuthResponse, error)
}

type SessionEventPublisher interface {
	PublishSessionStarted(ctx context.Context, username string)
	PublishSessionEnded(ctx context.Context, username string)
}

type ISessionService interface {
	chemapi.CredentialSource

	Restore(ctx context.Context) error
	// Loading is true until the first Restore has finished.
	Loading() bool
	Current() *entity.Session
	Login(ctx context.Context, req *dto.LoginRequest) (*entity.Session, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*entity.Session, error)
	Logout(ctx context.Context) error
	// OnChange registers fn to run after every session change. nil means
	// logged out.
	OnChange(fn func(*entity.Session))
}

type sessionService struct {
	repo     contract.CredentialRepository
	api      AuthAPI
	events   SessionEventPublisher
	validate *validator.Validate
	logger   logger.ILogger

	mu        sync.RWMutex
	session   *entity.Session
	restored  bool
	listeners []func(*entity.Session)
}

type nopSessionEvents struct{}

func (nopSessionEvents) PublishSessionStarted(context.Context, string) {}
func (nopSessionEvents) PublishSessionEnded(context.Context, string)   {}

func NewSessionService(repo contract.CredentialRepository, api AuthAPI, events SessionEventPublisher, log logger.ILogger) ISessionService {
	if events == nil {
		events = nopSessionEvents{}
	}
	return &sessionService{
		repo:     repo,
		api:      api,
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
	}
}

func (s *sessionService) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return "", false
	}
	return s.session.Credential, true
}

func (s *sessionService) Current() *entity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

func (s *sessionService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.restored
}

func (s *sessionService) OnChange(fn func(*entity.Session)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Restore loads the persisted pair. A read failure leaves the client logged
// out but still finishes loading.
func (s *sessionService) Restore(ctx context.Context) error {
	sess, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn("SESSION", "Failed to restore session", map[string]interface{}{
			"error": err.Error(),
		})
		sess = nil
	}

	s.mu.Lock()
	s.restored = true
	s.mu.Unlock()
	s.set(sess)

	if sess != nil {
		s.logger.Info("SESSION", "Session restored", map[string]interface{}{"username": sess.Username})
	}
	return err
}

func (s *sessionService) Login(ctx context.Context, req *dto.LoginRequest) (*entity.Session, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	res, err := s.api.Login(ctx, chemapi.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.start(ctx, res, req.Username)
}

func (s *sessionService) Register(ctx context.Context, req *dto.RegisterRequest) (*entity.Session, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	res, err := s.api.Register(ctx, chemapi.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return s.start(ctx, res, req.Username)
}

func (s *sessionService) start(ctx context.Context, res *chemapi.AuthResponse, fallbackUsername string) (*entity.Session, error) {
	username := res.Username
	if username == "" {
		username = fallbackUsername
	}
	if res.Token == "" {
		return nil, errors.New("backend returned no token")
	}

	sess := &entity.Session{Username: username, Credential: res.Token}
	if err := s.repo.Save(ctx, sess); err != nil {
		// still logged in for this process
		s.logger.Warn("SESSION", "Failed to persist session", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
	}

	s.set(sess)
	s.events.PublishSessionStarted(ctx, username)
	s.logger.Info("SESSION", "Logged in", map[string]interface{}{"username": username})

	cp := *sess
	return &cp, nil
}

func (s *sessionService) Logout(ctx context.Context) error {
	prev := s.Current()
	err := s.repo.Clear(ctx)
	if err != nil {
		s.logger.Error("SESSION", "Failed to clear persisted session", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.set(nil)
	if prev != nil {
		s.events.PublishSessionEnded(ctx, prev.Username)
		s.logger.Info("SESSION", "Logged out", map[string]interface{}{"username": prev.Username})
	}
	return err
}

func (s *sessionService) set(sess *entity.Session) {
	s.mu.Lock()
	s.session = sess
	listeners := append([]func(*entity.Session){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		if sess == nil {
			fn(nil)
			continue
		}
		cp := *sess
		fn(&cp)
	}
}

func (s *sessionService) check(form interface{}) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &FormError{Messages: msgs}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
	case "email":
		return "Enter a valid email address."
	}
	return field + " is invalid."
}
