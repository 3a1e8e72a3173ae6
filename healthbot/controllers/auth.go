// healthbot/controllers/auth.go
package controllers

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"healthbot/healthbot/sources/api"
	"healthbot/healthbot/types"
	"healthbot/healthbot/utils/logging"

	"go.uber.org/zap"
)

const minPasswordLen = 6

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrEmptyToken       = errors.New("sign in returned no token")
)

type AuthAPI interface {
	SignUp(ctx context.Context, req types.SignUpRequest) (*types.SignUpResponse, error)
	SignIn(ctx context.Context, req types.SignInRequest) (*types.Token, error)
}

type SignUpForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type AuthController struct {
	api   AuthAPI
	store IdentityStore
	ui    UI
	busy  atomic.Bool
}

func NewAuthController(client AuthAPI, store IdentityStore, ui UI) *AuthController {
	return &AuthController{api: client, store: store, ui: ui}
}

// Register creates an account. Password checks run locally before any request.
func (c *AuthController) Register(ctx context.Context, form SignUpForm) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer c.busy.Store(false)
	defer logging.LogDuration(ctx, "AuthController.Register")()

	username := strings.TrimSpace(form.Username)
	email := strings.TrimSpace(form.Email)

	if form.Password != form.ConfirmPassword {
		c.banner("Passwords do not match")
		return ErrPasswordMismatch
	}
	if len(form.Password) < minPasswordLen {
		c.banner("Password must be at least 6 characters")
		return ErrPasswordTooShort
	}

	_, err := c.api.SignUp(ctx, types.SignUpRequest{Username: username, Email: email, Password: form.Password})
	if err != nil {
		c.fail(err, "Registration failed")
		return err
	}

	if err := c.store.RememberProfile(username, email); err != nil {
		logging.ErrorLogger.Error("remember profile", zap.Error(err))
	}
	c.ui.Notify(Notice{Level: LevelSuccess, Text: "Account created successfully! Please sign in."})
	c.ui.Navigate(RouteSignIn)
	return nil
}

// SignIn stores the token and email on success. The password is never kept.
func (c *AuthController) SignIn(ctx context.Context, email, password string) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer c.busy.Store(false)
	defer logging.LogDuration(ctx, "AuthController.SignIn")()

	email = strings.TrimSpace(email)
	tok, err := c.api.SignIn(ctx, types.SignInRequest{Email: email, Password: password})
	if err != nil {
		c.fail(err, "Sign in failed")
		return err
	}
	if tok.AccessToken == "" {
		c.banner("Sign in failed")
		return ErrEmptyToken
	}
	if err := c.store.SaveSignIn(tok.AccessToken, email); err != nil {
		logging.ErrorLogger.Error("save sign in", zap.Error(err))
		c.banner("Sign in failed")
		return err
	}
	logging.AppLogger.Info("signed in", zap.String("email", email))
	c.ui.Navigate(RouteChat)
	return nil
}

func (c *AuthController) Logout() error {
	return logout(c.store, c.ui)
}

func (c *AuthController) banner(text string) {
	c.ui.Notify(Notice{Level: LevelError, Text: text, TTL: bannerTTL})
}

func (c *AuthController) fail(err error, fallback string) {
	if api.IsTransport(err) {
		logging.AppLogger.Warn("auth request failed", zap.Error(err))
		c.banner(msgNetworkError)
		return
	}
	c.banner(api.DetailOf(err, fallback))
}
