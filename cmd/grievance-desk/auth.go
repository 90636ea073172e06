package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"go.uber.org/zap"

	"github.com/nhle/grievance-desk/internal/credential"
	"github.com/nhle/grievance-desk/internal/theme"
)

// runLogin prompts for credentials, exchanges them for a session and
// stores it in the keyring. Switching accounts purges the cache, which
// holds the previous user's complaints.
func runLogin(opts options) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	email := opts.email
	var password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&email).
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return errors.New("enter a valid email")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
		).Title("Sign in to " + cfg.API.BaseURL),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}

	client := newAPIClient(cfg, "", logger)
	session, err := client.Login(context.Background(), email, password)
	if err != nil {
		return err
	}

	vault, err := credential.Open()
	if err != nil {
		return err
	}

	previous, err := vault.LoadSession()
	if err == nil && !strings.EqualFold(previous.Email, session.Email) {
		if err := purgeCache(cfg.CachePath); err != nil {
			logger.Warn("purging cache for new account failed", zap.Error(err))
		}
	}

	if err := vault.SaveSession(session); err != nil {
		return err
	}

	logger.Info("signed in", zap.String("email", session.Email), zap.String("role", string(session.Role)))
	fmt.Printf("Signed in as %s (%s)\n", session.Name, theme.RoleStyle(session.Role).Render(string(session.Role)))
	return nil
}

// runLogout deletes the stored session and the complaint cache.
func runLogout(opts options) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	vault, err := credential.Open()
	if err != nil {
		return err
	}
	if err := vault.DeleteSession(); err != nil {
		return err
	}
	if err := purgeCache(cfg.CachePath); err != nil {
		return err
	}

	logger.Info("signed out")
	fmt.Println("Signed out.")
	return nil
}

func purgeCache(path string) error {
	cache, err := openCache(path)
	if err != nil {
		return err
	}
	defer cache.Close()
	return cache.Purge(context.Background())
}
