package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/maheshrc27/mailtosocial/configs"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (userID string, err error)
}

type authService struct {
	oauth *oauth2.Config
	u     repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{googleoauth.UserinfoEmailScope, googleoauth.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
		u: u,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authService) LoginCallback(ctx context.Context, code string) (string, error) {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return "", err
	}

	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" {
		err := errors.New("google oauth configuration is incomplete")
		slog.Info(err.Error())
		return "", err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("exchange code: %w", err)
	}

	svc, err := googleoauth.NewService(ctx, option.WithHTTPClient(s.oauth.Client(ctx, token)))
	if err != nil {
		return "", fmt.Errorf("google userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("fetch google userinfo: %w", err)
	}

	user, isExist, err := s.u.GetByEmail(ctx, info.Email)
	if err != nil {
		return "", err
	}

	if isExist {
		if user.GoogleID == "" {
			user.GoogleID = info.Id
			user.Name = info.Name
			user.ProfilePicture = info.Picture
			if err := s.u.Update(ctx, user); err != nil {
				return "", err
			}
		}
		return user.ID, nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	return s.u.Create(ctx, &models.User{
		ID:             id,
		GoogleID:       info.Id,
		Email:          info.Email,
		Name:           info.Name,
		ProfilePicture: info.Picture,
	})
}
