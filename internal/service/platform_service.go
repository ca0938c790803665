package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/mailtosocial/configs"
	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/repository"
	"github.com/maheshrc27/mailtosocial/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const connectStateTTL = 15 * time.Minute

var ErrAccountNotFound = errors.New("social account not found")

// PlatformService connects, lists and removes the social accounts whose
// tokens the publishing pipeline resolves later.
type PlatformService interface {
	AuthURL(ctx context.Context, platform, userID string) (string, error)
	LinkedInCallback(ctx context.Context, code, state string) (string, error)
	TwitterCallback(ctx context.Context, oauthToken, verifier string) (string, error)
	List(ctx context.Context, userID string) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID string) error
}

type pendingTwitterAuth struct {
	userID string
	secret string
}

type platformService struct {
	cfg      config.Config
	sa       repository.SocialAccountRepository
	tw       TwitterService
	li       LinkedInService
	linkedIn *oauth2.Config
	pending  *cache.Cache
}

func NewPlatformService(cfg config.Config, sa repository.SocialAccountRepository, tw TwitterService, li LinkedInService) PlatformService {
	return &platformService{
		cfg: cfg,
		sa:  sa,
		tw:  tw,
		li:  li,
		linkedIn: &oauth2.Config{
			ClientID:     cfg.LinkedIn.ClientID,
			ClientSecret: cfg.LinkedIn.ClientSecret,
			RedirectURL:  cfg.LinkedIn.RedirectURI,
			Scopes:       []string{"openid", "profile", "email", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		},
		pending: cache.New(connectStateTTL, 5*time.Minute),
	}
}

func (s *platformService) AuthURL(ctx context.Context, platform, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is not valid")
	}

	switch platform {
	case models.PlatformLinkedIn:
		state, err := utils.GenerateToken(s.cfg.SecretKey, userID, connectStateTTL)
		if err != nil {
			return "", err
		}
		return s.linkedIn.AuthCodeURL(state), nil

	case models.PlatformTwitter:
		requestToken, err := s.tw.RequestToken(ctx, s.cfg.Twitter.CallbackURI)
		if err != nil {
			slog.Info(err.Error())
			return "", err
		}
		s.pending.SetDefault(requestToken.Token, pendingTwitterAuth{userID: userID, secret: requestToken.TokenSecret})
		return s.tw.AuthorizeURL(requestToken.Token), nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
}

func (s *platformService) LinkedInCallback(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return "", err
	}

	claims, err := utils.ValidateToken(s.cfg.SecretKey, state)
	if err != nil {
		return "", fmt.Errorf("invalid state: %w", err)
	}

	token, err := s.linkedIn.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("exchange linkedin code: %w", err)
	}

	info, err := s.li.UserInfo(ctx, token.AccessToken)
	if err != nil {
		return "", fmt.Errorf("linkedin userinfo: %w", err)
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	return claims.UserID, s.saveAccount(ctx, &models.SocialAccount{
		UserID:          claims.UserID,
		Platform:        models.PlatformLinkedIn,
		AccountID:       info.Sub,
		AccountName:     info.Name,
		AccountUsername: info.Email,
		ProfilePicture:  info.Picture,
		AccessToken:     encryptedAccessToken,
	})
}

func (s *platformService) TwitterCallback(ctx context.Context, oauthToken, verifier string) (string, error) {
	if oauthToken == "" || verifier == "" {
		err := errors.New("oauth_token or oauth_verifier is empty")
		slog.Info(err.Error())
		return "", err
	}

	cached, ok := s.pending.Get(oauthToken)
	if !ok {
		return "", errors.New("unknown or expired twitter request token")
	}
	s.pending.Delete(oauthToken)
	auth := cached.(pendingTwitterAuth)

	access, err := s.tw.AccessToken(ctx, oauthToken, auth.secret, verifier)
	if err != nil {
		return "", err
	}

	encryptedToken, err := utils.Encrypt([]byte(access.Token), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}
	encryptedSecret, err := utils.Encrypt([]byte(access.TokenSecret), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	return auth.userID, s.saveAccount(ctx, &models.SocialAccount{
		UserID:          auth.userID,
		Platform:        models.PlatformTwitter,
		AccountID:       access.UserID,
		AccountName:     access.ScreenName,
		AccountUsername: access.ScreenName,
		AccessToken:     encryptedToken,
		TokenSecret:     encryptedSecret,
	})
}

func (s *platformService) saveAccount(ctx context.Context, sa *models.SocialAccount) error {
	id, err := gonanoid.New()
	if err != nil {
		return err
	}
	sa.ID = id

	if _, err := s.sa.Upsert(ctx, sa); err != nil {
		return fmt.Errorf("save %s account: %w", sa.Platform, err)
	}
	slog.Info("social account connected", "user_id", sa.UserID, "platform", sa.Platform)
	return nil
}

func (s *platformService) List(ctx context.Context, userID string) ([]*models.SocialAccount, error) {
	if userID == "" {
		return nil, errors.New("user id is not valid")
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	return accounts, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID string) error {
	if userID == "" || accountID == "" {
		return errors.New("user id and account id are required")
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		return ErrAccountNotFound
	}

	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("remove social account: %w", err)
	}
	return nil
}
