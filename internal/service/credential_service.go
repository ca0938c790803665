package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maheshrc27/mailtosocial/internal/models"
	"github.com/maheshrc27/mailtosocial/internal/repository"
	"github.com/maheshrc27/mailtosocial/pkg/utils"
)

var (
	twitterTokenFields  = []string{"oauth_token", "access_token", "token"}
	twitterSecretFields = []string{"oauth_token_secret", "token_secret", "access_token_secret"}
	linkedInTokenFields = []string{"access_token"}
	profileIDFields     = []string{"account_id", "providerAccountId", "provider_account_id"}
)

type CredentialService interface {
	Resolve(ctx context.Context, userID, platform string) (*Credential, error)
}

type credentialService struct {
	cr        repository.CredentialRepository
	secretKey string
}

func NewCredentialService(secretKey string, cr repository.CredentialRepository) CredentialService {
	return &credentialService{cr: cr, secretKey: secretKey}
}

// Resolve finds the stored credential for the user on the platform. It
// never writes anything.
func (s *credentialService) Resolve(ctx context.Context, userID, platform string) (*Credential, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrCredentialNotFound)
	}

	platform = strings.ToLower(platform)
	if platform != models.PlatformTwitter && platform != models.PlatformLinkedIn {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}

	record, err := s.cr.Find(ctx, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("lookup %s credential: %w", platform, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no %s account connected for user %s", ErrCredentialNotFound, platform, userID)
	}

	field := func(names []string) (string, error) {
		value := firstField(record.Fields, names)
		if value == "" || !record.Encrypted {
			return value, nil
		}
		plain, err := utils.Decrypt(value, []byte(s.secretKey))
		if err != nil {
			return "", fmt.Errorf("%w: cannot decrypt %s token", ErrCredentialIncomplete, platform)
		}
		return plain, nil
	}

	cred := &Credential{
		Platform:  platform,
		ProfileID: firstField(record.Fields, profileIDFields),
	}

	switch platform {
	case models.PlatformTwitter:
		if cred.AccessToken, err = field(twitterTokenFields); err != nil {
			return nil, err
		}
		if cred.TokenSecret, err = field(twitterSecretFields); err != nil {
			return nil, err
		}
		if cred.AccessToken == "" || cred.TokenSecret == "" {
			return nil, fmt.Errorf("%w: twitter account for user %s is missing oauth token or secret", ErrCredentialIncomplete, userID)
		}
	case models.PlatformLinkedIn:
		if cred.AccessToken, err = field(linkedInTokenFields); err != nil {
			return nil, err
		}
		if cred.AccessToken == "" {
			return nil, fmt.Errorf("%w: linkedin account for user %s has no access token", ErrCredentialIncomplete, userID)
		}
	}

	return cred, nil
}

func firstField(fields map[string]string, names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(fields[name]); v != "" {
			return v
		}
	}
	return ""
}

// IsCredentialError reports whether err means the user has no usable
// credential for the platform.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialNotFound) || errors.Is(err, ErrCredentialIncomplete)
}
