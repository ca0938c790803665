package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestCredentialFindFallsBackToNextAlias(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT \* FROM "social_accounts" WHERE "user_id" = \$1 AND LOWER\("platform"\) = \$2 LIMIT 1`).
		WithArgs("u1", "twitter").
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "social_accounts" does not exist`})
	mock.ExpectQuery(`SELECT \* FROM "Account" WHERE "userId" = \$1 AND LOWER\("provider"\) = \$2 LIMIT 1`).
		WithArgs("u1", "twitter").
		WillReturnRows(sqlmock.NewRows([]string{"id", "userId", "provider", "oauth_token", "oauth_token_secret", "refresh_token"}).
			AddRow("a1", "u1", "twitter", "tok", "sec", nil))

	repo := NewCredentialRepository(db, CredentialSourcesFor([]string{"social_accounts", "Account", "account"}))

	record, err := repo.Find(context.Background(), "u1", "Twitter")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "Account", record.Table)
	require.False(t, record.Encrypted)
	require.Equal(t, "tok", record.Fields["oauth_token"])
	require.Equal(t, "sec", record.Fields["oauth_token_secret"])
	_, hasRefresh := record.Fields["refresh_token"]
	require.False(t, hasRefresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialFindNoRowAnywhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM "social_accounts"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM "account"`).WillReturnError(&pq.Error{Code: "42703"})

	repo := NewCredentialRepository(db, CredentialSourcesFor([]string{"social_accounts", "account"}))

	record, err := repo.Find(context.Background(), "u1", "linkedin")
	require.NoError(t, err)
	require.Nil(t, record)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialFindStopsOnOtherErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM "social_accounts"`).WillReturnError(errors.New("connection reset"))

	repo := NewCredentialRepository(db, CredentialSourcesFor([]string{"social_accounts", "Account"}))

	_, err = repo.Find(context.Background(), "u1", "linkedin")
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialSourcesForUnknownTable(t *testing.T) {
	sources := CredentialSourcesFor([]string{"oauth_accounts"})
	require.Equal(t, []CredentialSource{{Table: "oauth_accounts", UserColumn: "user_id", PlatformColumn: "platform"}}, sources)
}
