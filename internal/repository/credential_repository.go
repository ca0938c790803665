package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
)

// CredentialSource describes one table that may hold platform credentials.
type CredentialSource struct {
	Table          string
	UserColumn     string
	PlatformColumn string
	Encrypted      bool
}

// Known spellings of the account table. The app's own table keeps tokens
// encrypted; the ORM-managed tables store them in the clear.
var knownCredentialSources = map[string]CredentialSource{
	"social_accounts": {Table: "social_accounts", UserColumn: "user_id", PlatformColumn: "platform", Encrypted: true},
	"Account":         {Table: "Account", UserColumn: "userId", PlatformColumn: "provider"},
	"account":         {Table: "account", UserColumn: "user_id", PlatformColumn: "provider"},
}

// CredentialSourcesFor maps configured table names to sources, in order.
// Unknown names are assumed to use user_id/platform columns.
func CredentialSourcesFor(tables []string) []CredentialSource {
	sources := make([]CredentialSource, 0, len(tables))
	for _, table := range tables {
		if src, ok := knownCredentialSources[table]; ok {
			sources = append(sources, src)
			continue
		}
		sources = append(sources, CredentialSource{Table: table, UserColumn: "user_id", PlatformColumn: "platform"})
	}
	return sources
}

// CredentialRecord is the raw account row found for a user and platform.
// Fields holds every non-null column as text.
type CredentialRecord struct {
	Table     string
	Encrypted bool
	Fields    map[string]string
}

type CredentialRepository interface {
	Find(ctx context.Context, userID, platform string) (*CredentialRecord, error)
}

type credentialRepository struct {
	db      *sql.DB
	sources []CredentialSource
}

func NewCredentialRepository(db *sql.DB, sources []CredentialSource) CredentialRepository {
	return &credentialRepository{db: db, sources: sources}
}

// Find probes each source in order and returns the first row found, or
// nil when none of them has one. Missing tables or columns are skipped.
func (r *credentialRepository) Find(ctx context.Context, userID, platform string) (*CredentialRecord, error) {
	for _, src := range r.sources {
		record, err := r.findIn(ctx, src, userID, platform)
		if err != nil {
			if isUndefinedRelation(err) {
				slog.Debug("credential source unavailable", "table", src.Table, "error", err.Error())
				continue
			}
			slog.Info(err.Error())
			return nil, fmt.Errorf("query %s: %w", src.Table, err)
		}
		if record != nil {
			return record, nil
		}
	}
	return nil, nil
}

func (r *credentialRepository) findIn(ctx context.Context, src CredentialSource, userID, platform string) (*CredentialRecord, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1 AND LOWER(%s) = $2 LIMIT 1`,
		pq.QuoteIdentifier(src.Table),
		pq.QuoteIdentifier(src.UserColumn),
		pq.QuoteIdentifier(src.PlatformColumn),
	)

	rows, err := r.db.QueryContext(ctx, query, userID, strings.ToLower(platform))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(columns))
	for i, column := range columns {
		if values[i].Valid {
			fields[column] = values[i].String
		}
	}

	return &CredentialRecord{Table: src.Table, Encrypted: src.Encrypted, Fields: fields}, nil
}

func isUndefinedRelation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01" || pqErr.Code == "42703"
	}
	return false
}
