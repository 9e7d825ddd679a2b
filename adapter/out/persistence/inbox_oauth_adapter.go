package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"inbox_server/pkg/crypto"
	"inbox_server/pkg/logger"

	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
)

// =============================================================================
// OAuthAdapter - stored Google OAuth connections, tokens encrypted at rest
// =============================================================================

type OAuthAdapter struct {
	db                *sqlx.DB
	encryptionEnabled bool
}

func NewOAuthAdapter(db *sqlx.DB) *OAuthAdapter {
	err := crypto.Init()
	encryptionEnabled := err == nil
	if !encryptionEnabled {
		logger.Warn("Token encryption disabled: %v", err)
	} else {
		logger.Info("Token encryption enabled")
	}

	return &OAuthAdapter{
		db:                db,
		encryptionEnabled: encryptionEnabled,
	}
}

// =============================================================================
// Entity
// =============================================================================

type oauthEntity struct {
	OwnerID      string       `db:"owner_id"`
	Provider     string       `db:"provider"`
	Email        string       `db:"email"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	TokenType    string       `db:"token_type"`
	ExpiresAt    sql.NullTime `db:"expires_at"`
	IsConnected  bool         `db:"is_connected"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (e *oauthEntity) toToken() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  e.AccessToken,
		RefreshToken: e.RefreshToken,
		TokenType:    e.TokenType,
	}
	if e.ExpiresAt.Valid {
		tok.Expiry = e.ExpiresAt.Time
	}
	return tok
}

func (a *OAuthAdapter) encryptToken(token string) string {
	if !a.encryptionEnabled || token == "" {
		return token
	}
	encrypted, err := crypto.EncryptToken(token)
	if err != nil {
		logger.Warn("Failed to encrypt token: %v", err)
		return token
	}
	return encrypted
}

func (a *OAuthAdapter) decryptToken(token string) string {
	if token == "" || !crypto.IsEncrypted(token) {
		return token
	}
	decrypted, err := crypto.DecryptToken(token)
	if err != nil {
		// Token might not be encrypted (legacy), return as-is
		return token
	}
	return decrypted
}

func (a *OAuthAdapter) decryptEntity(e *oauthEntity) {
	if e == nil {
		return
	}
	e.AccessToken = a.decryptToken(e.AccessToken)
	e.RefreshToken = a.decryptToken(e.RefreshToken)
}

// =============================================================================
// Queries
// =============================================================================

// GetToken returns the connected owner's OAuth token. Implements the mailbox
// provider's token store.
func (a *OAuthAdapter) GetToken(ctx context.Context, ownerID string) (*oauth2.Token, error) {
	var entity oauthEntity
	query := `
		SELECT owner_id, provider, email, access_token, refresh_token,
		       token_type, expires_at, is_connected, created_at, updated_at
		FROM oauth_connections
		WHERE owner_id = $1 AND provider = 'gmail' AND is_connected = true
		LIMIT 1`

	if err := a.db.GetContext(ctx, &entity, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("no connected mailbox for owner")
		}
		return nil, err
	}

	a.decryptEntity(&entity)
	return entity.toToken(), nil
}

// Upsert stores or replaces an owner's connection.
func (a *OAuthAdapter) Upsert(ctx context.Context, ownerID, email string, token *oauth2.Token) error {
	query := `
		INSERT INTO oauth_connections (owner_id, provider, email, access_token, refresh_token,
		                               token_type, expires_at, is_connected, created_at, updated_at)
		VALUES ($1, 'gmail', $2, $3, $4, $5, $6, true, $7, $7)
		ON CONFLICT (owner_id, provider)
		DO UPDATE SET email = $2, access_token = $3, refresh_token = $4,
		              token_type = $5, expires_at = $6, is_connected = true, updated_at = $7`

	var expiresAt sql.NullTime
	if !token.Expiry.IsZero() {
		expiresAt = sql.NullTime{Time: token.Expiry, Valid: true}
	}

	_, err := a.db.ExecContext(ctx, query,
		ownerID,
		email,
		a.encryptToken(token.AccessToken),
		a.encryptToken(token.RefreshToken),
		token.TokenType,
		expiresAt,
		time.Now(),
	)
	return err
}

// Disconnect marks the owner's connection as disconnected.
func (a *OAuthAdapter) Disconnect(ctx context.Context, ownerID string) error {
	query := `
		UPDATE oauth_connections
		SET is_connected = false, updated_at = $1
		WHERE owner_id = $2 AND provider = 'gmail'`

	_, err := a.db.ExecContext(ctx, query, time.Now(), ownerID)
	return err
}
