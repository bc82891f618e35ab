package cart

import (
	"context"
	"strings"

	"github.com/dukerupert/sparks/internal/domain"
)

// CredentialSource supplies the bearer token for cart calls. An empty token
// or an error means the user is not signed in.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, typically read from configuration.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(t))
	if tok == "" {
		return "", domain.ErrNoCredential
	}
	return tok, nil
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
