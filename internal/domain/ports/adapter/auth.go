package adapter

import (
	"context"

	"assistant-chat/internal/domain/model"
)

// CredentialSource is what the conversation needs from the auth session.
type CredentialSource interface {
	// Token returns the bearer token and whether one is present.
	Token() (string, bool)
	CurrentUser() model.Author
}

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.User, error)
	LoginWithGoogle(ctx context.Context, credential string) (*model.User, error)
	Logout(ctx context.Context)
}
