package server

import (
	"context"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/session"
)

// accountVerifier accepts a session token only while its account exists.
// Tokens of a deleted account stay cryptographically valid until they
// expire, and the jti blacklist only covers the token used to delete.
type accountVerifier struct {
	sessions *session.Manager
	users    repository.UserRepository
}

func (v accountVerifier) Verify(ctx context.Context, token string) (uint, error) {
	userID, err := v.sessions.Verify(ctx, token)
	if err != nil {
		return 0, err
	}
	if _, err := v.users.GetByID(ctx, userID); err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return 0, models.NewUnauthorizedError("Session account no longer exists")
		}
		return 0, err
	}
	return userID, nil
}

func (s *Server) verifier() middleware.TokenVerifier {
	if s.users == nil {
		return s.sessions
	}
	return accountVerifier{sessions: s.sessions, users: s.users}
}
