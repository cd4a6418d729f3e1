package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"neoShop/models"
	"neoShop/storage"
)

// SessionRepository keeps a client's signed-in user, bearer token and the last
// authentication failure message.
type SessionRepository interface {
	GetSessionUser(ctx context.Context, clientId string) (user *models.User, err error)
	GetToken(ctx context.Context, clientId string) (token string, err error)
	CreateSession(ctx context.Context, clientId string, user models.User, token string) (err error)
	DeleteSession(ctx context.Context, clientId string) (err error)
	GetAuthError(ctx context.Context, clientId string) (msg string, err error)
	SetAuthError(ctx context.Context, clientId string, msg string) (err error)
}

type SessionRepo struct {
	st storage.Storage
}

func NewSessionRepository(st storage.Storage) (SessionRepository, error) {
	if st == nil {
		return nil, errors.New("storage must be non-nil")
	}
	return &SessionRepo{st: st}, nil
}

func (s *SessionRepo) getRaw(ctx context.Context, key string) (raw []byte, err error) {
	raw, err = s.st.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		slog.Error("SessionRepo: storage get failed", "key", key, "err", err)
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	return
}

func (s *SessionRepo) setRaw(ctx context.Context, key string, raw []byte) error {
	if err := s.st.Set(ctx, key, raw); err != nil {
		slog.Error("SessionRepo: storage set failed", "key", key, "err", err)
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	return nil
}

// GetSessionUser returns nil for a missing record and for one that does not decode.
func (s *SessionRepo) GetSessionUser(ctx context.Context, clientId string) (user *models.User, err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	raw, err := s.getRaw(ctx, clientKey(clientId, userKey))
	if err != nil || raw == nil {
		return
	}
	var u models.User
	if e := json.Unmarshal(raw, &u); e != nil || u.Email == "" {
		slog.Warn("GetSessionUser: stored session is malformed", "client", clientId, "err", e)
		return nil, nil
	}
	user = &u
	return
}

func (s *SessionRepo) GetToken(ctx context.Context, clientId string) (token string, err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	raw, err := s.getRaw(ctx, clientKey(clientId, tokenKey))
	token = string(raw)
	return
}

// CreateSession stores the user without its password hash and clears any stale auth error.
func (s *SessionRepo) CreateSession(ctx context.Context, clientId string, user models.User, token string) (err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	jsonData, e := json.Marshal(user.Public())
	if e != nil {
		slog.Error("CreateSession: marshal failed", "err", e)
		return models.ErrServerError
	}
	if err = s.setRaw(ctx, clientKey(clientId, userKey), jsonData); err != nil {
		return
	}
	if err = s.setRaw(ctx, clientKey(clientId, tokenKey), []byte(token)); err != nil {
		return
	}
	err = deleteKey(ctx, s.st, clientKey(clientId, authErrorKey))
	return
}

func (s *SessionRepo) DeleteSession(ctx context.Context, clientId string) (err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	if err = deleteKey(ctx, s.st, clientKey(clientId, userKey)); err != nil {
		return
	}
	err = deleteKey(ctx, s.st, clientKey(clientId, tokenKey))
	return
}

func (s *SessionRepo) GetAuthError(ctx context.Context, clientId string) (msg string, err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	raw, err := s.getRaw(ctx, clientKey(clientId, authErrorKey))
	msg = string(raw)
	return
}

func (s *SessionRepo) SetAuthError(ctx context.Context, clientId string, msg string) (err error) {
	if err = checkClient(clientId); err != nil {
		return
	}
	err = s.setRaw(ctx, clientKey(clientId, authErrorKey), []byte(msg))
	return
}
