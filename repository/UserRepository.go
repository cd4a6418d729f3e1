package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"neoShop/models"
	"neoShop/storage"

	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	GetUserById(ctx context.Context, id int64) (models.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, bool, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	EncryptPassword(userPass string) (hashedPassword string, err error)
	VerifyPassword(hashedPassword string, sentPassword string) bool
	AddNewUser(ctx context.Context, uModel models.User) (created models.User, err error)
	UpdateUser(ctx context.Context, uModel models.User) (err error)
}

type UserRepo struct {
	mu   sync.Mutex
	st   storage.Storage
	now  func() time.Time
	cost int
}

func NewUserRepository(st storage.Storage) (UserRepository, error) {
	if st == nil {
		return nil, errors.New("storage must be non-nil")
	}
	return &UserRepo{st: st, now: time.Now, cost: 8}, nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (u *UserRepo) GetUsers(ctx context.Context) (users []models.User, err error) {
	users, _, err = loadCollection[models.User](ctx, u.st, registeredKey)
	return
}

func (u *UserRepo) GetUserById(ctx context.Context, id int64) (uModel models.User, exists bool, err error) {
	users, err := u.GetUsers(ctx)
	if err != nil {
		return
	}
	for _, v := range users {
		if v.Id == id {
			return v, true, nil
		}
	}
	return
}

func (u *UserRepo) GetUserByEmail(ctx context.Context, email string) (uModel models.User, exists bool, err error) {
	users, err := u.GetUsers(ctx)
	if err != nil {
		return
	}
	for _, v := range users {
		if sameEmail(v.Email, email) {
			return v, true, nil
		}
	}
	return
}

func (u *UserRepo) EncryptPassword(userPass string) (hashedPassword string, err error) {
	var password []byte
	password, err = bcrypt.GenerateFromPassword([]byte(userPass), u.cost)
	if err != nil {
		slog.Error("EncryptPassword", "err", err)
		err = models.ErrServerError
		return
	}
	hashedPassword = string(password)
	return
}

func (u *UserRepo) VerifyPassword(hashedPassword string, sentPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(sentPassword))
	if err != nil {
		slog.Debug("VerifyPassword", "err", err)
	}
	return err == nil
}

// AddNewUser rejects an email that is already registered, ignoring case.
func (u *UserRepo) AddNewUser(ctx context.Context, uModel models.User) (created models.User, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	users, _, err := loadForUpdate[models.User](ctx, u.st, registeredKey)
	if err != nil {
		return
	}
	var maxId int64
	for _, v := range users {
		if sameEmail(v.Email, uModel.Email) {
			err = fmt.Errorf("%w: email %s is already registered", models.ErrNotAllowed, uModel.Email)
			return
		}
		maxId = max(maxId, v.Id)
	}
	uModel.Email = strings.TrimSpace(uModel.Email)
	uModel.Id = nextId(u.now(), maxId)
	users = append(users, uModel)
	if err = saveCollection(ctx, u.st, registeredKey, users); err != nil {
		return
	}
	created = uModel
	return
}

func (u *UserRepo) UpdateUser(ctx context.Context, uModel models.User) (err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	users, _, err := loadForUpdate[models.User](ctx, u.st, registeredKey)
	if err != nil {
		return
	}
	for i, v := range users {
		if v.Id == uModel.Id {
			users[i] = uModel
			err = saveCollection(ctx, u.st, registeredKey, users)
			return
		}
	}
	err = fmt.Errorf("%w: user %d", models.ErrNotFound, uModel.Id)
	return
}
