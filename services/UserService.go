package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"neoShop/entities"
	"neoShop/models"
	"neoShop/repository"
)

const authFailedMessage = "Invalid email or password"

type UserService struct {
	ur          repository.UserRepository
	sr          repository.SessionRepository
	ns          NotificationService
	tokens      TokenIssuer
	adminPrefix string
}

func NewUserService(uRepo repository.UserRepository, sRepo repository.SessionRepository, notifs NotificationService, tokens TokenIssuer, adminPrefix string) UserService {
	return UserService{
		ur:          uRepo,
		sr:          sRepo,
		ns:          notifs,
		tokens:      tokens,
		adminPrefix: strings.ToLower(adminPrefix),
	}
}

func (us *UserService) roleFor(email string) string {
	if us.adminPrefix != "" && strings.HasPrefix(strings.ToLower(strings.TrimSpace(email)), us.adminPrefix) {
		return models.RoleAdmin
	}
	return models.RoleCustomer
}

// Register stores a new account and signs the client in with it.
func (us *UserService) Register(ctx context.Context, clientId string, payload models.RegisterPayload) (resp entities.LoginResponse, err error) {
	if err = validateStruct(payload); err != nil {
		return
	}
	_, ex, err := us.ur.GetUserByEmail(ctx, payload.Email)
	if err != nil {
		return
	}
	if ex {
		slog.Info("Register: user already exists", "email", payload.Email)
		err = fmt.Errorf("%w: user with this email already exists", models.ErrNotAllowed)
		return
	}
	hashedPassword, err := us.ur.EncryptPassword(payload.Password)
	if err != nil {
		return
	}
	uModel, err := us.ur.AddNewUser(ctx, models.User{
		FirstName: strings.TrimSpace(payload.FirstName),
		LastName:  strings.TrimSpace(payload.LastName),
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  hashedPassword,
		Role:      us.roleFor(payload.Email),
	})
	if err != nil {
		return
	}
	resp, err = us.startSession(ctx, clientId, uModel)
	if err != nil {
		return
	}
	us.ns.notify(ctx, clientId, models.NotificationAccount, "Welcome to NeoShop", "Your account has been created.")
	return
}

// Login checks the credentials against the registered users. A failure is remembered as the
// client's session error until the next successful login.
func (us *UserService) Login(ctx context.Context, clientId string, creds models.Credentials) (resp entities.LoginResponse, err error) {
	if err = validateStruct(creds); err != nil {
		return
	}
	uModel, ex, err := us.ur.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		return
	}
	if !ex || !us.ur.VerifyPassword(uModel.Password, creds.Password) {
		slog.Info("Login: rejected credentials", "email", creds.Email)
		if e := us.sr.SetAuthError(ctx, clientId, authFailedMessage); e != nil {
			err = e
			return
		}
		err = fmt.Errorf("%w: %s", models.ErrUnauthorized, authFailedMessage)
		return
	}
	resp, err = us.startSession(ctx, clientId, uModel)
	return
}

func (us *UserService) startSession(ctx context.Context, clientId string, uModel models.User) (resp entities.LoginResponse, err error) {
	token, err := us.tokens.Issue(uModel)
	if err != nil {
		return
	}
	if err = us.sr.CreateSession(ctx, clientId, uModel, token); err != nil {
		return
	}
	resp = entities.LoginResponse{Token: token, User: uModel.Public()}
	return
}

func (us *UserService) Logout(ctx context.Context, clientId string) (err error) {
	err = us.sr.DeleteSession(ctx, clientId)
	return
}

// RestoreSession returns the client's signed-in user, or nil when there is none.
func (us *UserService) RestoreSession(ctx context.Context, clientId string) (user *models.User, err error) {
	user, err = us.sr.GetSessionUser(ctx, clientId)
	return
}

func (us *UserService) SessionError(ctx context.Context, clientId string) (msg string, err error) {
	msg, err = us.sr.GetAuthError(ctx, clientId)
	return
}

// SessionToken is the bearer token stored with the client's session, empty when signed out.
func (us *UserService) SessionToken(ctx context.Context, clientId string) (token string, err error) {
	token, err = us.sr.GetToken(ctx, clientId)
	return
}

// Authenticate resolves a bearer token to the registered user it was issued for.
func (us *UserService) Authenticate(ctx context.Context, token string) (uModel models.User, err error) {
	userId, err := us.tokens.Parse(token)
	if err != nil {
		return
	}
	uModel, ex, err := us.ur.GetUserById(ctx, userId)
	if err != nil {
		return
	}
	if !ex {
		slog.Info("Authenticate: token for unknown user", "id", userId)
		err = fmt.Errorf("%w: user no longer exists", models.ErrUnauthorized)
		return
	}
	uModel = uModel.Public()
	return
}

// UpdateProfile edits the caller's own record; admins may edit anyone.
func (us *UserService) UpdateProfile(ctx context.Context, clientId string, caller models.User, id int64, patch models.ProfilePatch) (updated models.User, err error) {
	if caller.Id != id && !caller.IsAdmin() {
		err = fmt.Errorf("%w: cannot edit another user's profile", models.ErrForbidden)
		return
	}
	if err = validateStruct(patch); err != nil {
		return
	}
	uModel, ex, err := us.ur.GetUserById(ctx, id)
	if err != nil {
		return
	}
	if !ex {
		err = fmt.Errorf("%w: user %d", models.ErrNotFound, id)
		return
	}
	uModel = patch.Apply(uModel)
	if err = us.ur.UpdateUser(ctx, uModel); err != nil {
		return
	}
	updated = uModel.Public()

	current, err := us.sr.GetSessionUser(ctx, clientId)
	if err != nil {
		return
	}
	if current != nil && current.Id == id {
		var token string
		if token, err = us.sr.GetToken(ctx, clientId); err != nil {
			return
		}
		if err = us.sr.CreateSession(ctx, clientId, uModel, token); err != nil {
			return
		}
	}
	us.ns.notify(ctx, clientId, models.NotificationAccount, "Profile Updated", "Your profile information has been updated.")
	return
}

func (us *UserService) CountUsers(ctx context.Context) (count int, err error) {
	users, err := us.ur.GetUsers(ctx)
	count = len(users)
	return
}
