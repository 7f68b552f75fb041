package services

import (
	"context"
	"errors"
	"log"

	"wleci/internal/domain"
	"wleci/internal/repos"
	"wleci/internal/validate"
)

type UserService struct {
	Users    *repos.UserRepo
	Sessions *SessionIssuer
}

func NewUserService(users *repos.UserRepo, sessions *SessionIssuer) *UserService {
	return &UserService{Users: users, Sessions: sessions}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register is the public sign-up path. New accounts always get the USER role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, Fail(ErrValidation, "Name, email, and password are required")
	}
	name, ok := validate.Name(in.Name)
	if !ok {
		return nil, Fail(ErrValidation, "Name is too long")
	}
	return s.create(ctx, in.Email, &name, in.Password, domain.RoleUser)
}

type CreateInput struct {
	Email    string
	Name     *string
	Password string
	Role     string
}

func (s *UserService) Create(ctx context.Context, actor *Session, in CreateInput) (*domain.User, error) {
	if err := Authorize(actor, ActionCreateUser, 0); err != nil {
		return nil, err
	}
	if in.Email == "" || in.Password == "" {
		return nil, Fail(ErrValidation, "Email and password are required")
	}
	role := domain.RoleUser
	if in.Role != "" {
		r, ok := domain.ParseRole(in.Role)
		if !ok {
			return nil, Fail(ErrValidation, "Role must be USER or ADMIN")
		}
		role = r
	}
	var name *string
	if in.Name != nil {
		n, ok := validate.Name(*in.Name)
		if !ok {
			return nil, Fail(ErrValidation, "Name is too long")
		}
		if n != "" {
			name = &n
		}
	}
	return s.create(ctx, in.Email, name, in.Password, role)
}

func (s *UserService) create(ctx context.Context, rawEmail string, name *string, password string, role domain.Role) (*domain.User, error) {
	email, ok := validate.Email(rawEmail)
	if !ok {
		return nil, Fail(ErrValidation, "Invalid email address")
	}
	if !validate.Password(password) {
		return nil, Fail(ErrValidation, "Password must be at least 6 characters long")
	}

	taken, err := s.Users.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, Fail(ErrConflict, "User with this email already exists")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: email, Name: name, PasswordHash: &hash, Role: role}
	if err := s.Users.Create(ctx, u); err != nil {
		// lost a race with a concurrent insert
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, Fail(ErrConflict, "User with this email already exists")
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, actor *Session) ([]domain.User, error) {
	if err := Authorize(actor, ActionListUsers, 0); err != nil {
		return nil, err
	}
	return s.Users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, actor *Session, id uint) (*domain.User, error) {
	if err := Authorize(actor, ActionViewUser, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// UpdateInput holds optional changes; nil fields are left alone.
type UpdateInput struct {
	Name     *string
	Email    *string
	Role     *string
	Password *string
}

func (s *UserService) Update(ctx context.Context, actor *Session, id uint, in UpdateInput) (*domain.User, error) {
	if err := Authorize(actor, ActionEditUser, id); err != nil {
		return nil, err
	}
	if in.Role != nil {
		if err := Authorize(actor, ActionChangeRole, id); err != nil {
			return nil, err
		}
	}
	// owners go through ChangePassword, which checks the current one
	if in.Password != nil {
		if err := Authorize(actor, ActionSetPassword, id); err != nil {
			return nil, err
		}
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if in.Name != nil {
		n, ok := validate.Name(*in.Name)
		if !ok {
			return nil, Fail(ErrValidation, "Name is too long")
		}
		if n == "" {
			changes["name"] = nil
		} else {
			changes["name"] = n
		}
	}
	if in.Email != nil {
		email, ok := validate.Email(*in.Email)
		if !ok {
			return nil, Fail(ErrValidation, "Invalid email address")
		}
		if email != current.Email {
			taken, err := s.Users.EmailTaken(ctx, email, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, Fail(ErrValidation, "Email is already taken")
			}
			changes["email"] = email
		}
	}
	if in.Role != nil {
		r, ok := domain.ParseRole(*in.Role)
		if !ok {
			return nil, Fail(ErrValidation, "Role must be USER or ADMIN")
		}
		if r != current.Role {
			changes["role"] = r
		}
	}
	if in.Password != nil {
		if !validate.Password(*in.Password) {
			return nil, Fail(ErrValidation, "Password must be at least 6 characters long")
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		changes["password"] = hash
	}

	u, err := s.Users.Update(ctx, id, changes)
	switch {
	case errors.Is(err, repos.ErrDuplicate):
		return nil, Fail(ErrValidation, "Email is already taken")
	case errors.Is(err, repos.ErrNotFound):
		return nil, Fail(ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, err
	}
	// tokens carry the role, so the old ones must stop validating
	if _, ok := changes["role"]; ok {
		if err := s.Sessions.Revoke(ctx, id); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Delete removes a user and kills their live sessions.
func (s *UserService) Delete(ctx context.Context, actor *Session, id uint) (*domain.User, error) {
	if err := Authorize(actor, ActionDeleteUser, id); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, Fail(ErrValidation, "Invalid user ID")
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, Fail(ErrNotFound, "User not found")
		}
		return nil, err
	}
	if err := s.Sessions.Revoke(ctx, id); err != nil {
		// the row is gone; a stale token can no longer load a profile
		log.Printf("[warn] revoke sessions of deleted user %d: %v", id, err)
	}
	return u, nil
}

// Profile loads the account behind actor.
func (s *UserService) Profile(ctx context.Context, actor *Session) (*domain.User, error) {
	if actor == nil {
		return nil, notAuthenticated("no_session")
	}
	return s.load(ctx, actor.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *Session, name *string) (*domain.User, error) {
	if actor == nil {
		return nil, notAuthenticated("no_session")
	}
	return s.Update(ctx, actor, actor.UserID, UpdateInput{Name: name})
}

func (s *UserService) ChangePassword(ctx context.Context, actor *Session, current, next string) error {
	if actor == nil {
		return notAuthenticated("no_session")
	}
	if current == "" || next == "" {
		return Fail(ErrValidation, "Current password and new password are required")
	}
	if !validate.Password(next) {
		return Fail(ErrValidation, "New password must be at least 6 characters long")
	}
	u, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !u.HasPassword() || !CheckPassword(*u.PasswordHash, current) {
		return Fail(ErrValidation, "Current password is incorrect")
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, u.ID, hash)
}

// RevokeSessions invalidates every live session of userID.
func (s *UserService) RevokeSessions(ctx context.Context, actor *Session, userID uint) (*domain.User, error) {
	if err := Authorize(actor, ActionRevokeSessions, userID); err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, Fail(ErrValidation, "User ID is required")
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Revoke(ctx, userID); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates or resets the bootstrap administrator.
func (s *UserService) EnsureAdmin(ctx context.Context, rawEmail, password string) (*domain.User, error) {
	email, ok := validate.Email(rawEmail)
	if !ok {
		return nil, Fail(ErrValidation, "Invalid admin email")
	}
	if !validate.Password(password) {
		return nil, Fail(ErrValidation, "Admin password must be at least 6 characters long")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.Users.UpsertAdmin(ctx, email, "Administrator", hash)
}

func (s *UserService) load(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, Fail(ErrNotFound, "User not found")
	}
	return u, err
}
