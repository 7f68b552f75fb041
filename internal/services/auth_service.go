package services

import (
	"context"
	"errors"

	"wleci/internal/domain"
	"wleci/internal/repos"
	"wleci/internal/validate"
)

type Authenticator struct {
	Users *repos.UserRepo
}

// Authenticate verifies email+password. Unknown email, an account without a
// password and a wrong password all yield ErrBadCreds; only the log reason
// differs.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (domain.Identity, error) {
	email = validate.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.Identity{}, badCreds("missing_credentials")
	}

	u, err := a.Users.ByEmail(ctx, email)
	switch {
	case errors.Is(err, repos.ErrNotFound):
		burnCompare(password)
		return domain.Identity{}, badCreds("unknown_email")
	case err != nil:
		return domain.Identity{}, err
	case !u.HasPassword():
		burnCompare(password)
		return domain.Identity{}, badCreds("no_password_set")
	case !CheckPassword(*u.PasswordHash, password):
		return domain.Identity{}, badCreds("password_mismatch")
	}
	return u.Identity(), nil
}

func badCreds(reason string) error {
	return &Error{Kind: ErrBadCreds, Msg: "Invalid email or password", Reason: reason}
}
