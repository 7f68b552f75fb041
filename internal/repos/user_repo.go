package repos

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"wleci/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepo struct{ DB *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	return translate(r.DB.WithContext(ctx).Create(u).Error)
}

func (r *UserRepo) ByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// ByEmail matches the stored address exactly; callers normalize first.
func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// EmailTaken reports whether another account (id != exceptID) owns email.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var n int64
	q := r.DB.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&users).Error
	return users, err
}

// Update applies column changes (keys are column names) and returns the
// fresh row.
func (r *UserRepo) Update(ctx context.Context, id uint, changes map[string]any) (*domain.User, error) {
	if len(changes) > 0 {
		res := r.DB.WithContext(ctx).Model(&domain.User{ID: id}).Updates(changes)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.ByID(ctx, id)
}

func (r *UserRepo) SetPassword(ctx context.Context, id uint, hash string) error {
	res := r.DB.WithContext(ctx).Model(&domain.User{ID: id}).Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&domain.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertAdmin creates or promotes the bootstrap administrator and resets its
// password hash.
func (r *UserRepo) UpsertAdmin(ctx context.Context, email, name, hash string) (*domain.User, error) {
	var u domain.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&u).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			u = domain.User{Email: email, Name: &name, PasswordHash: &hash, Role: domain.RoleAdmin}
			return tx.Create(&u).Error
		case err != nil:
			return err
		}
		return tx.Model(&u).Updates(map[string]any{"name": name, "password": hash, "role": domain.RoleAdmin}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return r.ByID(ctx, u.ID)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

// isUniqueViolation covers drivers whose errors gorm cannot translate
// (modernc sqlite reports only a message).
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
