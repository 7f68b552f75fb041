package repos

import (
	"context"

	"gorm.io/gorm"

	"wleci/internal/domain"
)

type PostRepo struct{ DB *gorm.DB }

func NewPostRepo(db *gorm.DB) *PostRepo { return &PostRepo{DB: db} }

// ListPublished returns the newest published posts, authors preloaded.
func (r *PostRepo) ListPublished(ctx context.Context, limit int) ([]domain.Post, error) {
	var posts []domain.Post
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("published = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// Stats counts users and posts for the analytics page.
func (r *PostRepo) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	db := r.DB.WithContext(ctx)
	if err := db.Model(&domain.User{}).Count(&s.Users).Error; err != nil {
		return s, err
	}
	if err := db.Model(&domain.User{}).Where("role = ?", domain.RoleAdmin).Count(&s.Admins).Error; err != nil {
		return s, err
	}
	if err := db.Model(&domain.Post{}).Count(&s.Posts).Error; err != nil {
		return s, err
	}
	if err := db.Model(&domain.Post{}).Where("published = ?", true).Count(&s.Published).Error; err != nil {
		return s, err
	}
	return s, nil
}
