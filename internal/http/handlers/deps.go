package handlers

import (
	"time"

	"gorm.io/gorm"

	"wleci/internal/config"
	"wleci/internal/repos"
	"wleci/internal/services"
)

type Deps struct {
	Sessions    *services.SessionIssuer
	UserService *services.UserService
	Guard       *Guard

	Auth    *AuthHandler
	Users   *UserHandler
	Profile *ProfileHandler
	Admin   *AdminHandler
	Pages   *PageHandler
	SEO     *SEOHandler
}

func NewDeps(db *gorm.DB, cfg config.Config) (*Deps, error) {
	userRepo := repos.NewUserRepo(db)
	postRepo := repos.NewPostRepo(db)
	revRepo, err := repos.NewRevocationRepo(db)
	if err != nil {
		return nil, err
	}

	sessions := services.NewSessionIssuer(cfg.JWTSecret, cfg.SessionTTL, revRepo)
	userSvc := services.NewUserService(userRepo, sessions)
	authn := &services.Authenticator{Users: userRepo}
	cookie := sessionCookie{Name: cfg.CookieName, Secure: cfg.CookieSecure()}

	return &Deps{
		Sessions:    sessions,
		UserService: userSvc,
		Guard:       NewGuard(sessions, cfg.CookieName, cfg.CookieSecure()),
		Auth:        &AuthHandler{Auth: authn, Users: userSvc, Sessions: sessions, cookie: cookie},
		Users:       &UserHandler{Users: userSvc},
		Profile:     &ProfileHandler{Users: userSvc},
		Admin:       &AdminHandler{Users: userSvc, Posts: postRepo},
		Pages:       &PageHandler{Users: userSvc, Posts: postRepo, cookie: cookie},
		SEO: &SEOHandler{
			BaseURL: cfg.BaseURL,
			Env:     cfg.Env,
			Version: cfg.Version,
			Started: time.Now(),
			DB:      db,
		},
	}, nil
}
