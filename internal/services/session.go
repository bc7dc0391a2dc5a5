package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	redisclient "github.com/taskhive/taskhive-backend/internal/clients/redis"
	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/repos"
	"github.com/taskhive/taskhive-backend/internal/requestdata"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// SessionService is the single source of truth for "is someone logged
// in, and who". It owns registration, the token lifecycle, and the
// identity-change subscription surface.
type SessionService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// CurrentIdentity never fails: anything short of a proven identity
	// reports as no identity.
	CurrentIdentity(ctx context.Context) (uuid.UUID, bool)
	// OnIdentityChange registers a handler for login/logout events and
	// returns its unsubscribe function. Consumers must call it on
	// teardown or risk the handler firing against a defunct view.
	OnIdentityChange(handler func(types.IdentityEvent)) func()
	DispatchIdentityEvent(event types.IdentityEvent)
	GetAccessTTL() time.Duration
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type sessionService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	profileRepo   repos.ProfileRepo
	userTokenRepo repos.UserTokenRepo
	identityBus   redisclient.IdentityBus
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration

	subMu   sync.Mutex
	nextSub uint64
	subs    map[uint64]func(types.IdentityEvent)
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	profileRepo repos.ProfileRepo,
	userTokenRepo repos.UserTokenRepo,
	identityBus redisclient.IdentityBus,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) SessionService {
	return &sessionService{
		db:            db,
		log:           log.With("service", "SessionService"),
		userRepo:      userRepo,
		profileRepo:   profileRepo,
		userTokenRepo: userTokenRepo,
		identityBus:   identityBus,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		subs:          map[uint64]func(types.IdentityEvent){},
	}
}

func (ss *sessionService) RegisterUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return fmt.Errorf("invalid email")
	}
	if len(user.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	exists, err := ss.userRepo.EmailExists(ctx, nil, user.Email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return fmt.Errorf("email already registered")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)
	return ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.ID = uuid.New()
		if _, err := ss.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		// Every identity starts out as a customer with nothing onboarded.
		if _, err := ss.profileRepo.EnsureForUser(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("create default profile: %w", err)
		}
		return nil
	})
}

func (ss *sessionService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	users, err := ss.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		ss.log.Warn("Login lookup failed", "error", err)
		return "", "", fmt.Errorf("lookup user: %w", err)
	}
	if len(users) == 0 {
		return "", "", ErrInvalidLogin
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", ErrInvalidLogin
	}

	var accessToken, refreshToken string
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Profile may predate a BaaS-side trigger; make sure it exists
		// before anything downstream asks about roles.
		if _, err := ss.profileRepo.EnsureForUser(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("ensure profile: %w", err)
		}
		if err := ss.pruneExpiredTokens(ctx, tx, user.ID); err != nil {
			return err
		}
		tok, err := ss.generateAccessToken(user)
		if err != nil {
			return fmt.Errorf("generate access token: %w", err)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		row := types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(ss.refreshTTL),
		}
		if _, err := ss.userTokenRepo.Create(ctx, tx, []*types.UserToken{&row}); err != nil {
			return fmt.Errorf("create user token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	ss.publish(ctx, types.IdentityEvent{Kind: types.IdentitySignedIn, UserID: user.ID})
	return accessToken, refreshToken, nil
}

func (ss *sessionService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", ErrUnauthenticated
	}

	var accessToken, newRefreshToken string
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := ss.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if err != nil {
			return fmt.Errorf("fetch refresh token: %w", err)
		}
		if len(found) == 0 {
			return fmt.Errorf("unknown refresh token")
		}
		existing := found[0]
		if existing.ExpiresAt.Before(time.Now()) {
			if err := ss.userTokenRepo.DeleteByTokens(ctx, tx, []*types.UserToken{existing}); err != nil {
				ss.log.Warn("Failed to delete expired token", "error", err)
			}
			return fmt.Errorf("refresh token expired")
		}
		users, err := ss.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existing.UserID})
		if err != nil {
			return fmt.Errorf("load user for refresh: %w", err)
		}
		if len(users) == 0 {
			return fmt.Errorf("no user for refresh token")
		}
		tok, err := ss.generateAccessToken(users[0])
		if err != nil {
			return fmt.Errorf("generate access token: %w", err)
		}
		accessToken = tok
		newRefreshToken = uuid.New().String()
		row := types.UserToken{
			ID:           uuid.New(),
			UserID:       existing.UserID,
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			ExpiresAt:    time.Now().Add(ss.refreshTTL),
		}
		if _, err := ss.userTokenRepo.Create(ctx, tx, []*types.UserToken{&row}); err != nil {
			return fmt.Errorf("create rotated token: %w", err)
		}
		return ss.userTokenRepo.DeleteByTokens(ctx, tx, []*types.UserToken{existing})
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}

func (ss *sessionService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return ErrUnauthenticated
	}
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := ss.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
		if err != nil {
			return fmt.Errorf("find user token: %w", err)
		}
		if len(found) == 0 {
			return nil
		}
		return ss.userTokenRepo.DeleteByTokens(ctx, tx, found)
	})
	if err != nil {
		return err
	}
	if rd.UserID != uuid.Nil {
		ss.publish(ctx, types.IdentityEvent{Kind: types.IdentitySignedOut, UserID: rd.UserID})
	}
	return nil
}

func (ss *sessionService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(ss.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	var refreshToken string
	found, err := ss.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if err != nil {
		return ctx, fmt.Errorf("fetch user token: %w", err)
	}
	if len(found) == 0 {
		return ctx, fmt.Errorf("token revoked")
	}
	refreshToken = found[0].RefreshToken
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshToken,
		UserID:       userID,
	}), nil
}

func (ss *sessionService) CurrentIdentity(ctx context.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func (ss *sessionService) OnIdentityChange(handler func(types.IdentityEvent)) func() {
	ss.subMu.Lock()
	defer ss.subMu.Unlock()
	ss.nextSub++
	id := ss.nextSub
	ss.subs[id] = handler
	return func() {
		ss.subMu.Lock()
		defer ss.subMu.Unlock()
		delete(ss.subs, id)
	}
}

// DispatchIdentityEvent delivers an event to local subscribers. The bus
// forwarder calls this with every event published anywhere.
func (ss *sessionService) DispatchIdentityEvent(event types.IdentityEvent) {
	ss.subMu.Lock()
	handlers := make([]func(types.IdentityEvent), 0, len(ss.subs))
	for _, h := range ss.subs {
		handlers = append(handlers, h)
	}
	ss.subMu.Unlock()
	for _, h := range handlers {
		h(event)
	}
}

func (ss *sessionService) publish(ctx context.Context, event types.IdentityEvent) {
	if ss.identityBus == nil {
		ss.DispatchIdentityEvent(event)
		return
	}
	if err := ss.identityBus.Publish(ctx, event); err != nil {
		ss.log.Warn("Identity event publish failed, dispatching locally", "error", err)
		ss.DispatchIdentityEvent(event)
	}
}

func (ss *sessionService) pruneExpiredTokens(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	found, err := ss.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("check user tokens: %w", err)
	}
	var expired []*types.UserToken
	for _, t := range found {
		if t != nil && t.ExpiresAt.Before(time.Now()) {
			expired = append(expired, t)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	return ss.userTokenRepo.DeleteByTokens(ctx, tx, expired)
}

func (ss *sessionService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ss.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(ss.jwtSecretKey))
}

func (ss *sessionService) GetAccessTTL() time.Duration {
	return ss.accessTTL
}
