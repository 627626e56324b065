package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"restchain/internal/model"
	"restchain/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

type RegisterUserDTO struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token   string    `json:"token"`
	ActorID uuid.UUID `json:"actor_id"`
}

type CreateDefaultActorDTO struct {
	Name string `json:"name" binding:"required"`
}

type UserResponse struct {
	ID      uuid.UUID `json:"id"`
	ActorID uuid.UUID `json:"actor_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone"`
}

// --- Interface ---

// ActorService is the actor registry plus the authentication boundary.
// Every registration creates the underlying Actor row together with its
// specialization; actors themselves are never deleted.
type ActorService interface {
	RegisterUser(ctx context.Context, req RegisterUserDTO) (*UserResponse, error)
	Login(ctx context.Context, req LoginDTO) (*TokenResponse, error)
	CreateDefaultActor(ctx context.Context, req CreateDefaultActorDTO) (*model.DefaultActor, error)
	GetActor(ctx context.Context, id uuid.UUID) (*model.Actor, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// EnsureSystemActor seeds the SYSTEM default actor with the superuser
	// flag. Idempotent; called at startup.
	EnsureSystemActor(ctx context.Context) (*model.DefaultActor, error)
}

type actorService struct {
	actors repository.ActorRepository
	txm    repository.TransactionManager
}

func NewActorService(actors repository.ActorRepository, txm repository.TransactionManager) ActorService {
	return &actorService{actors: actors, txm: txm}
}

// --- Implementation ---

func (s *actorService) RegisterUser(ctx context.Context, req RegisterUserDTO) (*UserResponse, error) {
	if _, err := s.actors.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	var user *model.User
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		actor := &model.Actor{}
		if err := s.actors.CreateActor(txCtx, actor); err != nil {
			return fmt.Errorf("failed to create actor: %w", err)
		}
		user = &model.User{
			ActorID:  actor.ID,
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Password: string(hashed),
		}
		if err := s.actors.CreateUser(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *actorService) Login(ctx context.Context, req LoginDTO) (*TokenResponse, error) {
	user, err := s.actors.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ActorID.String(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, errors.New("failed to sign token")
	}
	return &TokenResponse{Token: signed, ActorID: user.ActorID}, nil
}

func (s *actorService) CreateDefaultActor(ctx context.Context, req CreateDefaultActorDTO) (*model.DefaultActor, error) {
	if _, err := s.actors.GetDefaultActorByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("default actor %q already exists", req.Name)
	}

	var da *model.DefaultActor
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		actor := &model.Actor{}
		if err := s.actors.CreateActor(txCtx, actor); err != nil {
			return fmt.Errorf("failed to create actor: %w", err)
		}
		da = &model.DefaultActor{ActorID: actor.ID, Name: req.Name}
		return s.actors.CreateDefaultActor(txCtx, da)
	})
	if err != nil {
		return nil, err
	}
	return da, nil
}

func (s *actorService) GetActor(ctx context.Context, id uuid.UUID) (*model.Actor, error) {
	return s.actors.GetActor(ctx, id)
}

func (s *actorService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.actors.ListUsers(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *toUserResponse(&users[i]))
	}
	return out, total, nil
}

func (s *actorService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	// soft delete only; the underlying Actor row stays so historical tasks
	// keep valid participant references
	return s.actors.DeleteUser(ctx, id)
}

func (s *actorService) EnsureSystemActor(ctx context.Context) (*model.DefaultActor, error) {
	if da, err := s.actors.GetDefaultActorByName(ctx, model.SystemActorName); err == nil {
		return da, nil
	}

	var da *model.DefaultActor
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		actor := &model.Actor{Superuser: true}
		if err := s.actors.CreateActor(txCtx, actor); err != nil {
			return fmt.Errorf("failed to create system actor: %w", err)
		}
		da = &model.DefaultActor{ActorID: actor.ID, Name: model.SystemActorName}
		return s.actors.CreateDefaultActor(txCtx, da)
	})
	if err != nil {
		return nil, err
	}
	return da, nil
}

func toUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:      u.ID,
		ActorID: u.ActorID,
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
	}
}
