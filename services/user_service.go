package services

import (
	"context"
	"errors"

	"melodia/apperrors"
	"melodia/auth"
	"melodia/models"
	"melodia/repositories"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SyncMode selects the direction of a liked-tracks synchronization.
type SyncMode int

const (
	SyncAdd SyncMode = iota
	SyncRemove
)

// The UserService interface defines the methods that user services need to implement
type UserService interface {
	Register(input *RegisterInput) (*models.User, error)
	Login(input *LoginInput) (*models.User, string, error)
	GetUserByID(userID uint) (*models.User, error)
	ListUsers() ([]models.User, error)
	UpdateUser(userID uint, input *UpdateUserInput) (*models.User, error)
	DeleteUser(userID uint) error
	SyncLikedTracks(userID uint, trackIDs []uint, mode SyncMode) (*models.User, error)
}

// --- Structs for Input ---

type RegisterInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Secret    string `json:"secret"`
	Birthdate string `json:"birthdate"`
	Role      string `json:"role"` // defaults to "user" when empty
}

// UpdateUserInput is a sparse patch: an empty name, email, birthdate,
// avatarUrl or secret means "leave unchanged". Role is the one exception:
// its value is written verbatim on every update, so callers must resend it.
// The asymmetry is a documented contract, not an accident.
type UpdateUserInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Birthdate string `json:"birthdate"`
	Secret    string `json:"secret"`
	AvatarURL string `json:"avatarUrl"`
}

type LoginInput struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// The userService structure is the implementation of the UserService interface
type userService struct {
	db     *gorm.DB
	users  repositories.UserRepository
	tracks repositories.TrackRepository
	cache  *ListingCache
	logger *zap.Logger
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance. cache may be nil.
func NewUserService(db *gorm.DB, users repositories.UserRepository, tracks repositories.TrackRepository, cache *ListingCache, logger *zap.Logger) UserService {
	return &userService{db: db, users: users, tracks: tracks, cache: cache, logger: logger}
}

// Register handles the creation of a new user account.
func (s *userService) Register(input *RegisterInput) (*models.User, error) {
	if input.Name == "" || input.Email == "" || input.Secret == "" || input.Birthdate == "" {
		return nil, apperrors.InvalidPayload("name, email, secret and birthdate are required")
	}

	role := input.Role
	if role == "" {
		role = "user"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("could not hash password", err)
	}

	user := models.User{
		Name:      input.Name,
		Email:     input.Email,
		Password:  string(hashedPassword),
		Role:      role,
		Birthdate: input.Birthdate,
	}

	// Check and create run in one transaction; the unique index on email is
	// the authoritative guard, the probe only yields the friendlier error.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)

		_, err := repo.FindByEmail(input.Email)
		if err == nil {
			return apperrors.DuplicateEmail(input.Email)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Internal("database error checking existing user", err)
		}

		if err := repo.Create(&user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.DuplicateEmail(input.Email)
			}
			return apperrors.Internal("failed to create user", err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	s.invalidateListing()
	return &user, nil
}

// Login verifies the email/secret pair and issues a bearer token.
func (s *userService) Login(input *LoginInput) (*models.User, string, error) {
	if input.Email == "" || input.Secret == "" {
		return nil, "", apperrors.InvalidPayload("email and secret are required")
	}

	user, err := s.users.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.NotFound("user not found")
		}
		return nil, "", apperrors.Internal("database error retrieving user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Secret)); err != nil {
		return nil, "", apperrors.InvalidPayload("incorrect password")
	}

	token, err := auth.GenerateToken(user)
	if err != nil {
		return nil, "", apperrors.Internal("could not generate token", err)
	}

	return user, token, nil
}

// GetUserByID retrieves a single user by id.
func (s *userService) GetUserByID(userID uint) (*models.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("database error retrieving user", err)
	}
	return user, nil
}

// ListUsers returns every user, served from the listing cache when warm.
func (s *userService) ListUsers() ([]models.User, error) {
	ctx := context.Background()
	if s.cache != nil {
		if users, ok := s.cache.GetUsers(ctx); ok {
			return users, nil
		}
	}

	users, err := s.users.FindAll()
	if err != nil {
		return nil, apperrors.Internal("database error retrieving users", err)
	}

	if s.cache != nil {
		s.cache.SetUsers(ctx, users)
	}
	return users, nil
}

// UpdateUser reconciles a sparse patch against the stored record. Untouched
// fields keep their prior values, a new email is probed for uniqueness
// against other users before anything is written, and the secret is only
// re-hashed when one is supplied. The probe and the write share one
// transaction.
func (s *userService) UpdateUser(userID uint, input *UpdateUserInput) (*models.User, error) {
	var merged *models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)

		user, err := repo.FindByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user not found")
			}
			return apperrors.Internal("database error retrieving user for update", err)
		}

		candidateEmail := user.Email
		if input.Email != "" {
			candidateEmail = input.Email
		}
		if candidateEmail != user.Email {
			owner, err := repo.FindByEmail(candidateEmail)
			if err == nil && owner.ID != user.ID {
				return apperrors.DuplicateEmail(candidateEmail)
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Internal("database error checking email uniqueness", err)
			}
			user.Email = candidateEmail
		}

		if input.Name != "" {
			user.Name = input.Name
		}
		if input.Birthdate != "" {
			user.Birthdate = input.Birthdate
		}
		if input.AvatarURL != "" {
			user.AvatarURL = input.AvatarURL
		}

		// Role takes the patch value verbatim: callers resend it on every
		// update. Unlike the fields above it is never defaulted from the
		// stored record.
		user.Role = input.Role

		if input.Secret != "" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Secret), bcrypt.DefaultCost)
			if err != nil {
				return apperrors.Internal("could not hash new password", err)
			}
			user.Password = string(hashedPassword)
		}

		if err := repo.Update(user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.DuplicateEmail(candidateEmail)
			}
			return apperrors.Internal("failed to save user updates", err)
		}

		merged = user
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.invalidateListing()
	return merged, nil
}

// DeleteUser removes a user account and its liked-tracks membership.
func (s *userService) DeleteUser(userID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)

		user, err := repo.FindByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user not found")
			}
			return apperrors.Internal("database error retrieving user for delete", err)
		}

		if err := repo.Delete(user); err != nil {
			return apperrors.Internal("failed to delete user", err)
		}
		return nil
	})
	if err != nil {
		return asAppError(err)
	}

	s.logger.Info("user deleted", zap.Uint("user_id", userID))
	s.invalidateListing()
	return nil
}

// SyncLikedTracks adds or removes a set of track ids on a user's liked set.
// Every requested id must resolve against the catalog; otherwise the missing
// subset is reported and nothing is mutated. Both directions are idempotent.
func (s *userService) SyncLikedTracks(userID uint, trackIDs []uint, mode SyncMode) (*models.User, error) {
	if len(trackIDs) == 0 {
		return nil, apperrors.InvalidPayload("please provide a non-empty array of track ids")
	}
	ids := dedupeIDs(trackIDs)

	var updated *models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)
		trackRepo := s.tracks.WithTx(tx)

		user, err := userRepo.FindByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user not found, check the user id")
			}
			return apperrors.Internal("database error retrieving user", err)
		}

		tracks, err := trackRepo.FindByIDs(ids)
		if err != nil {
			return apperrors.Internal("database error resolving tracks", err)
		}

		found := make(map[uint]struct{}, len(tracks))
		for _, tr := range tracks {
			found[tr.ID] = struct{}{}
		}
		var missing []uint
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		// All-or-nothing: never connect some ids and drop the rest.
		if len(missing) > 0 {
			return apperrors.UnresolvedReferences(missing)
		}

		switch mode {
		case SyncAdd:
			err = userRepo.AppendLikedTracks(user, tracks)
		case SyncRemove:
			err = userRepo.RemoveLikedTracks(user, tracks)
		}
		if err != nil {
			return apperrors.Internal("failed to update liked tracks", err)
		}

		refreshed, err := userRepo.FindByID(userID)
		if err != nil {
			return apperrors.Internal("database error reloading user", err)
		}
		updated = refreshed
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.invalidateListing()
	return updated, nil
}

func (s *userService) invalidateListing() {
	if s.cache != nil {
		s.cache.Invalidate(context.Background())
	}
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// asAppError keeps typed errors intact and wraps anything unexpected that
// escaped the transaction closure (e.g. a commit failure).
func asAppError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal("unexpected persistence failure", err)
}
