package repositories

import (
	"melodia/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository interface defines User-related database operations
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uint) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindAll() ([]models.User, error)
	Update(user *models.User) error
	Delete(user *models.User) error
	AppendLikedTracks(user *models.User, tracks []models.Track) error
	RemoveLikedTracks(user *models.User, tracks []models.Track) error
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) UserRepository
}

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// Create creates a new User
func (r *userRepository) Create(user *models.User) error {
	result := r.db.Create(user)
	return result.Error
}

// FindByID finds a User by ID, including the liked-tracks membership.
func (r *userRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.Preload("LikedTracks").First(&user, id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByEmail finds a User by Email
func (r *userRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	result := r.db.Where("email = ?", email).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindAll returns every User with the liked-tracks membership preloaded.
func (r *userRepository) FindAll() ([]models.User, error) {
	var users []models.User
	result := r.db.Preload("LikedTracks").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// Update saves User column values. The liked-tracks membership is managed
// only through the append/remove operations below.
func (r *userRepository) Update(user *models.User) error {
	result := r.db.Omit(clause.Associations).Save(user)
	return result.Error
}

// Delete removes the User together with its liked-tracks membership rows.
func (r *userRepository) Delete(user *models.User) error {
	if err := r.db.Model(user).Association("LikedTracks").Clear(); err != nil {
		return err
	}
	result := r.db.Delete(user)
	return result.Error
}

// AppendLikedTracks adds tracks to the user's liked set. The join table's
// composite key makes re-adding an already-liked track a no-op.
func (r *userRepository) AppendLikedTracks(user *models.User, tracks []models.Track) error {
	return r.db.Model(user).Association("LikedTracks").Append(&tracks)
}

// RemoveLikedTracks deletes tracks from the user's liked set; removing a
// track that is not currently liked is a no-op.
func (r *userRepository) RemoveLikedTracks(user *models.User, tracks []models.Track) error {
	return r.db.Model(user).Association("LikedTracks").Delete(&tracks)
}
