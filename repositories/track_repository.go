package repositories

import (
	"melodia/models"

	"gorm.io/gorm"
)

// TrackRepository interface defines Track-related database operations
type TrackRepository interface {
	Create(track *models.Track) error
	FindByIDs(ids []uint) ([]models.Track, error)
	FindAll() ([]models.Track, error)
	WithTx(tx *gorm.DB) TrackRepository
}

type trackRepository struct {
	db *gorm.DB
}

// NewTrackRepository creates a new TrackRepository instance
func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &trackRepository{db: db}
}

func (r *trackRepository) WithTx(tx *gorm.DB) TrackRepository {
	return &trackRepository{db: tx}
}

func (r *trackRepository) Create(track *models.Track) error {
	result := r.db.Create(track)
	return result.Error
}

// FindByIDs batch-resolves track ids; ids with no catalog row are simply
// absent from the result.
func (r *trackRepository) FindByIDs(ids []uint) ([]models.Track, error) {
	var tracks []models.Track
	result := r.db.Where("id IN ?", ids).Find(&tracks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tracks, nil
}

func (r *trackRepository) FindAll() ([]models.Track, error) {
	var tracks []models.Track
	result := r.db.Find(&tracks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tracks, nil
}
