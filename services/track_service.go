package services

import (
	"melodia/apperrors"
	"melodia/models"
	"melodia/repositories"
)

// TrackService exposes the read-only track catalog.
type TrackService interface {
	ListTracks() ([]models.Track, error)
}

type trackService struct {
	tracks repositories.TrackRepository
}

var _ TrackService = (*trackService)(nil)

func NewTrackService(tracks repositories.TrackRepository) TrackService {
	return &trackService{tracks: tracks}
}

func (s *trackService) ListTracks() ([]models.Track, error) {
	tracks, err := s.tracks.FindAll()
	if err != nil {
		return nil, apperrors.Internal("database error retrieving tracks", err)
	}
	return tracks, nil
}
