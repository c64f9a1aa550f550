package store

import (
	"context"

	"talklink/models"
)

const defaultAssistantHistory = 20

func (s *Store) SaveEmailHistory(ctx context.Context, h models.EmailHistory) (models.EmailHistory, error) {
	h.ID = 0
	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return models.EmailHistory{}, err
	}
	return h, nil
}

// EmailHistory returns the newest limit entries, newest first.
func (s *Store) EmailHistory(ctx context.Context, limit int) ([]models.EmailHistory, error) {
	if limit <= 0 {
		limit = defaultAssistantHistory
	}
	var out []models.EmailHistory
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

func (s *Store) SaveProposalHistory(ctx context.Context, h models.ProposalHistory) (models.ProposalHistory, error) {
	h.ID = 0
	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return models.ProposalHistory{}, err
	}
	return h, nil
}

// ProposalHistory returns the newest limit proposals, newest first.
func (s *Store) ProposalHistory(ctx context.Context, limit int) ([]models.ProposalHistory, error) {
	if limit <= 0 {
		limit = defaultAssistantHistory
	}
	var out []models.ProposalHistory
	err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}
