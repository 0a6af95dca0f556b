package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"gorm.io/gorm"
)

var ErrInvalidVoteType = errors.New("invalid voteType: must be up or down")

type VoteService struct {
	db *gorm.DB
}

func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{db: db}
}

// Toggle applies a vote for userID on fileID:
//   - no existing vote: insert it
//   - same direction: remove it
//   - opposite direction: update in place
//
// Replaying the same request therefore alternates between voted and not voted.
func (s *VoteService) Toggle(ctx context.Context, userID, fileID uuid.UUID, voteType string) (*dto.VoteResponse, error) {
	if voteType != models.VoteUp && voteType != models.VoteDown {
		return nil, ErrInvalidVoteType
	}

	var current *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(models.PublishedFiles).Select("id").First(&models.File{}, "id = ?", fileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFileNotFound
			}
			return err
		}

		var existing models.Vote
		err := tx.Where("file_id = ? AND user_id = ?", fileID, userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{FileID: fileID, UserID: userID, VoteType: voteType}
			if err := tx.Create(&vote).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrConcurrentVote
				}
				return err
			}
			current = &vote.VoteType
		case err != nil:
			return err
		case existing.VoteType == voteType:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		default:
			if err := tx.Model(&existing).Update("vote_type", voteType).Error; err != nil {
				return err
			}
			current = &voteType
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFileNotFound) || errors.Is(err, ErrConcurrentVote) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to toggle vote: %w", err)
	}

	resp, err := s.Counts(ctx, fileID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	resp.UserVote = current
	return resp, nil
}

// Counts returns aggregate counts for a file and, when userID is set, that
// user's current vote.
func (s *VoteService) Counts(ctx context.Context, fileID, userID uuid.UUID) (*dto.VoteResponse, error) {
	db := s.db.WithContext(ctx)
	var resp dto.VoteResponse
	if err := db.Model(&models.Vote{}).Where("file_id = ? AND vote_type = ?", fileID, models.VoteUp).Count(&resp.UpVotes).Error; err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	if err := db.Model(&models.Vote{}).Where("file_id = ? AND vote_type = ?", fileID, models.VoteDown).Count(&resp.DownVotes).Error; err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	if userID != uuid.Nil {
		var vote models.Vote
		err := db.Where("file_id = ? AND user_id = ?", fileID, userID).First(&vote).Error
		if err == nil {
			resp.UserVote = &vote.VoteType
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return &resp, nil
}
