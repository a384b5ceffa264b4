package service

import (
	"context"
	"fmt"

	"prism/internal/apperror"
	"prism/internal/dto"
	"prism/internal/model"
	"prism/internal/repository"
	"prism/pkg/logger"
)

type BoardService interface {
	Create(ctx context.Context, userID string, req dto.CreateBoardRequest) (*dto.BoardResponse, error)
	FindAll(ctx context.Context, userID string) ([]dto.BoardResponse, error)
	FindOne(ctx context.Context, userID string, id uint) (*dto.BoardResponse, error)
	Update(ctx context.Context, userID string, id uint, req dto.UpdateBoardRequest) (*dto.BoardResponse, error)
	Remove(ctx context.Context, userID string, id uint) error
}

type boardService struct {
	log       *logger.Logger
	boardRepo repository.BoardRepository
}

func NewBoardService(log *logger.Logger, boardRepo repository.BoardRepository) BoardService {
	return &boardService{log: log, boardRepo: boardRepo}
}

func (s *boardService) Create(ctx context.Context, userID string, req dto.CreateBoardRequest) (*dto.BoardResponse, error) {
	board := &model.Board{
		UserID:      userID,
		Name:        req.Name,
		Description: dto.ToNullString(req.Description),
	}
	if err := s.boardRepo.Create(ctx, board); err != nil {
		s.log.ErrorContext(ctx, "Failed to create board", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	resp := dto.NewBoardResponse(board)
	return &resp, nil
}

func (s *boardService) FindAll(ctx context.Context, userID string) ([]dto.BoardResponse, error) {
	boards, err := s.boardRepo.FindAllByUser(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find boards", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to find boards: %w", err)
	}
	result := make([]dto.BoardResponse, 0, len(boards))
	for i := range boards {
		result = append(result, dto.NewBoardResponse(&boards[i]))
	}
	return result, nil
}

func (s *boardService) FindOne(ctx context.Context, userID string, id uint) (*dto.BoardResponse, error) {
	board, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewBoardResponse(board)
	return &resp, nil
}

func (s *boardService) Update(ctx context.Context, userID string, id uint, req dto.UpdateBoardRequest) (*dto.BoardResponse, error) {
	board, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		board.Name = *req.Name
	}
	if req.Description != nil {
		board.Description = dto.ToNullString(req.Description)
	}
	if err := s.boardRepo.Update(ctx, board); err != nil {
		s.log.ErrorContext(ctx, "Failed to update board", logger.ErrorField(err), logger.BoardIDField(id))
		return nil, fmt.Errorf("failed to update board: %w", err)
	}
	resp := dto.NewBoardResponse(board)
	return &resp, nil
}

func (s *boardService) Remove(ctx context.Context, userID string, id uint) error {
	board, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.boardRepo.Delete(ctx, board.ID); err != nil {
		s.log.ErrorContext(ctx, "Failed to delete board", logger.ErrorField(err), logger.BoardIDField(id))
		return fmt.Errorf("failed to delete board: %w", err)
	}
	return nil
}

func (s *boardService) findOwned(ctx context.Context, userID string, id uint) (*model.Board, error) {
	board, err := s.boardRepo.FindByID(ctx, id, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find board", logger.ErrorField(err), logger.BoardIDField(id))
		return nil, fmt.Errorf("failed to find board: %w", err)
	}
	if board == nil {
		return nil, apperror.NotFound("Board", id)
	}
	return board, nil
}
