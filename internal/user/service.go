package user

import "context"

// Repository reads user records from the application store.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// Service exposes user lookups to the assignment workflows.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *Service) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return s.repo.ExistingIDs(ctx, ids)
}
