package scenario

import "context"

type service struct {
	repo Repo
}

func NewService(repo Repo) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]*Scenario, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id string) (*Scenario, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Create(ctx context.Context, sc *Scenario) (*Scenario, error) {
	return s.repo.Create(ctx, sc)
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
