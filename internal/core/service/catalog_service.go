package service

import (
	"context"

	"github.com/rl1809/sales-api/internal/core/domain"
	"github.com/rl1809/sales-api/internal/port"
)

type ArticleService struct {
	repo port.ArticleRepository
}

func NewArticleService(repo port.ArticleRepository) *ArticleService {
	return &ArticleService{repo: repo}
}

func (s *ArticleService) GetAll(ctx context.Context) ([]domain.Article, error) {
	return s.repo.ListArticles(ctx)
}

func (s *ArticleService) GetByID(ctx context.Context, id int64) (*domain.Article, error) {
	return s.repo.GetArticle(ctx, id)
}

func (s *ArticleService) Create(ctx context.Context, article domain.Article) (*domain.Article, error) {
	article.ID = 0
	if err := s.repo.CreateArticle(ctx, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// Update reports false when the article does not exist.
func (s *ArticleService) Update(ctx context.Context, article domain.Article) (bool, error) {
	return s.repo.UpdateArticle(ctx, article)
}

func (s *ArticleService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.repo.DeleteArticle(ctx, id)
}

type CustomerService struct {
	repo port.CustomerRepository
}

func NewCustomerService(repo port.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

func (s *CustomerService) GetAll(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *CustomerService) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *CustomerService) Create(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.ID = 0
	if err := s.repo.CreateCustomer(ctx, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *CustomerService) Update(ctx context.Context, customer domain.Customer) (bool, error) {
	return s.repo.UpdateCustomer(ctx, customer)
}

func (s *CustomerService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.repo.DeleteCustomer(ctx, id)
}
