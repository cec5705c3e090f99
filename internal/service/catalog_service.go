package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloudimart/internal/domain"
	"cloudimart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeaturedLimit caps the featured product listing
const FeaturedLimit = 6

// slugAttempts bounds the unique-slug suffix search
const slugAttempts = 50

var ErrSlugExhausted = errors.New("could not generate a unique product slug")

// ProductInput carries the fields accepted when creating or updating a
// product through the admin surface.
type ProductInput struct {
	CategoryID    uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
	IsActive      bool
	Featured      bool
}

// StockCheck reports availability for a requested quantity
type StockCheck struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	InStock   bool      `json:"in_stock"`
}

// CatalogService defines the interface for product catalog business logic
type CatalogService interface {
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error)
	Featured(ctx context.Context) ([]*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ByCategoryName(ctx context.Context, name string) ([]*domain.Product, error)
	CheckStock(ctx context.Context, id uuid.UUID, quantity int) (*StockCheck, error)
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.Product, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// List retrieves products with optional category, search and sort filters
func (s *catalogService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	return s.productRepo.List(ctx, filter)
}

// Featured retrieves the featured in-stock products for the storefront
func (s *catalogService) Featured(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.Featured(ctx, FeaturedLimit)
}

// GetByID retrieves a single product
func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// ByCategoryName retrieves the products of the named category
func (s *catalogService) ByCategoryName(ctx context.Context, name string) ([]*domain.Product, error) {
	if _, err := s.categoryRepo.FindByName(ctx, name); err != nil {
		return nil, err
	}
	return s.productRepo.List(ctx, repository.ProductFilter{CategoryName: name})
}

// CheckStock probes whether quantity units of the product are available
func (s *catalogService) CheckStock(ctx context.Context, id uuid.UUID, quantity int) (*StockCheck, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &StockCheck{
		ProductID: product.ID,
		Requested: quantity,
		Available: product.StockQuantity,
		InStock:   product.InStock(quantity),
	}, nil
}

// Create adds a product to the catalog with a unique generated slug
func (s *catalogService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, input.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:            uuid.New(),
		CategoryID:    input.CategoryID,
		Name:          input.Name,
		Slug:          slug,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		ImageURL:      input.ImageURL,
		IsActive:      input.IsActive,
		Featured:      input.Featured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return s.productRepo.FindByID(ctx, product.ID)
}

// Update changes a product's catalog fields. The slug is regenerated when
// the name changes; stock is not touched here.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	if input.Name != product.Name {
		slug, err := s.uniqueSlug(ctx, input.Name)
		if err != nil {
			return nil, err
		}
		product.Slug = slug
	}

	product.CategoryID = input.CategoryID
	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.ImageURL = input.ImageURL
	product.IsActive = input.IsActive
	product.Featured = input.Featured

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return s.productRepo.FindByID(ctx, id)
}

// Delete removes a product from the catalog
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// SetStock overwrites a product's stock count (admin stock correction)
func (s *catalogService) SetStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.Product, error) {
	if err := s.productRepo.SetStock(ctx, id, quantity); err != nil {
		return nil, err
	}
	return s.productRepo.FindByID(ctx, id)
}

// uniqueSlug slugifies name and appends -2, -3, ... until the slug is free
func (s *catalogService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	slug := base

	for i := 2; i <= slugAttempts; i++ {
		exists, err := s.productRepo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	return "", ErrSlugExhausted
}
