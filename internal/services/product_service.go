package services

import (
	"fmt"
	"log/slog"
	"time"

	"easyshop/internal/models"
	"easyshop/internal/repositories"
	"easyshop/pkg/rabbitmq"

	"github.com/google/uuid"
)

// EventPublisher publishes catalog change events. *rabbitmq.Client implements it.
type EventPublisher interface {
	PublishCatalogEvent(event rabbitmq.CatalogEvent) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo   repositories.ProductRepository
	events EventPublisher // nil disables events
	logger *slog.Logger
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(repo repositories.ProductRepository, events EventPublisher, l *slog.Logger) *ProductService {
	if l == nil {
		l = slog.Default()
	}
	return &ProductService{
		repo:   repo,
		events: events,
		logger: l.With(slog.String("component", "product_service")),
	}
}

// ListProducts retrieves all products.
func (s *ProductService) ListProducts() ([]models.Product, error) {
	return s.repo.ListProducts()
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(id int64) (*models.Product, error) {
	return s.repo.GetProduct(id)
}

// ProductExists reports whether the name is taken, ignoring case.
func (s *ProductService) ProductExists(name string) (bool, error) {
	return s.repo.ProductExists(name)
}

// CreateProduct adds a product to the catalog and returns it.
func (s *ProductService) CreateProduct(name, units, price string, imageReference *string) (*models.Product, error) {
	id, err := s.repo.CreateProduct(name, units, price, imageReference)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.publish(rabbitmq.EventProductCreated, id, name)
	return &models.Product{ID: id, Name: name, Units: units, Price: price, ImageReference: imageReference}, nil
}

// UpdateProduct overwrites a product and returns its stored state.
// A nil imageReference keeps the current image.
func (s *ProductService) UpdateProduct(id int64, name, units, price string, imageReference *string) (*models.Product, error) {
	updated, err := s.repo.UpdateProduct(id, name, units, price, imageReference)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if !updated {
		return nil, fmt.Errorf("product with ID %d not found for update: %w", id, repositories.ErrNotFound)
	}

	s.publish(rabbitmq.EventProductUpdated, id, name)
	return s.repo.GetProduct(id)
}

// DeleteProduct removes a product. Deleting a missing product succeeds.
func (s *ProductService) DeleteProduct(id int64) error {
	if err := s.repo.DeleteProduct(id); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	s.publish(rabbitmq.EventProductDeleted, id, "")
	return nil
}

func (s *ProductService) publish(eventType string, productID int64, name string) {
	if s.events == nil {
		return
	}

	event := rabbitmq.CatalogEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		ProductID:  productID,
		Name:       name,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.PublishCatalogEvent(event); err != nil {
		s.logger.Warn("failed to publish catalog event",
			slog.String("type", eventType), slog.Int64("product_id", productID), slog.Any("error", err))
	}
}
