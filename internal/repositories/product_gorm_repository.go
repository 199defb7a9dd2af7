package repositories

import (
	"fmt"
	"log/slog"
	"strings"

	"easyshop/internal/models"
)

// ProductExists reports whether a product with this name exists, ignoring case.
func (s *CatalogStore) ProductExists(name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if name == "" {
		return false, nil
	}

	var count int64
	if err := s.db.Model(&models.Product{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
		return false, s.storageError("check product exists", err)
	}
	return count > 0, nil
}

// CreateProduct inserts a new product and returns its id.
// A name already used by another product, in any case, is rejected with ErrAlreadyExists.
func (s *CatalogStore) CreateProduct(name, units, price string, imageReference *string) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	product := &models.Product{Name: name, Units: units, Price: price, ImageReference: imageReference}
	if err := s.validateModel(product); err != nil {
		return 0, err
	}

	exists, err := s.ProductExists(name)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("product '%s' already exists: %w", name, ErrAlreadyExists)
	}

	if err := s.db.Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("product '%s' already exists: %w", name, ErrAlreadyExists)
		}
		return 0, s.storageError("create product", err)
	}

	s.logger.Info("product created", slog.Int64("id", product.ID), slog.String("name", product.Name))
	return product.ID, nil
}

// UpdateProduct overwrites name, units and price of the product with the given id.
// The image reference is only replaced when imageReference is non-nil.
// It reports whether a row was affected.
func (s *CatalogStore) UpdateProduct(id int64, name, units, price string, imageReference *string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	if err := s.validateModel(&models.Product{Name: name, Units: units, Price: price}); err != nil {
		return false, err
	}

	values := map[string]any{
		"name":  name,
		"units": units,
		"price": price,
	}
	if imageReference != nil {
		values["image_reference"] = *imageReference
	}

	res := s.db.Model(&models.Product{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, fmt.Errorf("product '%s' already exists: %w", name, ErrAlreadyExists)
		}
		return false, s.storageError("update product", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteProduct removes the product with the given id. Deleting a missing product is a no-op.
func (s *CatalogStore) DeleteProduct(id int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	res := s.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return s.storageError("delete product", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info("product deleted", slog.Int64("id", id))
	}
	return nil
}

// ListProducts returns every product ordered by id.
func (s *CatalogStore) ListProducts() ([]models.Product, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	products := make([]models.Product, 0)
	if err := s.db.Order("id ASC").Find(&products).Error; err != nil {
		return nil, s.storageError("list products", err)
	}
	return products, nil
}

// GetProduct retrieves a single product by its id.
func (s *CatalogStore) GetProduct(id int64) (*models.Product, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := s.db.Where("id = ?", id).Limit(1).Find(&products).Error; err != nil {
		return nil, s.storageError("get product", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("product with ID %d: %w", id, ErrNotFound)
	}
	return &products[0], nil
}
