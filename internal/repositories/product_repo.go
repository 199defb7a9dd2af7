package repositories

import (
	"easyshop/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	ProductExists(name string) (bool, error)
	CreateProduct(name, units, price string, imageReference *string) (int64, error)
	UpdateProduct(id int64, name, units, price string, imageReference *string) (bool, error)
	DeleteProduct(id int64) error
	ListProducts() ([]models.Product, error)
	GetProduct(id int64) (*models.Product, error)
}
