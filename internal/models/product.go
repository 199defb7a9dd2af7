package models

// Product represents a catalog entry in the store.
type Product struct {
	ID             int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name           string  `json:"name" gorm:"type:text;not null;uniqueIndex:idx_product_name" validate:"required"`
	Units          string  `json:"units" gorm:"type:text;not null" validate:"required"`
	Price          string  `json:"price" gorm:"type:text;not null" validate:"required"`     // free-form, not numeric
	ImageReference *string `json:"image_reference" gorm:"column:image_reference;type:text"` // nil means no image
}

// TableName returns the products table name.
func (Product) TableName() string {
	return "products"
}
