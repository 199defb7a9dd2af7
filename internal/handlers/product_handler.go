package handlers

import (
	"strconv"
	"strings"

	"easyshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/exists", h.HandleProductExists)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// ProductRequest is the body of create and update requests.
// Omitting image_reference on update keeps the stored image.
type ProductRequest struct {
	Name           string  `json:"name" validate:"required"`
	Units          string  `json:"units" validate:"required"`
	Price          string  `json:"price" validate:"required"`
	ImageReference *string `json:"image_reference"`
}

// parseProductRequest binds and trims the body. A nil request means the
// error response has already been written.
func (h *ProductHandler) parseProductRequest(c *fiber.Ctx) (*ProductRequest, error) {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, badBody(c, err)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Units = strings.TrimSpace(req.Units)
	req.Price = strings.TrimSpace(req.Price)
	if req.ImageReference != nil && *req.ImageReference == "" {
		req.ImageReference = nil
	}

	if err := h.validate.Struct(req); err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "All fields are required",
		})
	}
	return &req, nil
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Product id must be a positive integer",
	})
}

// HandleListProducts returns every product in id order.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts()
	if err != nil {
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleProductExists reports whether ?name= is already used, ignoring case.
func (h *ProductHandler) HandleProductExists(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Query parameter 'name' is required",
		})
	}

	exists, err := h.service.ProductExists(name)
	if err != nil {
		return respondError(c, err, "Could not check product")
	}
	return c.JSON(fiber.Map{"exists": exists})
}

// HandleGetProduct returns a single product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}

	product, err := h.service.GetProduct(id)
	if err != nil {
		return respondError(c, err, "Could not retrieve product")
	}
	return c.JSON(product)
}

// HandleCreateProduct adds a product to the catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	req, err := h.parseProductRequest(c)
	if req == nil {
		return err
	}

	product, err := h.service.CreateProduct(req.Name, req.Units, req.Price, req.ImageReference)
	if err != nil {
		return respondError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct overwrites an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	req, err := h.parseProductRequest(c)
	if req == nil {
		return err
	}

	product, err := h.service.UpdateProduct(id, req.Name, req.Units, req.Price, req.ImageReference)
	if err != nil {
		return respondError(c, err, "Could not update product")
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product. Deleting a missing product still succeeds.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}

	if err := h.service.DeleteProduct(id); err != nil {
		return respondError(c, err, "Could not delete product")
	}
	return c.JSON(fiber.Map{
		"message": "Product " + strconv.FormatInt(id, 10) + " deleted successfully",
	})
}
