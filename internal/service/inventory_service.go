package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopdesk/internal/model"
	"shopdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	Name    string          `json:"name" binding:"required,max=255"`
	Price   decimal.Decimal `json:"price" binding:"gte=0" swaggertype:"string"`
	Stock   int             `json:"stock" binding:"gte=0"`
	Barcode string          `json:"barcode" binding:"max=100"`
}

type UpdateProductRequest struct {
	Name    string          `json:"name" binding:"required,max=255"`
	Price   decimal.Decimal `json:"price" binding:"gte=0" swaggertype:"string"`
	Stock   *int            `json:"stock" binding:"omitempty,gte=0"`
	Barcode *string         `json:"barcode" binding:"omitempty,max=100"`
}

type ProductResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price" swaggertype:"string"`
	Stock     int             `json:"stock"`
	Barcode   string          `json:"barcode"`
	CreatedAt string          `json:"created_at"`
}

type InventoryService interface {
	GetProducts(ctx context.Context, actor Actor, page, limit int, search string) ([]ProductResponse, int64, error)
	CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, actor Actor, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, actor Actor, id string) error
}

type inventoryService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) InventoryService {
	return &inventoryService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      publisherOrNoop(events),
	}
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Barcode:   p.Barcode,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func (s *inventoryService) GetProducts(ctx context.Context, actor Actor, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, actor.OwnerID, page, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (ProductResponse, error) {
	if req.Price.IsNegative() || req.Stock < 0 {
		return ProductResponse{}, fmt.Errorf("%w: price and stock must not be negative", ErrValidation)
	}

	product := model.Product{
		OwnerID: actor.OwnerID,
		Name:    strings.TrimSpace(req.Name),
		Price:   req.Price,
		Stock:   req.Stock,
		Barcode: strings.TrimSpace(req.Barcode),
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	res := toProductResponse(&product)
	s.events.Publish(actor.OwnerID.String(), EventStockChanged, res)
	return res, nil
}

func (s *inventoryService) findProduct(ctx context.Context, actor Actor, id string) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product id", ErrValidation)
	}
	product, err := s.productRepo.FindByID(ctx, actor.OwnerID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product", ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, actor Actor, id string, req UpdateProductRequest) (ProductResponse, error) {
	if req.Price.IsNegative() || (req.Stock != nil && *req.Stock < 0) {
		return ProductResponse{}, fmt.Errorf("%w: price and stock must not be negative", ErrValidation)
	}

	product, err := s.findProduct(ctx, actor, id)
	if err != nil {
		return ProductResponse{}, err
	}

	product.Name = strings.TrimSpace(req.Name)
	product.Price = req.Price
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Barcode != nil {
		product.Barcode = strings.TrimSpace(*req.Barcode)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	res := toProductResponse(product)
	s.events.Publish(actor.OwnerID.String(), EventStockChanged, res)
	return res, nil
}

func (s *inventoryService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	product, err := s.findProduct(ctx, actor, id)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, actor.OwnerID, product.ID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteProduct, product.ID.String(), product.Name,
			map[string]interface{}{"deleted": true})
	})
	if err != nil {
		return err
	}

	s.events.Publish(actor.OwnerID.String(), EventStockChanged, map[string]interface{}{"id": product.ID.String(), "deleted": true})
	return nil
}
