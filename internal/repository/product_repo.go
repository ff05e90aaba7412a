package repository

import (
	"context"

	"shopdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository reads and writes the catalog of one shop. Every lookup is owner scoped.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, ownerID uuid.UUID, page, limit int, search string) ([]model.Product, int64, error)
	SetStock(ctx context.Context, ownerID, id uuid.UUID, stock int) error
	AdjustStock(ctx context.Context, ownerID, id uuid.UUID, delta int) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends
func (r *productRepository) FindByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND owner_id = ?", id, ownerID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, ownerID uuid.UUID, page, limit int, search string) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("owner_id = ?", ownerID)
	if search != "" {
		db = db.Where("name ILIKE ? OR barcode = ?", "%"+search+"%", search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) SetStock(ctx context.Context, ownerID, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("stock", stock).Error
}

// AdjustStock applies a relative change in a single statement
func (r *productRepository) AdjustStock(ctx context.Context, ownerID, id uuid.UUID, delta int) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("stock", gorm.Expr("stock + ?", delta)).Error
}
