package repository

import (
	"context"

	"shopdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceFilter narrows an invoice listing
type InvoiceFilter struct {
	Status   string // PAID, DEBT or empty for all
	Customer string // partial match on customer_name
	Page     int
	Limit    int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Invoice, error)
	FindByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*model.Invoice, error)
	FindByCorrelation(ctx context.Context, ownerID, correlationID uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, ownerID uuid.UUID, filter InvoiceFilter) ([]model.Invoice, int64, error)
	UpdatePayment(ctx context.Context, invoice *model.Invoice) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Customers(ctx context.Context, ownerID uuid.UUID) ([]model.Customer, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create inserts the invoice together with its items
func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Items").
		First(&invoice, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND owner_id = ?", id, ownerID).First(&invoice).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoice.ID).Find(&invoice.Items).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByCorrelation(ctx context.Context, ownerID, correlationID uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Items").
		First(&invoice, "owner_id = ? AND correlation_id = ?", ownerID, correlationID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, ownerID uuid.UUID, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("owner_id = ?", ownerID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Customer != "" {
		query = query.Where("customer_name ILIKE ?", "%"+filter.Customer+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Items").Order("created_at desc").
		Offset(offset).Limit(filter.Limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// UpdatePayment persists amount_paid and the status the BeforeSave hook derives from it
func (r *invoiceRepository) UpdatePayment(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(invoice).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", id).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.Invoice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Customers groups invoices by customer, leaving out the walk-in default
func (r *invoiceRepository) Customers(ctx context.Context, ownerID uuid.UUID) ([]model.Customer, error) {
	var customers []model.Customer
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("customer_name as name, MAX(customer_phone) as phone, COUNT(*) as invoice_count, " +
			"COALESCE(SUM(GREATEST(total_amount - amount_paid, 0)), 0) as outstanding_debt").
		Where("owner_id = ? AND customer_name <> ?", ownerID, model.WalkInCustomer).
		Group("customer_name").
		Order("customer_name asc").
		Scan(&customers).Error
	return customers, err
}
