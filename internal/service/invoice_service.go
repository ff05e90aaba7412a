package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopdesk/internal/logger"
	"shopdesk/internal/model"
	"shopdesk/internal/receipt"
	"shopdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type InvoiceItemRequest struct {
	ProductID string          `json:"product_id" binding:"omitempty,uuid"`
	Name      string          `json:"name" binding:"required,max=255"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"gte=0" swaggertype:"string"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
}

// CreateInvoiceRequest has the shape of a queued offline sale, so live checkout
// and resynchronization post the same body.
type CreateInvoiceRequest struct {
	CorrelationID string               `json:"correlation_id" binding:"omitempty,uuid"`
	InvoiceNumber string               `json:"invoice_number" binding:"required,max=50"`
	CustomerName  string               `json:"customer_name" binding:"max=255"`
	CustomerPhone string               `json:"customer_phone" binding:"max=50"`
	Items         []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount   decimal.Decimal      `json:"total_amount" binding:"gte=0" swaggertype:"string"`
	AmountPaid    decimal.Decimal      `json:"amount_paid" binding:"gte=0" swaggertype:"string"`
	Status        string               `json:"status"`     // ignored, derived from the amounts
	CreatedAt     *time.Time           `json:"created_at"` // sale time of an offline sale
}

type SettleDebtRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"gt=0" swaggertype:"string"`
}

type DeleteInvoiceRequest struct {
	Password string `json:"password" binding:"required"`
}

type InvoiceFilter struct {
	Status   string
	Customer string
	Page     int
	Limit    int
}

type InvoiceItemResponse struct {
	ID             string          `json:"id"`
	ProductID      *string         `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Quantity       int             `json:"quantity"`
	StockShortfall int             `json:"stock_shortfall"`
}

type InvoiceResponse struct {
	ID            string                `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	CorrelationID *string               `json:"correlation_id"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone"`
	Items         []InvoiceItemResponse `json:"items"`
	TotalAmount   decimal.Decimal       `json:"total_amount" swaggertype:"string"`
	AmountPaid    decimal.Decimal       `json:"amount_paid" swaggertype:"string"`
	RemainingDebt decimal.Decimal       `json:"remaining_debt" swaggertype:"string"`
	Status        string                `json:"status"`
	CreatedBy     *string               `json:"created_by"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

// --- Interface ---

type InvoiceService interface {
	// CreateInvoice persists a sale. created is false when the correlation id was already recorded.
	CreateInvoice(ctx context.Context, actor Actor, req CreateInvoiceRequest) (res InvoiceResponse, created bool, err error)
	GetInvoice(ctx context.Context, actor Actor, id string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, actor Actor, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	ListCustomers(ctx context.Context, actor Actor) ([]model.Customer, error)
	SettleDebt(ctx context.Context, actor Actor, id string, req SettleDebtRequest) (InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, actor Actor, id string, req DeleteInvoiceRequest) error
	RenderReceipt(ctx context.Context, actor Actor, id string) ([]byte, string, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
	log         zerolog.Logger
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      publisherOrNoop(events),
		log:         logger.WithComponent("invoice"),
	}
}

func toInvoiceResponse(inv *model.Invoice) InvoiceResponse {
	res := InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Items:         make([]InvoiceItemResponse, 0, len(inv.Items)),
		TotalAmount:   inv.TotalAmount,
		AmountPaid:    inv.AmountPaid,
		RemainingDebt: inv.RemainingDebt(),
		Status:        inv.Status,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     inv.UpdatedAt.Format(time.RFC3339),
	}
	if inv.CorrelationID != nil {
		c := inv.CorrelationID.String()
		res.CorrelationID = &c
	}
	if inv.CreatedBy != nil {
		c := inv.CreatedBy.String()
		res.CreatedBy = &c
	}
	for _, item := range inv.Items {
		ir := InvoiceItemResponse{
			ID:             item.ID.String(),
			Name:           item.Name,
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			StockShortfall: item.StockShortfall,
		}
		if item.ProductID != nil {
			p := item.ProductID.String()
			ir.ProductID = &p
		}
		res.Items = append(res.Items, ir)
	}
	return res
}

// --- Implementation ---

func (s *invoiceService) buildInvoice(actor Actor, req CreateInvoiceRequest) (*model.Invoice, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: an invoice needs at least one item", ErrValidation)
	}
	if strings.TrimSpace(req.InvoiceNumber) == "" {
		return nil, fmt.Errorf("%w: invoice_number is required", ErrValidation)
	}
	if req.TotalAmount.IsNegative() || req.AmountPaid.IsNegative() {
		return nil, fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	}
	if req.AmountPaid.GreaterThan(req.TotalAmount) {
		return nil, fmt.Errorf("%w: amount_paid %s exceeds total_amount %s", ErrOverpayment, req.AmountPaid, req.TotalAmount)
	}

	inv := &model.Invoice{
		OwnerID:       actor.OwnerID,
		CreatedBy:     actor.userRef(),
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		CustomerName:  strings.ToUpper(strings.TrimSpace(req.CustomerName)),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		TotalAmount:   req.TotalAmount,
		AmountPaid:    req.AmountPaid,
		Items:         make([]model.InvoiceItem, 0, len(req.Items)),
	}
	if inv.CustomerName == "" {
		inv.CustomerName = model.WalkInCustomer
	}
	if req.CorrelationID != "" {
		corr, err := uuid.Parse(req.CorrelationID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid correlation_id", ErrValidation)
		}
		inv.CorrelationID = &corr
	}
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() && req.CreatedAt.Before(time.Now()) {
		inv.CreatedAt = *req.CreatedAt
	}

	lines := decimal.Zero
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %q needs a positive quantity and a non-negative price", ErrValidation, item.Name)
		}
		line := model.InvoiceItem{
			Name:      strings.TrimSpace(item.Name),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
		if item.ProductID != "" {
			pid, err := uuid.Parse(item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid product_id %q", ErrValidation, item.ProductID)
			}
			line.ProductID = &pid
		}
		inv.Items = append(inv.Items, line)
		lines = lines.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !lines.Equal(req.TotalAmount) {
		return nil, fmt.Errorf("%w: total_amount %s does not match the items total %s", ErrValidation, req.TotalAmount, lines)
	}

	// client-sent status is never trusted
	inv.ApplyPaymentStatus()
	return inv, nil
}

func (s *invoiceService) findByCorrelation(ctx context.Context, ownerID uuid.UUID, corr *uuid.UUID) (*model.Invoice, error) {
	if corr == nil {
		return nil, nil
	}
	existing, err := s.invoiceRepo.FindByCorrelation(ctx, ownerID, *corr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return existing, nil
}

// decrementStock takes each sold quantity off the locked product row. Stock never
// goes below zero; the part that could not be covered is kept on the line.
func (s *invoiceService) decrementStock(txCtx context.Context, inv *model.Invoice) error {
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.ProductID == nil {
			continue
		}
		product, err := s.productRepo.FindByIDForUpdate(txCtx, inv.OwnerID, *item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warn().Str("product_id", item.ProductID.String()).Str("invoice_number", inv.InvoiceNumber).
					Msg("product not found, stock left unchanged")
				// nothing was taken off a shelf, so a later delete gives nothing back
				item.StockShortfall = item.Quantity
				continue
			}
			return fmt.Errorf("failed to lock product %s: %w", item.ProductID, err)
		}

		remaining := product.Stock - item.Quantity
		if remaining < 0 {
			item.StockShortfall = -remaining
			remaining = 0
			s.log.Warn().Str("product_id", product.ID.String()).Int("shortfall", item.StockShortfall).
				Msg("sale exceeds available stock")
		}
		if err := s.productRepo.SetStock(txCtx, inv.OwnerID, product.ID, remaining); err != nil {
			return fmt.Errorf("failed to update stock of %s: %w", product.Name, err)
		}
	}
	return nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, actor Actor, req CreateInvoiceRequest) (InvoiceResponse, bool, error) {
	inv, err := s.buildInvoice(actor, req)
	if err != nil {
		return InvoiceResponse{}, false, err
	}

	existing, err := s.findByCorrelation(ctx, actor.OwnerID, inv.CorrelationID)
	if err != nil {
		return InvoiceResponse{}, false, err
	}
	if existing != nil {
		s.log.Info().Str("correlation_id", inv.CorrelationID.String()).Str("invoice_id", existing.ID.String()).
			Msg("duplicate submission, returning recorded invoice")
		return toInvoiceResponse(existing), false, nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.decrementStock(txCtx, inv); err != nil {
			return err
		}
		inv.ApplyPaymentStatus()
		if err := s.invoiceRepo.Create(txCtx, inv); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateInvoice, inv.ID.String(), inv.InvoiceNumber,
			map[string]interface{}{
				"customer_name": inv.CustomerName,
				"total_amount":  inv.TotalAmount,
				"amount_paid":   inv.AmountPaid,
				"status":        inv.Status,
				"items":         len(inv.Items),
			})
	})
	if err != nil {
		// a concurrent submission with the same correlation id won the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if winner, findErr := s.findByCorrelation(ctx, actor.OwnerID, inv.CorrelationID); findErr == nil && winner != nil {
				return toInvoiceResponse(winner), false, nil
			}
		}
		return InvoiceResponse{}, false, err
	}

	res := toInvoiceResponse(inv)
	s.events.Publish(actor.OwnerID.String(), EventInvoiceCreated, res)
	return res, true, nil
}

func (s *invoiceService) parseID(id string) (uuid.UUID, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid invoice id", ErrValidation)
	}
	return invoiceID, nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("database error: %w", err)
}

func (s *invoiceService) GetInvoice(ctx context.Context, actor Actor, id string) (InvoiceResponse, error) {
	invoiceID, err := s.parseID(id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	inv, err := s.invoiceRepo.FindByID(ctx, actor.OwnerID, invoiceID)
	if err != nil {
		return InvoiceResponse{}, notFoundOr(err, "invoice")
	}
	return toInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, actor Actor, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Status != "" && filter.Status != model.StatusPaid && filter.Status != model.StatusDebt {
		return nil, 0, fmt.Errorf("%w: status must be PAID or DEBT", ErrValidation)
	}

	invoices, total, err := s.invoiceRepo.List(ctx, actor.OwnerID, repository.InvoiceFilter{
		Status:   filter.Status,
		Customer: strings.TrimSpace(filter.Customer),
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		result = append(result, toInvoiceResponse(&invoices[i]))
	}
	return result, total, nil
}

func (s *invoiceService) ListCustomers(ctx context.Context, actor Actor) ([]model.Customer, error) {
	customers, err := s.invoiceRepo.Customers(ctx, actor.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customers: %w", err)
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	return customers, nil
}

// SettleDebt adds a payment to an invoice. Payments above the remaining debt are rejected
// and leave the invoice untouched.
func (s *invoiceService) SettleDebt(ctx context.Context, actor Actor, id string, req SettleDebtRequest) (InvoiceResponse, error) {
	invoiceID, err := s.parseID(id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	if !req.Amount.IsPositive() {
		return InvoiceResponse{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	var inv *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.invoiceRepo.FindByIDForUpdate(txCtx, actor.OwnerID, invoiceID)
		if err != nil {
			return notFoundOr(err, "invoice")
		}

		remaining := found.RemainingDebt()
		if req.Amount.GreaterThan(remaining) {
			return fmt.Errorf("%w: remaining debt is %s, got %s", ErrOverpayment, remaining, req.Amount)
		}

		found.AmountPaid = found.AmountPaid.Add(req.Amount)
		found.ApplyPaymentStatus()
		if err := s.invoiceRepo.UpdatePayment(txCtx, found); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		inv = found
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionSettleDebt, found.ID.String(), found.InvoiceNumber,
			map[string]interface{}{
				"amount":      req.Amount,
				"amount_paid": found.AmountPaid,
				"status":      found.Status,
			})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	res := toInvoiceResponse(inv)
	s.events.Publish(actor.OwnerID.String(), EventInvoicePaid, res)
	return res, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, actor Actor, id string, req DeleteInvoiceRequest) error {
	if req.Password == "" {
		return fmt.Errorf("%w: password is required to cancel a sale", ErrValidation)
	}
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	invoiceID, err := s.parseID(id)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return notFoundOr(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return ErrInvalidPassword
	}

	var number string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		inv, err := s.invoiceRepo.FindByIDForUpdate(txCtx, actor.OwnerID, invoiceID)
		if err != nil {
			return notFoundOr(err, "invoice")
		}
		number = inv.InvoiceNumber

		// give back what the sale actually took off the shelf
		for _, item := range inv.Items {
			if item.ProductID == nil {
				continue
			}
			restored := item.Quantity - item.StockShortfall
			if restored <= 0 {
				continue
			}
			if err := s.productRepo.AdjustStock(txCtx, actor.OwnerID, *item.ProductID, restored); err != nil {
				return fmt.Errorf("failed to restore stock: %w", err)
			}
		}

		if err := s.invoiceRepo.Delete(txCtx, actor.OwnerID, inv.ID); err != nil {
			return notFoundOr(err, "invoice")
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteInvoice, inv.ID.String(), inv.InvoiceNumber,
			map[string]interface{}{
				"customer_name": inv.CustomerName,
				"total_amount":  inv.TotalAmount,
				"amount_paid":   inv.AmountPaid,
			})
	})
	if err != nil {
		return err
	}

	s.events.Publish(actor.OwnerID.String(), EventInvoiceDeleted, map[string]string{
		"id":             invoiceID.String(),
		"invoice_number": number,
	})
	return nil
}

func (s *invoiceService) RenderReceipt(ctx context.Context, actor Actor, id string) ([]byte, string, error) {
	invoiceID, err := s.parseID(id)
	if err != nil {
		return nil, "", err
	}
	inv, err := s.invoiceRepo.FindByID(ctx, actor.OwnerID, invoiceID)
	if err != nil {
		return nil, "", notFoundOr(err, "invoice")
	}
	shop, err := s.userRepo.GetByID(ctx, actor.OwnerID)
	if err != nil {
		return nil, "", notFoundOr(err, "shop")
	}

	pdf, err := receipt.Render(receipt.FromInvoice(shop, inv))
	if err != nil {
		return nil, "", fmt.Errorf("failed to render receipt: %w", err)
	}
	return pdf, fmt.Sprintf("receipt-%s.pdf", inv.InvoiceNumber), nil
}
