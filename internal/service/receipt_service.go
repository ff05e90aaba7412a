package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"shopdesk/internal/logger"
	"shopdesk/internal/model"
	"shopdesk/internal/repository"

	"github.com/rs/zerolog"
)

// ReceiptSender delivers a rendered receipt. receipt.Mailer implements it.
type ReceiptSender interface {
	SendReceipt(to, subject, body, filename string, pdf []byte) error
}

type EmailReceiptRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ReceiptService interface {
	EmailReceipt(ctx context.Context, actor Actor, invoiceID, to string) error
}

type receiptService struct {
	invoices  InvoiceService
	sender    ReceiptSender
	auditRepo repository.AuditRepository
	log       zerolog.Logger
}

// NewReceiptService mails receipts rendered by the invoice service. A nil sender disables it.
func NewReceiptService(invoices InvoiceService, sender ReceiptSender, auditRepo repository.AuditRepository) ReceiptService {
	return &receiptService{
		invoices:  invoices,
		sender:    sender,
		auditRepo: auditRepo,
		log:       logger.WithComponent("receipt"),
	}
}

func (s *receiptService) EmailReceipt(ctx context.Context, actor Actor, invoiceID, to string) error {
	to = strings.TrimSpace(to)
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if s.sender == nil {
		return fmt.Errorf("%w: SMTP is not configured", ErrMailUnavailable)
	}

	inv, err := s.invoices.GetInvoice(ctx, actor, invoiceID)
	if err != nil {
		return err
	}
	pdf, filename, err := s.invoices.RenderReceipt(ctx, actor, invoiceID)
	if err != nil {
		return err
	}

	subject := "Receipt " + inv.InvoiceNumber
	body := fmt.Sprintf("Hello %s,\n\nPlease find attached your receipt %s.\n", inv.CustomerName, inv.InvoiceNumber)
	if err := s.sender.SendReceipt(to, subject, body, filename, pdf); err != nil {
		return fmt.Errorf("%w: %v", ErrMailUnavailable, err)
	}

	// the mail is already sent, audit failures are only logged
	if err := recordAudit(ctx, s.auditRepo, actor, model.ActionEmailReceipt, inv.ID, inv.InvoiceNumber,
		map[string]interface{}{"to": to}); err != nil {
		s.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("receipt mailed but audit entry failed")
	}
	return nil
}
