package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionCreateProduct = "CREATE_PRODUCT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"
	ActionCreateInvoice = "CREATE_INVOICE"
	ActionSettleDebt    = "SETTLE_DEBT"
	ActionDeleteInvoice = "DELETE_INVOICE"
	ActionEmailReceipt  = "EMAIL_RECEIPT"
	ActionCreateExpense = "CREATE_EXPENSE"
	ActionDeleteExpense = "DELETE_EXPENSE"
	ActionCreateUser    = "CREATE_EMPLOYEE"
	ActionDeleteUser    = "DELETE_EMPLOYEE"
)

// AuditLog tracks Who, What, and When for critical shop changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
