package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role constants
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// User is a shop account. Admins own a shop; employees are attached to one through ParentID.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ShopName      string         `gorm:"type:varchar(255);not null" json:"shop_name"`
	Email         string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone         string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Password      string         `gorm:"type:varchar(255);not null" json:"-"`
	Role          string         `gorm:"type:varchar(20);not null;default:'admin'" json:"role"` // admin, employee
	ParentID      *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id"`
	Address       string         `gorm:"type:text" json:"address"`
	FooterMessage string         `gorm:"type:text" json:"footer_message"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// OwnerID returns the shop that owns this user's data
func (u *User) OwnerID() uuid.UUID {
	if u.ParentID != nil {
		return *u.ParentID
	}
	return u.ID
}
