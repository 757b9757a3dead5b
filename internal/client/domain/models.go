package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a customer of the business, billed through invoices.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID   snowflake.ID `gorm:"not null;index" json:"owner_id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `json:"email,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	Address   string       `json:"address,omitempty"`
	KvKNumber string       `gorm:"column:kvk_number" json:"kvk_number,omitempty"`
	BTWNumber string       `gorm:"column:btw_number" json:"btw_number,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
