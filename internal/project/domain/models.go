package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Project groups work for a client; invoice line items may reference one.
type Project struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID `gorm:"not null;index" json:"owner_id"`
	ClientID      snowflake.ID `gorm:"not null;index" json:"client_id"`
	ProjectNumber string       `gorm:"column:project_number" json:"project_number,omitempty"`
	Title         string       `gorm:"not null" json:"title"`
	Description   string       `json:"description,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
