package models

import "time"

// BaseModel replaces gorm.Model for tighter control over column defaults.
type BaseModel struct {
	ID        uint       `gorm:"primarykey"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	DeletedAt *time.Time `gorm:"index"`
}

// Settlement is one committed mint or burn. Monetary columns hold decimal
// strings of the engine's 256-bit fixed-point values; numeric database types
// cannot represent them losslessly.
type Settlement struct {
	BaseModel
	ReceiptID      string    `gorm:"unique;not null;type:varchar(36)"`
	Op             string    `gorm:"not null;type:varchar(8)"`
	Account        string    `gorm:"index;not null;type:varchar(128)"`
	Amount         string    `gorm:"not null;type:varchar(80)"`
	Cost           string    `gorm:"type:varchar(80)"`
	Refund         string    `gorm:"type:varchar(80)"`
	ExcessRefunded string    `gorm:"type:varchar(80)"`
	SupplyAfter    string    `gorm:"not null;type:varchar(80)"`
	SettledAt      time.Time `gorm:"index;not null"`
}
