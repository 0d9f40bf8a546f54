package models

import "time"

type PaymentProof struct {
	ID         string      `gorm:"primarykey;type:varchar(32)"`
	OrderID    string      `gorm:"index;type:varchar(32);not null"`
	UserID     uint        `gorm:"index;not null"`
	FileURL    string      `gorm:"type:text;not null"`
	FileType   string      `gorm:"type:varchar(50)"`
	Note       string      `gorm:"type:text"`
	Status     ProofStatus `gorm:"type:varchar(20);index;not null"`
	ReviewedBy *uint
	ReviewedAt *time.Time
	CreatedAt  time.Time `gorm:"precision:6;index"`
}

func (p *PaymentProof) IsPending() bool {
	return p.Status == ProofStatusPending
}
