package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is one income or expense row. Date holds a calendar day at UTC
// midnight; the timestamps are stamped by the service, not by gorm.
type Expense struct {
	ID          int64           `gorm:"primaryKey"`
	UserID      int64           `gorm:"column:user_id;not null;index:idx_expenses_user_date,priority:1"`
	CategoryID  int64           `gorm:"column:category_id;not null;index"`
	Title       string          `gorm:"column:title;size:100;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Description *string         `gorm:"column:description;size:500"`
	Date        time.Time       `gorm:"column:date;type:date;not null;index:idx_expenses_user_date,priority:2"`
	Type        string          `gorm:"column:type;size:10;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Expense) TableName() string {
	return "expenses"
}
