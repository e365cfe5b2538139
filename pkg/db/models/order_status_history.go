package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Nubiru/chamana-sub000/pkg/enums"
)

// OrderStatusHistory is the append-only trail of order lifecycle transitions.
// The append happens inside the same transaction as the status update itself,
// never through a database trigger, so the guarantee stays visible in code.
type OrderStatusHistory struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PreviousStatus *enums.OrderStatus `gorm:"column:previous_status;type:text"`
	NewStatus      enums.OrderStatus  `gorm:"column:new_status;type:text;not null"`
	ChangedBy      string             `gorm:"column:changed_by;not null"`
	Automatic      bool               `gorm:"column:automatic;not null;default:false"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
