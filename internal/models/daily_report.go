package models

import (
	"time"

	"gorm.io/datatypes"
)

// DailyReport is the delivery-ledger row for one report date. The aggregator
// upserts it (which resets send state); only the send step flips IsSent.
type DailyReport struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	ReportDate string `gorm:"type:varchar(10);uniqueIndex;not null"`

	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null"`

	TotalMessages    int `gorm:"default:0"`
	TotalBlockTrades int `gorm:"default:0"`

	BTCTradeCount  int     `gorm:"default:0"`
	BTCTotalVolume float64 `gorm:"default:0"`
	ETHTradeCount  int     `gorm:"default:0"`
	ETHTotalVolume float64 `gorm:"default:0"`

	BTCSpotPrice *float64
	ETHSpotPrice *float64

	Payload datatypes.JSON

	IsSent    bool       `gorm:"index;default:false"`
	SentAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (DailyReport) TableName() string {
	return "daily_reports"
}
