package vehicle

import (
	"time"
)

// Vehicle 是 vehicles 表的 GORM 模型。
// 三档租金互相独立，均可为空；OwnerID 可为空（允许无主车辆）。
type Vehicle struct {
	ID      string  `gorm:"primaryKey;size:36" json:"id"`
	OwnerID *string `gorm:"index;size:36" json:"owner_id,omitempty"`

	Category     string   `gorm:"size:50" json:"category"`
	VehicleType  string   `gorm:"size:50" json:"type_of_vehicle"`
	Capacity     *int     `json:"capacity,omitempty"`
	RentPerHour  *float64 `gorm:"type:decimal(10,2)" json:"rent_per_hour,omitempty"`
	RentPerWeek  *float64 `gorm:"type:decimal(10,2)" json:"rent_per_week,omitempty"`
	RentPerMonth *float64 `gorm:"type:decimal(10,2)" json:"rent_per_month,omitempty"`
	Description  string   `gorm:"type:text" json:"description"`
	Location     string   `gorm:"size:255" json:"location"`

	Images []VehicleImage `gorm:"foreignKey:VehicleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"images"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// VehicleImage 车辆图片，Image 存的是图片存储里的相对引用。
type VehicleImage struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	VehicleID string `gorm:"index;size:36;not null" json:"vehicle_id"`
	Image     string `gorm:"size:255" json:"image"`
}
