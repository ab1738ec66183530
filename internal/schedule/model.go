package schedule

import (
	"time"

	"github.com/FindOutRent/FindOutRent/internal/vehicle"
)

// Schedule 是 schedules 表的 GORM 模型：
// 某辆车在闭区间 [StartDate, EndDate]（按自然日）内被预订。
// 没有取消/完成之类的状态字段，记录存在即占用。
type Schedule struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	VehicleID string `gorm:"index;size:36;not null" json:"vehicle_id"`
	// 预订人，可为空（车主代录入的历史订单没有账号）
	AccountID *string `gorm:"index;size:36" json:"account_id,omitempty"`

	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`

	Vehicle *vehicle.Vehicle `gorm:"foreignKey:VehicleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DateLayout 日程的日期格式（只有日期，不带时间）。
const DateLayout = "2006-01-02"

// NormalizeDate 把时间截断到 UTC 零点；重叠判断按自然日进行。
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 "2006-01-02" 形式的日期。
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
