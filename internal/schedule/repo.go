package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FindOutRent/FindOutRent/internal/vehicle"
	"gorm.io/gorm"
)

// Repo 是 Store 的 GORM 实现。
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

var _ Store = (*Repo)(nil)

// Transact 在 SERIALIZABLE 事务里执行回调：
// 检查-再-写 必须是一个原子单元，否则两个并发请求都可能通过重叠检查。
// postgres 下还有 schedules_no_overlap 排他约束兜底（见 common/db）。
func (r *Repo) Transact(ctx context.Context, fn func(tx Store) error) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (r *Repo) Create(ctx context.Context, s *Schedule) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return translateConflict(err)
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, s *Schedule) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return translateConflict(err)
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Schedule, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s Schedule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountOverlapping 统计与 [start, end] 闭区间重叠的既有日程：
// existing.start_date <= end AND existing.end_date >= start。
// excludeID 非空时排除该条记录（更新场景下不和自己比）。
func (r *Repo) CountOverlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	q := r.db.WithContext(ctx).Model(&Schedule{}).
		Where("vehicle_id = ? AND start_date <= ? AND end_date >= ?", vehicleID, end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repo) ListByVehicle(ctx context.Context, vehicleID string) ([]Schedule, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Schedule
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]Schedule, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	sub := r.db.Model(&vehicle.Vehicle{}).Select("id").Where("owner_id = ?", ownerID)
	var out []Schedule
	err := r.db.WithContext(ctx).
		Where("vehicle_id IN (?)", sub).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// translateConflict 把数据库层的排他约束冲突翻译成领域错误。
// gorm 的 TranslateError 不覆盖 23P01（exclusion_violation），按约束名识别。
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "schedules_no_overlap") {
		return ErrDateRangeConflict
	}
	return err
}
