package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store 日程持久化接口。
// Transact 内的回调拿到的是绑定在同一事务上的 Store，
// 冲突检查和写入必须发生在同一个事务里。
type Store interface {
	Transact(ctx context.Context, fn func(tx Store) error) error
	Create(ctx context.Context, s *Schedule) error
	Save(ctx context.Context, s *Schedule) error
	FindByID(ctx context.Context, id string) (*Schedule, error)
	CountOverlapping(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) (int64, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]Schedule, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Schedule, error)
}

// Engine 封装日程域的核心用例：区间校验 + 重叠检查 + 写入。
// 校验走在每条写路径上（创建、更新都一样），不是只在创建时做一次。
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ValidateRange 校验闭区间合法：start <= end。
func ValidateRange(start, end time.Time) error {
	if NormalizeDate(start).After(NormalizeDate(end)) {
		return ErrInvertedRange
	}
	return nil
}

// Overlaps 闭区间重叠判断：哪怕只共享一天也算重叠。
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !NormalizeDate(aStart).After(NormalizeDate(bEnd)) &&
		!NormalizeDate(aEnd).Before(NormalizeDate(bStart))
}

// CreateInput 创建日程的入参。
type CreateInput struct {
	VehicleID string
	AccountID string
	StartDate time.Time
	EndDate   time.Time
}

// Create 创建日程：先区间校验，再在同一个事务内做重叠检查 + 插入。
// 任一步失败都不落库。
func (e *Engine) Create(ctx context.Context, in CreateInput) (*Schedule, error) {
	if e == nil || e.store == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	vehicleID := strings.TrimSpace(in.VehicleID)
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle_id required")
	}
	if err := ValidateRange(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	s := &Schedule{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		StartDate: NormalizeDate(in.StartDate),
		EndDate:   NormalizeDate(in.EndDate),
	}
	if accountID := strings.TrimSpace(in.AccountID); accountID != "" {
		s.AccountID = &accountID
	}

	err := e.store.Transact(ctx, func(tx Store) error {
		n, err := tx.CountOverlapping(ctx, s.VehicleID, s.StartDate, s.EndDate, "")
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDateRangeConflict
		}
		return tx.Create(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update 更新日程的日期区间：同样的校验顺序，重叠检查排除自身，
// 原样保存一条记录不会和自己冲突。
func (e *Engine) Update(ctx context.Context, id string, start, end time.Time) (*Schedule, error) {
	if e == nil || e.store == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("id required")
	}
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	var updated *Schedule
	err := e.store.Transact(ctx, func(tx Store) error {
		s, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountOverlapping(ctx, s.VehicleID, NormalizeDate(start), NormalizeDate(end), s.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDateRangeConflict
		}
		s.StartDate = NormalizeDate(start)
		s.EndDate = NormalizeDate(end)
		if err := tx.Save(ctx, s); err != nil {
			return err
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get 按 ID 查询日程。
func (e *Engine) Get(ctx context.Context, id string) (*Schedule, error) {
	if e == nil || e.store == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	return e.store.FindByID(ctx, strings.TrimSpace(id))
}

// ListForVehicle 某辆车的全部日程。
func (e *Engine) ListForVehicle(ctx context.Context, vehicleID string) ([]Schedule, error) {
	if e == nil || e.store == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	return e.store.ListByVehicle(ctx, strings.TrimSpace(vehicleID))
}

// ListForOwner 某个车主名下全部车辆的日程（经销商的订单视图）。
func (e *Engine) ListForOwner(ctx context.Context, ownerID string) ([]Schedule, error) {
	if e == nil || e.store == nil {
		return nil, fmt.Errorf("engine not initialized")
	}
	return e.store.ListByOwner(ctx, strings.TrimSpace(ownerID))
}
