package vehicle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("vehicle not found")

// Store 车辆持久化接口。
type Store interface {
	Transact(ctx context.Context, fn func(tx Store) error) error
	Create(ctx context.Context, v *Vehicle) error
	CreateImage(ctx context.Context, img *VehicleImage) error
	Save(ctx context.Context, v *Vehicle) error
	FindByID(ctx context.Context, id string) (*Vehicle, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, ownerID string) ([]Vehicle, error)
}

// Service 封装车辆目录的用例。
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput 创建车辆的入参；ImageRefs 是已写入图片存储的引用列表。
type CreateInput struct {
	OwnerID      string
	Category     string
	VehicleType  string
	Capacity     *int
	RentPerHour  *float64
	RentPerWeek  *float64
	RentPerMonth *float64
	Description  string
	Location     string
	ImageRefs    []string
}

// Create 车辆和全部图片行在同一个事务里写入；
// 任何一张图片入库失败则整体回滚，不留下没有图片的半成品车辆。
func (s *Service) Create(ctx context.Context, in CreateInput) (*Vehicle, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	v := &Vehicle{
		ID:           uuid.NewString(),
		Category:     strings.TrimSpace(in.Category),
		VehicleType:  strings.TrimSpace(in.VehicleType),
		Capacity:     in.Capacity,
		RentPerHour:  in.RentPerHour,
		RentPerWeek:  in.RentPerWeek,
		RentPerMonth: in.RentPerMonth,
		Description:  in.Description,
		Location:     strings.TrimSpace(in.Location),
	}
	if ownerID := strings.TrimSpace(in.OwnerID); ownerID != "" {
		v.OwnerID = &ownerID
	}

	err := s.store.Transact(ctx, func(tx Store) error {
		if err := tx.Create(ctx, v); err != nil {
			return err
		}
		for _, ref := range in.ImageRefs {
			img := &VehicleImage{
				ID:        uuid.NewString(),
				VehicleID: v.ID,
				Image:     ref,
			}
			if err := tx.CreateImage(ctx, img); err != nil {
				return err
			}
			v.Images = append(v.Images, *img)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Vehicle, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.FindByID(ctx, strings.TrimSpace(id))
}

// UpdateInput 部分更新：nil 字段不动。
type UpdateInput struct {
	Category     *string
	VehicleType  *string
	Capacity     *int
	RentPerHour  *float64
	RentPerWeek  *float64
	RentPerMonth *float64
	Description  *string
	Location     *string
}

// Update 部分更新车辆字段。
// 注意：这一层不校验调用者是否车主，和线上行为保持一致（产品待定）。
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Vehicle, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, err := s.store.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	if in.Category != nil {
		v.Category = strings.TrimSpace(*in.Category)
	}
	if in.VehicleType != nil {
		v.VehicleType = strings.TrimSpace(*in.VehicleType)
	}
	if in.Capacity != nil {
		v.Capacity = in.Capacity
	}
	if in.RentPerHour != nil {
		v.RentPerHour = in.RentPerHour
	}
	if in.RentPerWeek != nil {
		v.RentPerWeek = in.RentPerWeek
	}
	if in.RentPerMonth != nil {
		v.RentPerMonth = in.RentPerMonth
	}
	if in.Description != nil {
		v.Description = *in.Description
	}
	if in.Location != nil {
		v.Location = strings.TrimSpace(*in.Location)
	}

	if err := s.store.Save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete 删除车辆，图片和日程级联删除。
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("service not initialized")
	}
	return s.store.Delete(ctx, strings.TrimSpace(id))
}

// List ownerID 为空时返回全部车辆。
func (s *Service) List(ctx context.Context, ownerID string) ([]Vehicle, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.List(ctx, strings.TrimSpace(ownerID))
}
