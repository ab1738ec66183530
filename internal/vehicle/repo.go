package vehicle

import (
	"context"
	"errors"
	"fmt"

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

func (r *Repo) Transact(ctx context.Context, fn func(tx Store) error) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}

func (r *Repo) Create(ctx context.Context, v *Vehicle) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *Repo) CreateImage(ctx context.Context, img *VehicleImage) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *Repo) Save(ctx context.Context, v *Vehicle) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return r.db.WithContext(ctx).Omit("Images").Save(v).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	err := r.db.WithContext(ctx).Preload("Images").Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Delete 删除车辆；图片和日程由外键的 ON DELETE CASCADE 一并清理。
func (r *Repo) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Vehicle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List 全量或按车主过滤。
func (r *Repo) List(ctx context.Context, ownerID string) ([]Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	q := r.db.WithContext(ctx).Preload("Images").Model(&Vehicle{})
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var vehicles []Vehicle
	if err := q.Order("created_at desc").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}
