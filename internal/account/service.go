package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Store 账号持久化接口。
type Store interface {
	Create(ctx context.Context, a *Account) error // 唯一索引冲突须返回 ErrDuplicateEmail
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Save(ctx context.Context, a *Account) error
	List(ctx context.Context, f ListFilter) ([]Account, int64, error)
	Totals(ctx context.Context) (*Totals, error)
}

// Service 封装账号域的核心用例。
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput 注册入参；Dealer / Customer 按角色二选一。
type CreateInput struct {
	Email    string
	Password string
	Role     Role

	FirstName   string
	LastName    string
	PhoneNumber string

	Dealer   *DealerProfile
	Customer *CustomerProfile

	// Superuser 仅用于运维预置账号（同时置 staff + superuser）。
	Superuser bool
}

// Create 注册账号：邮箱小写归一后检查唯一性，密码哈希后入库。
// 默认 active=true / staff=false / superuser=false。
func (s *Service) Create(ctx context.Context, in CreateInput) (*Account, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	a := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		IsStaff:      in.Superuser,
		IsSuperuser:  in.Superuser,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
	}
	if in.Role == RoleDealer && in.Dealer != nil {
		a.DealerName = strings.TrimSpace(in.Dealer.DealerName)
		a.GSTNo = strings.TrimSpace(in.Dealer.GSTNo)
	}
	if in.Role == RoleCustomer && in.Customer != nil {
		a.PANCardNo = strings.TrimSpace(in.Customer.PANCardNo)
	}

	// 唯一索引兜底：并发注册同一邮箱时靠数据库挡住
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Authenticate 按归一化邮箱查找并比对密码。
// 查无此人、密码不对、账号已停用都只是 ok=false，不是错误路径。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, bool, error) {
	if s == nil || s.store == nil {
		return nil, false, fmt.Errorf("service not initialized")
	}
	a, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !a.IsActive || !VerifyPassword(password, a.PasswordHash) {
		return nil, false, nil
	}
	return a, true, nil
}

// ChangePassword 校验旧密码后原地换哈希。
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("service not initialized")
	}
	a, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if !VerifyPassword(oldPassword, a.PasswordHash) {
		return ErrInvalidOldPassword
	}
	if newPassword == oldPassword {
		return ErrPasswordUnchanged
	}
	if len(newPassword) < MinPasswordLen {
		return ErrPasswordTooShort
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return s.store.Save(ctx, a)
}

// ProfileUpdate 部分更新：nil 字段不动；Password 出现则重新哈希。
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DealerName  *string
	GSTNo       *string
	PANCardNo   *string
	Password    *string
}

// UpdateProfile 只覆盖出现的字段，不做差异比较。
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*Account, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	a, err := s.store.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		a.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		a.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		a.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.DealerName != nil {
		a.DealerName = strings.TrimSpace(*in.DealerName)
	}
	if in.GSTNo != nil {
		a.GSTNo = strings.TrimSpace(*in.GSTNo)
	}
	if in.PANCardNo != nil {
		a.PANCardNo = strings.TrimSpace(*in.PANCardNo)
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = hash
	}

	if err := s.store.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Deactivate 软删除：只置 is_active=false，不删记录，也不动名下车辆和日程。
func (s *Service) Deactivate(ctx context.Context, id string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("service not initialized")
	}
	a, err := s.store.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	a.IsActive = false
	return s.store.Save(ctx, a)
}

func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.FindByID(ctx, strings.TrimSpace(id))
}

// ListFilter 角色/启用状态过滤 + 角色相关搜索 + 多字段排序 + 分页。
type ListFilter struct {
	Role      Role
	Query     string
	IsActive  *bool
	OrderBy   string // 逗号分隔的字段名
	OrderDesc bool
	Offset    int
	Limit     int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Account, int64, error) {
	if s == nil || s.store == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.store.List(ctx, f)
}

// RoleTotals 单个角色的账号数量。
type RoleTotals struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// Totals 两个角色各自的 总数/启用/停用，调用时实时统计，不做缓存。
type Totals struct {
	Dealers   RoleTotals `json:"dealers"`
	Customers RoleTotals `json:"customers"`
}

func (s *Service) Totals(ctx context.Context) (*Totals, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.Totals(ctx)
}
