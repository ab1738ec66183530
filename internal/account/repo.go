package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

func (r *Repo) Create(ctx context.Context, a *Account) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	err := r.db.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Account
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Account, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var a Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) Save(ctx context.Context, a *Account) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	err := r.db.WithContext(ctx).Save(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

// sortColumns 排序字段白名单：外部传入的字段名只允许映射到这些列。
var sortColumns = map[string]string{
	"id":           "id",
	"email":        "email",
	"role":         "role",
	"is_active":    "is_active",
	"first_name":   "first_name",
	"last_name":    "last_name",
	"phone_number": "phone_number",
	"dealer_name":  "dealer_name",
	"gst_no":       "gst_no",
	"pan_card_no":  "pan_card_no",
	"created_at":   "created_at",
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Account, int64, error) {
	if r == nil || r.db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&Account{})
	if f.Role != RoleNone {
		q = q.Where("role = ?", f.Role)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	// 搜索范围由角色决定；不限角色时不做搜索过滤
	if query := strings.TrimSpace(f.Query); query != "" {
		if cols := SearchColumns(f.Role); len(cols) > 0 {
			pattern := "%" + strings.ToLower(query) + "%"
			var conds []string
			var args []interface{}
			for _, col := range cols {
				conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE ?", col))
				args = append(args, pattern)
			}
			q = q.Where(strings.Join(conds, " OR "), args...)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	for _, col := range orderColumns(f.OrderBy) {
		if f.OrderDesc {
			col += " desc"
		}
		q = q.Order(col)
	}

	var accounts []Account
	if err := q.Offset(offset).Limit(limit).Find(&accounts).Error; err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// orderColumns 把逗号分隔的排序串过白名单，全部无效时退回按 id。
func orderColumns(orderBy string) []string {
	var out []string
	for _, field := range strings.Split(orderBy, ",") {
		if col, ok := sortColumns[strings.TrimSpace(field)]; ok {
			out = append(out, col)
		}
	}
	if len(out) == 0 {
		out = []string{"id"}
	}
	return out
}

func (r *Repo) Totals(ctx context.Context) (*Totals, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	type row struct {
		Role     Role
		IsActive bool
		N        int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&Account{}).
		Select("role, is_active, COUNT(*) AS n").
		Where("role IN ?", []Role{RoleDealer, RoleCustomer}).
		Group("role, is_active").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	t := &Totals{}
	for _, rw := range rows {
		var rt *RoleTotals
		switch rw.Role {
		case RoleDealer:
			rt = &t.Dealers
		case RoleCustomer:
			rt = &t.Customers
		default:
			continue
		}
		rt.Total += rw.N
		if rw.IsActive {
			rt.Active += rw.N
		} else {
			rt.Inactive += rw.N
		}
	}
	return t, nil
}
