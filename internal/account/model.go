package account

import (
	"strings"
	"time"
)

// Role 账号角色，注册时确定，之后不变。
type Role string

const (
	RoleDealer   Role = "dealer"
	RoleCustomer Role = "customer"
	RoleNone     Role = ""
)

// ParseRole 解析角色字符串；空串表示不限角色。
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(s))) {
	case RoleDealer:
		return RoleDealer, true
	case RoleCustomer:
		return RoleCustomer, true
	case RoleNone:
		return RoleNone, true
	default:
		return RoleNone, false
	}
}

// DealerProfile 经销商专属资料。
type DealerProfile struct {
	DealerName string `json:"dealer_name"`
	GSTNo      string `json:"gst_no"`
}

// CustomerProfile 普通客户专属资料。
type CustomerProfile struct {
	PANCardNo string `json:"pan_card_no"`
}

// Account 是 accounts 表的 GORM 模型。
// 存储上仍是一张平表（角色专属字段对"错误"的角色留空），
// 但对外通过 Dealer()/Customer() 提供按角色收窄的视图，
// 避免调用方读到对当前角色没有意义的字段。
type Account struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
	Role         Role   `gorm:"type:varchar(10);index" json:"role"`

	IsActive    bool `gorm:"not null;default:true" json:"is_active"`
	IsStaff     bool `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"not null;default:false" json:"is_superuser"`

	FirstName   string `gorm:"size:255" json:"first_name,omitempty"`
	LastName    string `gorm:"size:255" json:"last_name,omitempty"`
	PhoneNumber string `gorm:"size:15" json:"phone_number,omitempty"`

	// 角色专属字段
	DealerName string `gorm:"size:255" json:"dealer_name,omitempty"`
	GSTNo      string `gorm:"size:15" json:"gst_no,omitempty"`
	PANCardNo  string `gorm:"size:10" json:"pan_card_no,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Dealer 仅当角色是 dealer 时返回经销商资料。
func (a *Account) Dealer() *DealerProfile {
	if a == nil || a.Role != RoleDealer {
		return nil
	}
	return &DealerProfile{DealerName: a.DealerName, GSTNo: a.GSTNo}
}

// Customer 仅当角色是 customer 时返回客户资料。
func (a *Account) Customer() *CustomerProfile {
	if a == nil || a.Role != RoleCustomer {
		return nil
	}
	return &CustomerProfile{PANCardNo: a.PANCardNo}
}

// NormalizeEmail 邮箱统一小写后存储和比较，大小写不同视为同一身份。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SearchColumns 按角色返回模糊搜索覆盖的列。
// dealer 搜 邮箱/电话/经销商名/GST 号；customer 搜 邮箱/电话/姓名/PAN 号。
// 不限角色时本操作不做搜索过滤。
func SearchColumns(role Role) []string {
	switch role {
	case RoleDealer:
		return []string{"email", "phone_number", "dealer_name", "gst_no"}
	case RoleCustomer:
		return []string{"email", "phone_number", "first_name", "last_name", "pan_card_no"}
	default:
		return nil
	}
}

// MatchesQuery 与 SearchColumns 一致的内存版判断（大小写不敏感子串）。
func (a *Account) MatchesQuery(role Role, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, col := range SearchColumns(role) {
		if strings.Contains(strings.ToLower(a.columnValue(col)), query) {
			return true
		}
	}
	return false
}

func (a *Account) columnValue(col string) string {
	switch col {
	case "email":
		return a.Email
	case "phone_number":
		return a.PhoneNumber
	case "dealer_name":
		return a.DealerName
	case "gst_no":
		return a.GSTNo
	case "first_name":
		return a.FirstName
	case "last_name":
		return a.LastName
	case "pan_card_no":
		return a.PANCardNo
	default:
		return ""
	}
}
