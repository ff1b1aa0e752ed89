// Package record 定义三类可回收的在线记录：商户资料、客户与发票（含明细行）。
//
// 在线记录只通过 deleted/deleted_at 标记软删除，物理删除只发生在彻底清除时。
package record

import (
	"fmt"
	"strings"
	"time"
)

// Family 记录族
type Family string

const (
	FamilyBusinessProfile Family = "business_profile"
	FamilyClient          Family = "client"
	FamilyInvoice         Family = "invoice"
)

// Families 全部记录族，顺序固定
var Families = []Family{FamilyBusinessProfile, FamilyClient, FamilyInvoice}

// ParseFamily 解析记录族名称，兼容 REST 路径中的复数短横线形式
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "business_profile", "business-profile", "business-profiles":
		return FamilyBusinessProfile, nil
	case "client", "clients":
		return FamilyClient, nil
	case "invoice", "invoices":
		return FamilyInvoice, nil
	default:
		return "", fmt.Errorf("unknown record family %q", s)
	}
}

// Path REST 路由中的族名
func (f Family) Path() string {
	switch f {
	case FamilyBusinessProfile:
		return "business-profiles"
	case FamilyClient:
		return "clients"
	case FamilyInvoice:
		return "invoices"
	default:
		return string(f)
	}
}

func (f Family) String() string { return string(f) }

// Base 所有在线记录共有的字段（用于嵌入）
type Base struct {
	ID        int64      `json:"id"`
	OwnerID   *int64     `json:"owner_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (b *Base) GetID() int64 { return b.ID }

func (b *Base) IsDeleted() bool { return b.Deleted }

// MarkDeleted 设置软删除标记
func (b *Base) MarkDeleted(at time.Time) {
	at = at.UTC()
	b.Deleted = true
	b.DeletedAt = &at
}

// ClearDeleted 清除软删除标记
func (b *Base) ClearDeleted() {
	b.Deleted = false
	b.DeletedAt = nil
}

// BusinessProfile 商户资料，LogoName 只保存引用名，不含图片内容
type BusinessProfile struct {
	Base
	BusinessName string `json:"business_name"`
	LogoName     string `json:"logo_name,omitempty"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// Client 客户，OwnerID 可能为空
type Client struct {
	Base
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Ptr 返回 v 的指针
func Ptr[T any](v T) *T { return &v }
