// Package snapshot 定义回收站归档记录及其自包含载荷。
//
// 载荷是扁平 JSON，不引用任何在线行：原记录被彻底清除后，仅凭归档即可完整展示或重建。
// 解码是宽松的：缺失字段取零值/空串，金额既可是 JSON 数字也可是字符串，
// 因此旧版本写入的归档在字段增减后仍可读取。
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"recordbin/domain/record"
	"recordbin/errors"
)

// Archive 一条归档记录，对应 record_archives 表的一行
type Archive struct {
	ID         int64
	Family     record.Family
	OriginalID *int64
	OwnerID    *int64
	// Label/Detail 供回收站搜索与列表展示
	Label  string
	Detail string
	// Payload 序列化后的家族载荷
	Payload []byte
	// CreatedAt 源记录的创建时间
	CreatedAt time.Time
	// DeletedAt 归档时间
	DeletedAt time.Time
}

// Meta 由载荷派生的归档元数据
type Meta struct {
	Label  string
	Detail string
}

// Header 各家族载荷的公共部分
type Header struct {
	OriginalID *int64 `json:"original_id,omitempty"`
	OwnerID    *int64 `json:"owner_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// BusinessProfile 商户资料载荷
type BusinessProfile struct {
	Header
	BusinessName string `json:"business_name"`
	LogoName     string `json:"logo_name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// Client 客户载荷
type Client struct {
	Header
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

// Invoice 发票载荷，Items 保存明细行的全部内容
type Invoice struct {
	Header
	ClientID *int64 `json:"client_id,omitempty"`

	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientPhone   string `json:"client_phone"`
	ClientAddress string `json:"client_address"`

	BusinessName     string `json:"business_name"`
	BusinessEmail    string `json:"business_email"`
	BusinessPhone    string `json:"business_phone"`
	BusinessAddress  string `json:"business_address"`
	BusinessLogoName string `json:"business_logo_name"`

	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	Status        string `json:"status"`

	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	Notes          string `json:"notes"`
	PaymentTerms   string `json:"payment_terms"`
	Currency       string `json:"currency"`
	TemplateChoice string `json:"template_choice"`

	Items []LineItem `json:"items"`
}

// LineItem 发票明细行载荷
type LineItem struct {
	Description string          `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
	LineTotal   decimal.Decimal `json:"line_total" validate:"gte=0"`
}

// Encode 序列化载荷
func Encode[S any](payload S) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "encode snapshot payload")
	}
	return b, nil
}

// Decode 反序列化载荷，JSON 格式错误返回 VALIDATION_ERROR
func Decode[S any](data []byte) (S, error) {
	var payload S
	if len(data) == 0 {
		return payload, errors.NewValidationError("snapshot payload is empty")
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		var zero S
		return zero, errors.WrapError(err, errors.ErrCodeValidation, "malformed snapshot payload")
	}
	return payload, nil
}
