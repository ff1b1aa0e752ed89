// Package totals 计算发票汇总金额。
//
// 金额统一保留两位小数（与存储列精度一致），中间计算不做舍入。
package totals

import (
	"github.com/shopspring/decimal"

	"recordbin/domain/record"
)

// Places 金额小数位数
const Places = 2

var hundred = decimal.NewFromInt(100)

// Totals 发票汇总
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// LineTotal 明细行金额 = 数量 × 单价
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(Places)
}

// Recompute 根据明细行的 LineTotal 计算汇总：
//
//	subtotal = Σ line_total
//	tax      = subtotal × rate / 100
//	total    = subtotal + tax − discount
func Recompute(items []record.LineItem, taxRate, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal)
	}
	tax := subtotal.Mul(taxRate).Div(hundred)
	total := subtotal.Add(tax).Sub(discount)

	return Totals{
		Subtotal:  subtotal.Round(Places),
		TaxAmount: tax.Round(Places),
		Total:     total.Round(Places),
	}
}

// Apply 用 inv.Items 重新计算并写回发票汇总字段
func Apply(inv *record.Invoice) Totals {
	t := Recompute(inv.Items, inv.TaxRate, inv.DiscountAmount)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.TotalAmount = t.Total
	return t
}
