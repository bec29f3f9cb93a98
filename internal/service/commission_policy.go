package service

import "github.com/shopspring/decimal"

// 各层级基础佣金比例（百分比）。
// 注意：二级比例市场侧文案写的是 3%，线上结算自上线起一直按 2% 执行，
// 以此处常量为准；调整前需要产品侧确认。
var tierBasePercent = map[int]decimal.Decimal{
	1: decimal.NewFromInt(13),
	2: decimal.NewFromInt(2),
	3: decimal.NewFromInt(1),
	4: decimal.NewFromInt(1),
}

var oneHundred = decimal.NewFromInt(100)

// BasePercentForLevel 返回层级基础比例（百分比），未知层级为 0
func BasePercentForLevel(level int) decimal.Decimal {
	percent, ok := tierBasePercent[level]
	if !ok {
		return decimal.Zero
	}
	return percent
}

// ComputeCommission 计算单笔佣金：订单金额 × 层级比例/100 × 生效倍率。
// 不在此层做舍入；0 或负数订单金额按算术结果原样返回，不视为错误。
func ComputeCommission(level int, orderTotal, effectiveRate decimal.Decimal) decimal.Decimal {
	return orderTotal.Mul(BasePercentForLevel(level)).Div(oneHundred).Mul(effectiveRate)
}
