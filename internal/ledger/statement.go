package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const statementRule = "_______"

// RenderStatement 对账单排版，UI 按行解析，格式不要随意调整
func RenderStatement(st AccountState, history []Entry, net decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("GENERATE ACCOUNT STATEMENT\n")
	b.WriteString(statementRule + "\n\n")
	fmt.Fprintf(&b, "Account: %s (%s)\n", st.Owner.Name, st.Policy.Kind)
	fmt.Fprintf(&b, "Current Balance: $%s\n\n", st.Balance.StringFixed(2))

	b.WriteString("Transactions:\n")
	b.WriteString(statementRule + "\n")
	if len(history) == 0 {
		b.WriteString("No transactions found.\n")
	}
	for _, e := range history {
		sign := "-"
		if e.Type.Credit() {
			sign = "+"
		}
		fmt.Fprintf(&b, "%s | %-10s | %s$%s | $%s\n",
			e.ID, e.Type, sign, e.Amount.StringFixed(2), e.BalanceAfter.StringFixed(2))
	}
	b.WriteString(statementRule + "\n")

	// 净变动为负时只打印绝对值，不带符号，与 UI 解析保持一致
	sign := ""
	if !net.IsNegative() {
		sign = "+"
	}
	fmt.Fprintf(&b, "Net Change: %s$%s\n", sign, net.Abs().StringFixed(2))
	return b.String()
}
