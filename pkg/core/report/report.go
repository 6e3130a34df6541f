// Package report renders a computed shipment as a Markdown document (and
// optionally HTML) for sharing outside the tool.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"custobrasil/pkg/core/landed"
)

// Markdown renders the per-item table and shipment summary.
func Markdown(title string, results []landed.ItemResult, sum landed.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Itens\n\n")
	b.WriteString("| NCM | Descrição | Qtde | FOB unit. (US$) | Valor aduaneiro (R$) | Impostos (R$) | Créditos (R$) | Custo final (R$) | Custo unit. (R$) |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.NCM, r.Description,
			brl(r.Quantity), brl(r.FOBUnitUSD),
			brl(r.CIFBRL), brl(r.TaxPaidBRL), brl(r.TaxCreditBRL),
			brl(r.DeliveredCostBRL), brl(r.UnitCostBRL))
	}

	b.WriteString("\n## Resumo do embarque\n\n")
	fmt.Fprintf(&b, "- FOB total: US$ %s (R$ %s)\n", brl(sum.FOBTotalUSD), brl(sum.FOBTotalBRL))
	fmt.Fprintf(&b, "- Valor aduaneiro total: R$ %s\n", brl(sum.VATotalBRL))
	fmt.Fprintf(&b, "- Impostos pagos: R$ %s\n", brl(sum.TaxPaidTotalBRL))
	fmt.Fprintf(&b, "- Créditos de impostos: R$ %s\n", brl(sum.TaxCreditTotalBRL))
	fmt.Fprintf(&b, "- Custo líquido de impostos: R$ %s\n", brl(sum.NetTaxTotalBRL))
	fmt.Fprintf(&b, "- Custo nacionalizado: R$ %s\n", brl(sum.CustomsClearedTotalBRL))
	fmt.Fprintf(&b, "- Custo total entregue: R$ %s\n", brl(sum.DeliveredTotalBRL))
	fmt.Fprintf(&b, "- Frete rodoviário total: R$ %s\n", brl(sum.TruckTotalBRL))
	fmt.Fprintf(&b, "- Custo unitário médio: R$ %s\n", brl(sum.AvgUnitCostBRL))
	fmt.Fprintf(&b, "- Fator FOB → Custo Brasil: %.2fx (R$ por US$ FOB)\n", sum.FOBToBrazilMultiplier)
	fmt.Fprintf(&b, "- Fator sobre FOB em R$: %.2fx\n", sum.FOBToBrazilFactor)

	return b.String()
}

// HTML converts the Markdown report to HTML.
func HTML(title string, results []landed.ItemResult, sum landed.Summary) (string, error) {
	md := Markdown(title, results, sum)
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("report: render HTML: %w", err)
	}
	return buf.String(), nil
}

// brl formats a number the Brazilian way: thousands separated by dots,
// decimal comma, two places.
func brl(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	parts := strings.SplitN(s, ".", 2)
	intPart, frac := parts[0], parts[1]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ".") + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
