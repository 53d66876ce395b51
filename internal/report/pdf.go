// Package report builds the aggregate figures behind the dashboard and reports,
// and renders printable documents for service orders.
package report

import (
	"fmt"
	"io"
	"time"

	"oficina/internal/domain"

	"github.com/go-pdf/fpdf"
)

// OrderPDF writes a one-document summary of order: header, customer, vehicle,
// line items and total. Client, Vehicle and Items are expected to be loaded.
func OrderPDF(w io.Writer, shop string, order *domain.ServiceOrder) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // UTF-8 to cp1252 for the core fonts
	pdf.SetTitle(fmt.Sprintf("OS %d", order.ID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(shop), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Ordem de serviço nº %d", order.ID)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Status: "+order.Status), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Abertura: "+order.CreatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if order.ScheduledAt != nil {
		pdf.CellFormat(0, 7, tr("Data agendada: "+order.ScheduledAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	if c := order.Client; c != nil {
		section(pdf, tr("Cliente"))
		line(pdf, tr(c.Name))
		if c.TaxID != nil {
			line(pdf, tr("CPF/CNPJ: "+*c.TaxID))
		}
		if c.Phone != "" {
			line(pdf, tr("Telefone: "+c.Phone))
		}
	}
	if v := order.Vehicle; v != nil {
		section(pdf, tr("Veículo"))
		line(pdf, tr(fmt.Sprintf("%s %s %d  Placa %s", v.Make, v.Model, v.Year, v.Plate)))
	}
	if order.Problem != "" {
		section(pdf, tr("Problema relatado"))
		pdf.MultiCell(0, 6, tr(order.Problem), "", "L", false)
	}
	if order.Diagnosis != "" {
		section(pdf, tr("Diagnóstico"))
		pdf.MultiCell(0, 6, tr(order.Diagnosis), "", "L", false)
	}

	section(pdf, tr("Itens"))
	widths := []float64{95, 25, 35, 35}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Descrição", "Qtd", "Valor unit.", "Subtotal"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, it := range order.Items {
		pdf.CellFormat(widths[0], 7, tr(it.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, it.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, Money(it.UnitPrice.StringFixed(2)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, Money(it.Subtotal.StringFixed(2)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, Money(order.Total.StringFixed(2)), "1", 1, "R", false, 0, "")

	pdf.SetY(-25)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "Gerado em "+time.Now().Format("02/01/2006 15:04"), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report: render order %d: %w", order.ID, err)
	}
	return nil
}

// Money formats a fixed two-place decimal string as Brazilian currency, e.g. "1234.50" to "R$ 1.234,50"
func Money(fixed string) string {
	neg := len(fixed) > 0 && fixed[0] == '-'
	if neg {
		fixed = fixed[1:]
	}
	intPart, frac := fixed, "00"
	for i := len(fixed) - 1; i >= 0; i-- {
		if fixed[i] == '.' {
			intPart, frac = fixed[:i], fixed[i+1:]
			break
		}
	}
	var out []byte
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, intPart[i])
	}
	s := "R$ " + string(out) + "," + frac
	if neg {
		s = "-" + s
	}
	return s
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func line(pdf *fpdf.Fpdf, text string) {
	pdf.CellFormat(0, 6, text, "", 1, "L", false, 0, "")
}
