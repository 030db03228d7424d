// Package pdf genera el comprobante de pago de la suscripción.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: TaskVault            │  N° Orden + Fecha            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: Organización + ID                                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DETALLE: Plan | Estado | Importe                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: ID de pago + QR + leyenda                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/taskvault-api/internal/application/subscription"
	"github.com/jhoicas/taskvault-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 79, Green: 70, Blue: 229}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var _ subscription.ReceiptRenderer = (*ReceiptGenerator)(nil)

// ── Generator ─────────────────────────────────────────────────────────────────

// ReceiptGenerator implementa subscription.ReceiptRenderer usando Maroto v2.
type ReceiptGenerator struct {
	issuer string
}

// NewReceiptGenerator construye el generador; issuer aparece como emisor del comprobante.
func NewReceiptGenerator(issuer string) *ReceiptGenerator {
	if issuer == "" {
		issuer = "TaskVault"
	}
	return &ReceiptGenerator{issuer: issuer}
}

// Render genera el PDF y devuelve sus bytes.
func (g *ReceiptGenerator) Render(org *entity.Organization, sub *entity.Subscription) ([]byte, error) {
	if org == nil || sub == nil {
		return nil, fmt.Errorf("pdf: organización y suscripción son obligatorias")
	}
	if !sub.IsActive() {
		return nil, fmt.Errorf("pdf: la suscripción %s no está activa", sub.ID)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de pago", true).
		WithAuthor(g.issuer, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(sub))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(org))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(detailRow(sub))

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(sub))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range footerRows(sub) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *ReceiptGenerator) headerRow(sub *entity.Subscription) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.issuer, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Comprobante de pago", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("ORDEN", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(sub.OrderID, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+activationDate(sub), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func customerRow(org *entity.Organization) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(org.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New("ID organización: "+org.ID, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Plan", 6, align.Left),
		h("Estado", 3, align.Center),
		h("Importe", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func detailRow(sub *entity.Subscription) core.Row {
	return row.New(7).Add(
		col.New(6).Add(text.New(planLabel(sub.PlanType), props.Text{Size: 8, Top: 1, Left: 1})),
		col.New(3).Add(text.New(string(sub.Status), props.Text{Size: 8, Align: align.Center, Top: 1})),
		col.New(3).Add(text.New(FormatAmount(sub), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
	)
}

func totalRow(sub *entity.Subscription) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL PAGADO:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New(FormatAmount(sub), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

func footerRows(sub *entity.Subscription) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN DEL PAGO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New("ID de pago: "+sub.PaymentID, props.Text{Size: 7, Color: colorGray, Top: 1, Left: 2}),
		)),
	}

	if sub.PaymentID != "" {
		rows = append(rows, row.New(40).Add(
			col.New(3).Add(code.NewQr(sub.OrderID+"|"+sub.PaymentID, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(text.New("Conserve este comprobante como soporte del pago del plan.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			})),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

var printer = message.NewPrinter(language.English)

// FormatAmount importe con separador de miles y dos decimales, seguido de la moneda.
// Ej: 1999.5 INR → "1,999.50 INR".
func FormatAmount(sub *entity.Subscription) string {
	f, _ := sub.Amount.Round(2).Float64()
	return printer.Sprintf("%.2f %s", f, sub.Currency)
}

func planLabel(plan string) string {
	if plan == entity.PlanLifetime {
		return "Plan vitalicio (pago único)"
	}
	return plan
}

func activationDate(sub *entity.Subscription) string {
	t := sub.UpdatedAt
	if sub.ActivatedAt != nil {
		t = *sub.ActivatedAt
	}
	return t.In(time.UTC).Format("02/01/2006 15:04 MST")
}
