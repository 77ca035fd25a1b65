// Package pdf implementa el RIDE (Representación Impresa del Documento Electrónico)
// de los comprobantes autorizados por el SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón social + RUC  │  TIPO + N° + Autorización     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLAVE DE ACCESO: código de barras + dígitos                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DATOS: Fecha emisión / Ambiente / Emisión / Punto           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL                                                       │
//	│  LEYENDA                                                     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

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
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain/entity"
	"github.com/jhoicas/Comprobantes-api/pkg/sri"
)

var _ billing.RIDEGenerator = (*RIDEGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// RIDEGenerator implementa billing.RIDEGenerator usando Maroto v2.
type RIDEGenerator struct{}

// NewRIDEGenerator construye el generador.
func NewRIDEGenerator() *RIDEGenerator { return &RIDEGenerator{} }

// GenerateRIDE genera el PDF del comprobante autorizado y devuelve sus bytes.
func (g *RIDEGenerator) GenerateRIDE(
	_ context.Context,
	doc *entity.FiscalDocument,
	tenant *entity.Tenant,
	point *entity.EmissionPoint,
) ([]byte, error) {
	if doc.AccessKey == "" {
		return nil, fmt.Errorf("pdf: el comprobante %s no tiene clave de acceso", doc.ID)
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("RIDE "+documentLabel(doc.DocumentType), true).
		WithAuthor(tenant.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, tenant))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	for _, r := range accessKeyRows(doc) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(detailsRow(doc, point))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(doc))
	m.AddRows(line.NewRow(3))
	m.AddRows(legendRow())

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar RIDE: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social + RUC (izq) y tipo, número y autorización (der).
func headerRow(doc *entity.FiscalDocument, tenant *entity.Tenant) core.Row {
	authDate := "-"
	if doc.AuthorizedAt != nil {
		authDate = doc.AuthorizedAt.Format("02/01/2006 15:04:05")
	}
	return row.New(24).Add(
		col.New(7).Add(
			text.New(tenant.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("R.U.C.: "+tenant.RUC, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(documentLabel(doc.DocumentType), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("No. "+doc.DocumentNumber, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Autorización: "+nonEmpty(doc.AuthorizationCode, doc.AccessKey), props.Text{
				Size: 6.5, Align: align.Right, Top: 14, Color: colorGray,
			}),
			text.New("Fecha autorización: "+authDate, props.Text{
				Size: 7, Align: align.Right, Top: 19, Color: colorGray,
			}),
		),
	)
}

// accessKeyRows: código de barras Code128 de la clave de acceso con sus dígitos debajo.
func accessKeyRows(doc *entity.FiscalDocument) []core.Row {
	return []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("CLAVE DE ACCESO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(16).Add(col.New(12).Add(
			code.NewBar(doc.AccessKey, props.Barcode{Percent: 100, Center: true}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New(doc.AccessKey, props.Text{
				Size: 8, Align: align.Center, Top: 1,
			}),
		)),
	}
}

// detailsRow: fecha de emisión, ambiente, tipo de emisión y punto de emisión.
func detailsRow(doc *entity.FiscalDocument, point *entity.EmissionPoint) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 8, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 8, Top: top, Color: colorGray})
	}
	pointLabel := "-"
	if point != nil {
		pointLabel = point.EstablishmentCode + "-" + point.Code
		if point.Name != "" {
			pointLabel += " (" + point.Name + ")"
		}
	}
	return row.New(22).Add(
		col.New(3).Add(
			label("Fecha de emisión:", 1),
			label("Ambiente:", 6),
			label("Emisión:", 11),
			label("Punto de emisión:", 16),
		),
		col.New(9).Add(
			value(doc.IssueDate.Format("02/01/2006"), 1),
			value(environmentLabel(doc.AccessKey), 6),
			value("NORMAL", 11),
			value(pointLabel, 16),
		),
	)
}

// totalRow: importe total calculado por el motor de impuestos externo.
func totalRow(doc *entity.FiscalDocument) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("VALOR TOTAL:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New(formatUSD(doc.Total), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

func legendRow() core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(
			"Documento autorizado por el Servicio de Rentas Internas. "+
				"Consulte su validez en www.sri.gob.ec con la clave de acceso.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func documentLabel(t entity.DocumentType) string {
	switch t {
	case entity.DocumentTypeInvoice:
		return "FACTURA"
	case entity.DocumentTypeCreditNote:
		return "NOTA DE CRÉDITO"
	case entity.DocumentTypeDebitNote:
		return "NOTA DE DÉBITO"
	case entity.DocumentTypeWithholding:
		return "COMPROBANTE DE RETENCIÓN"
	}
	return strings.ToUpper(string(t))
}

// environmentLabel lee el dígito de ambiente (posición 24) de la clave de acceso.
func environmentLabel(accessKey string) string {
	if len(accessKey) != sri.AccessKeyLength {
		return "-"
	}
	switch accessKey[23:24] {
	case sri.EnvironmentTest:
		return "PRUEBAS"
	case sri.EnvironmentProduction:
		return "PRODUCCIÓN"
	}
	return "-"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatUSD formatea con separador de miles y dos decimales.
// Ej: 1234.5 → "$1,234.50"
func formatUSD(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + string(buf) + "." + frac
}
