package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// StatementData is the rendered view of one contract's royalty statement.
// All money fields arrive preformatted.
type StatementData struct {
	OrgName         string
	LicenseeName    string
	LicenseeEmail   string
	AgreementNumber string
	StatementDate   string
	Currency        string

	Lines []StatementLine

	TotalSales        string
	TotalRoyalty      string
	GuaranteeStatus   string
	AdvanceUnrecouped string
}

// StatementLine is one confirmed reporting period.
type StatementLine struct {
	PeriodStart    string
	PeriodEnd      string
	NetSales       string
	Royalty        string
	MinimumApplied bool
}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Royalty Statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(data.OrgName, props.Text{Style: fontstyle.Bold}),
			text.New("Statement date: "+data.StatementDate, props.Text{Top: 6}),
			text.New("Currency: "+data.Currency, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Licensee", props.Text{Style: fontstyle.Bold}),
			text.New(data.LicenseeName, props.Text{Top: 6}),
			text.New(data.LicenseeEmail, props.Text{Top: 10}),
			text.New("Agreement: "+data.AgreementNumber, props.Text{Top: 14}),
		),
	)

	m.AddRow(10,
		text.NewCol(3, "Period start", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Period end", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Net sales", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Royalty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range data.Lines {
		royalty := line.Royalty
		if line.MinimumApplied {
			royalty += " *"
		}
		m.AddRow(8,
			text.NewCol(3, line.PeriodStart, props.Text{Size: 9}),
			text.NewCol(3, line.PeriodEnd, props.Text{Size: 9}),
			text.NewCol(3, line.NetSales, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, royalty, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total sales", props.Text{Size: 9}),
		text.NewCol(3, data.TotalSales, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total royalty", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, data.TotalRoyalty, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if data.GuaranteeStatus != "" {
		m.AddRow(8,
			text.NewCol(12, data.GuaranteeStatus, props.Text{Size: 9}),
		)
	}
	if data.AdvanceUnrecouped != "" {
		m.AddRow(8,
			text.NewCol(12, "Advance unrecouped: "+data.AdvanceUnrecouped, props.Text{Size: 9}),
		)
	}

	m.AddRow(10,
		text.NewCol(12, "* period below the minimum guarantee run rate", props.Text{Size: 8}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
