// Package ticketpdf renders the A6 boarding document attached to a booking
// confirmation.
package ticketpdf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
)

// Ticket is everything printed on the document.
type Ticket struct {
	ID           uint64
	Email        string
	Phone        string
	FromCity     string
	ToCity       string
	DepartureAt  time.Time
	ArrivalAt    time.Time
	SeatLabel    string
	LicensePlate string
	Price        uint32
}

// Filename is the conventional name for a rendered ticket.
func Filename(t Ticket) string {
	return fmt.Sprintf("ticket-%d.pdf", t.ID)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Render writes the PDF for t to w.  Times are printed in loc.
func Render(w io.Writer, t Ticket, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: 105, Ht: 148},
	})
	pdf.SetTitle(fmt.Sprintf("Ticket #%d", t.ID), false)
	pdf.SetMargins(8, 8, 8)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "BUS TICKET", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("No. %d", t.ID), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(0, 6, tr(orDash(t.FromCity)+"  ->  "+orDash(t.ToCity)), "", "C", false)
	pdf.Ln(2)

	const layout = "02/01/2006 15:04"
	rows := [][2]string{
		{"Departure", t.DepartureAt.In(loc).Format(layout)},
		{"Arrival", t.ArrivalAt.In(loc).Format(layout)},
		{"Seat", orDash(t.SeatLabel)},
		{"Bus", orDash(t.LicensePlate)},
		{"Price", fmt.Sprintf("%d VND", t.Price)},
		{"Email", orDash(t.Email)},
		{"Phone", orDash(t.Phone)},
	}
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(24, 6, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, tr(r[1]), "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.MultiCell(0, 4, "Valid for one passenger on the seat above. Please be at the boarding point 15 minutes before departure.", "", "L", false)

	return pdf.Output(w)
}

// Bytes renders t into memory.
func Bytes(t Ticket, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, t, loc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
