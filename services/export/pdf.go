package export

import (
	"bytes"
	"fmt"

	"carebook/services/booking"

	"github.com/go-pdf/fpdf"
)

// FileName names the exported document after the booking id.
func FileName(view *booking.ConfirmationView) string {
	return fmt.Sprintf("booking-%s.pdf", view.BookingID)
}

// Lines flattens the confirmation view into ordered label/value rows. The
// PDF renders exactly these rows and the tests assert over them, so a field
// cannot be dropped from one without the other noticing.
func Lines(view *booking.ConfirmationView) [][2]string {
	lines := [][2]string{
		{"Booking ID", view.BookingID},
		{"Service", view.ServiceName},
		{"Provider", view.ProviderName},
		{"City", view.CityName},
		{"Date", view.Date},
		{"Time", view.Time},
		{"Patient", view.PatientName},
		{"Phone", view.PatientPhone},
	}
	if view.PatientEmail != "" {
		lines = append(lines, [2]string{"Email", view.PatientEmail})
	}
	if view.AtHome {
		lines = append(lines, [2]string{"Visit", "At home"})
		if view.Address != "" {
			lines = append(lines, [2]string{"Address", view.Address})
		}
	}
	for _, item := range view.Items {
		lines = append(lines, [2]string{"Item: " + item.Name, item.Price})
	}
	lines = append(lines,
		[2]string{"Total", view.Total},
		[2]string{"Status", view.Status},
	)
	if view.Fallback {
		lines = append(lines, [2]string{"Note", "booked against offline demo data"})
	}
	return lines
}

// RenderPDF produces the paginated confirmation document synchronously, with
// no server round-trip and no mutation of the view.
func RenderPDF(view *booking.ConfirmationView) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, view.FlowTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, "Booking Confirmation", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	for _, line := range Lines(view) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, line[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 8, line[1], "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render booking PDF: %w", err)
	}
	return buf.Bytes(), nil
}
