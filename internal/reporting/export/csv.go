// Package export serialises period reports for download.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/barberdesk/barberdesk/internal/reporting"
)

var amountPrinter = message.NewPrinter(language.English)

// WriteReportCSV serialises a period report to CSV, one row per barber.
// Amounts are grouped for readability; counts stay bare integers.
func WriteReportCSV(w io.Writer, report reporting.PeriodReport) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Window", report.Window.Label}); err != nil {
		return err
	}
	if report.Partial {
		if err := writer.Write([]string{"Partial", "true"}); err != nil {
			return err
		}
	}
	header := []string{
		"Barber", "Product Sales", "Product Count",
		"Walk-In Sales", "Walk-In Count",
		"Appointments", "Appointment Count", "Total Revenue",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, barber := range report.Barbers {
		name := barber.BarberName
		if name == "" {
			name = barber.BarberID.String()
		}
		record := []string{
			name,
			formatAmount(barber.Sales.Total),
			formatCount(barber.Sales.Count),
			formatAmount(barber.Cuts.Total),
			formatCount(barber.Cuts.Count),
			formatAmount(barber.Appointments.Total),
			formatCount(barber.Appointments.Count),
			formatAmount(barber.TotalRevenue),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatAmount(minorUnits int64) string {
	return amountPrinter.Sprintf("%d", minorUnits)
}

func formatCount(count int64) string {
	return strconv.FormatInt(count, 10)
}
