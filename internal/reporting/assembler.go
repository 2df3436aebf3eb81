package reporting

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// AssembleBarberStats merges per-source partials into one report row per
// roster barber. Every barber appears exactly once; barbers with no matching
// partials get zeroed figures, which keeps "no activity" distinguishable
// from "not loaded". The function never reads a pre-summed total field.
func AssembleBarberStats(roster []BarberRef, sales map[uuid.UUID]SaleFigures, appointments map[uuid.UUID]Figures) []BarberReport {
	reports := make([]BarberReport, 0, len(roster))
	for _, barber := range roster {
		report := BarberReport{
			BarberID:   barber.ID,
			BarberName: barber.Name,
		}
		if fig, ok := sales[barber.ID]; ok {
			report.Sales = fig.Product
			report.Cuts = fig.WalkIn
		}
		if fig, ok := appointments[barber.ID]; ok {
			report.Appointments = fig
		}
		report.TotalRevenue = report.Sales.Total + report.Cuts.Total + report.Appointments.Total
		reports = append(reports, report)
	}
	SortBarberReports(reports)
	return reports
}

// SortBarberReports orders rows by revenue descending, breaking ties on
// barber id so equal-revenue rosters serialize identically across calls.
func SortBarberReports(reports []BarberReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].TotalRevenue != reports[j].TotalRevenue {
			return reports[i].TotalRevenue > reports[j].TotalRevenue
		}
		return bytes.Compare(reports[i].BarberID[:], reports[j].BarberID[:]) < 0
	})
}
