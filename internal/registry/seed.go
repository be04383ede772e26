package registry

import "autoliquid/internal/services/auction"

var demoDealers = []auction.Dealer{
	{ID: "dealer-a", DisplayName: "Sharma Motors", Status: auction.DealerApproved},
	{ID: "dealer-b", DisplayName: "Bharat Car Bazaar", Status: auction.DealerApproved},
	{ID: "dealer-c", DisplayName: "Deccan Wheels", Status: auction.DealerApproved},
	{ID: "dealer-s", DisplayName: "Suspended Autos", Status: auction.DealerSuspended},
}

var demoReports = map[string]auction.CarDetails{
	"insp-1001": {Brand: "Maruti Suzuki", Model: "Swift", Variant: "VXI", Year: 2019, Registration: "MH12AB1234"},
	"insp-1002": {Brand: "Hyundai", Model: "Creta", Variant: "SX", Year: 2021, Registration: "KA03MN5678"},
	"insp-1003": {Brand: "Tata", Model: "Nexon", Variant: "XZ+", Year: 2020, Registration: "DL8CAF9012"},
}

// SeedDemo loads a handful of dealers and inspection reports for local runs.
// It returns the report ids it loaded.
func SeedDemo(m *Memory) []string {
	for _, d := range demoDealers {
		m.PutDealer(d)
	}
	ids := make([]string, 0, len(demoReports))
	for id, c := range demoReports {
		m.PutReport(id, c)
		ids = append(ids, id)
	}
	return ids
}

// DemoDealerIDs lists the seeded dealers.
func DemoDealerIDs() []string {
	ids := make([]string, 0, len(demoDealers))
	for _, d := range demoDealers {
		ids = append(ids, d.ID)
	}
	return ids
}
