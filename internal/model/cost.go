package model

import "sort"

// CostRecord represents one manufacturer's program-level spending row for a
// drug in a given year.
type CostRecord struct {
	BrandName       string
	GenericName     string
	Manufacturer    string
	TotManufacturer int
	Year            int
	AvgSpendPerDose float64
	OutlierFlag     bool
}

// RankedCostList is a slice of CostRecord that sorts ascending by average
// spend per dose, with ties broken by manufacturer name for determinism.
type RankedCostList []CostRecord

// Len implements sort.Interface.
func (r RankedCostList) Len() int {
	return len(r)
}

// Less implements sort.Interface - cheaper records come first.
func (r RankedCostList) Less(i, j int) bool {
	if r[i].AvgSpendPerDose != r[j].AvgSpendPerDose {
		return r[i].AvgSpendPerDose < r[j].AvgSpendPerDose
	}
	return r[i].Manufacturer < r[j].Manufacturer
}

// Swap implements sort.Interface.
func (r RankedCostList) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

// Sort orders the list cheapest-first.
func (r RankedCostList) Sort() {
	sort.Sort(r)
}

// Cheapest returns the first record after sorting, or nil for an empty list.
func (r RankedCostList) Cheapest() *CostRecord {
	if len(r) == 0 {
		return nil
	}
	r.Sort()
	return &r[0]
}
