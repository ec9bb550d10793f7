// Package model defines the core domain models used throughout the application.
package model

import "strings"

// Classification indicates whether a product was approved as a brand or a
// generic-equivalent product.
type Classification string

// Classification constants.
const (
	ClassificationBrand   Classification = "brand"
	ClassificationGeneric Classification = "generic"
	ClassificationUnknown Classification = "unknown"
)

// ProductIdentity represents one approved product record in the reference store.
// Records are immutable after the dataset build.
type ProductIdentity struct {
	ApplType   string
	ApplNo     string
	ProductNo  string
	TradeName  string
	Ingredient string
	Strength   string
	DosageForm string
	Route      string
	Applicant  string
	TECode     string
}

// Classification derives the brand/generic classification from the application
// type: "N" applications are brand products, "A" applications are generics.
func (p *ProductIdentity) Classification() Classification {
	switch p.ApplType {
	case "N":
		return ClassificationBrand
	case "A":
		return ClassificationGeneric
	default:
		return ClassificationUnknown
	}
}

// IsTherapeuticallyEquivalent reports whether the product carries an "A"-rated
// therapeutic equivalence code.
func (p *ProductIdentity) IsTherapeuticallyEquivalent() bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(p.TECode)), "A")
}
