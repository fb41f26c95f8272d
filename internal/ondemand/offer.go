// Package ondemand reads EC2 on-demand prices from the AWS Price List API.
package ondemand

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Epsilon is the price below which an offer is treated as a degenerate
// free-tier entry rather than a real price.
const Epsilon = 1e-7

// Path queries over one price list document.
const (
	pathAttributes     = "product.attributes"
	pathVCPU           = "vcpu"
	pathUsageType      = "usagetype"
	pathInstanceType   = "instanceType"
	pathPreInstalledSW = "preInstalledSw"
	pathOnDemand       = "terms.OnDemand"
	pathFirstOffer     = "*"
	pathPricePerUnit   = "priceDimensions.*.pricePerUnit.USD"
	pathDescription    = "priceDimensions.*.description"
)

type Status int

const (
	OfferValid Status = iota
	// OfferNoOnDemandTerms is the expected filter for reserved-only documents.
	OfferNoOnDemandTerms
	OfferPreinstalledSoftware
	OfferMissingPrice
	OfferBelowEpsilon
	OfferMalformed
)

func (s Status) String() string {
	switch s {
	case OfferValid:
		return "valid"
	case OfferNoOnDemandTerms:
		return "no_on_demand_terms"
	case OfferPreinstalledSoftware:
		return "preinstalled_software"
	case OfferMissingPrice:
		return "missing_price"
	case OfferBelowEpsilon:
		return "below_epsilon"
	case OfferMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

type Offer struct {
	UsageType    string
	VCPU         int
	InstanceType string
	PricePerUnit float64
	Description  string
}

// Result is the classification of one document. Offer is filled as far as the
// document allowed; it is complete only when Status is OfferValid.
type Result struct {
	Status Status
	Offer  Offer
}

// Classify parses one price list document. Documents whose preInstalledSw
// attribute differs from preInstalledSW are excluded.
func Classify(doc string, preInstalledSW string) Result {
	if !gjson.Valid(doc) {
		return Result{Status: OfferMalformed}
	}
	attrs := gjson.Get(doc, pathAttributes)
	vcpuField := attrs.Get(pathVCPU)
	usageType := attrs.Get(pathUsageType)
	instanceType := attrs.Get(pathInstanceType)
	if !vcpuField.Exists() || !usageType.Exists() || !instanceType.Exists() {
		return Result{Status: OfferMalformed}
	}
	vcpu, err := strconv.Atoi(vcpuField.String())
	if err != nil {
		return Result{Status: OfferMalformed}
	}
	offer := Offer{
		UsageType:    usageType.String(),
		VCPU:         vcpu,
		InstanceType: instanceType.String(),
	}

	terms := gjson.Get(doc, pathOnDemand)
	if !terms.Exists() {
		return Result{Status: OfferNoOnDemandTerms, Offer: offer}
	}
	if attrs.Get(pathPreInstalledSW).String() != preInstalledSW {
		return Result{Status: OfferPreinstalledSoftware, Offer: offer}
	}

	// The OnDemand mapping has a single offer keyed by an opaque term code.
	term := terms.Get(pathFirstOffer)
	price := term.Get(pathPricePerUnit)
	description := term.Get(pathDescription)
	if !price.Exists() || !description.Exists() {
		return Result{Status: OfferMissingPrice, Offer: offer}
	}
	pricePerUnit, err := strconv.ParseFloat(price.String(), 64)
	if err != nil {
		return Result{Status: OfferMissingPrice, Offer: offer}
	}
	offer.PricePerUnit = pricePerUnit
	offer.Description = description.String()

	if pricePerUnit < Epsilon {
		return Result{Status: OfferBelowEpsilon, Offer: offer}
	}
	return Result{Status: OfferValid, Offer: offer}
}
