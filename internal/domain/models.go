package domain

import "time"

// Domain contains core models shared across packages.

// Query describes one availability lookup against the fulfillment endpoint.
// Location and Store narrow each other: Location finds nearby stores, Store
// pins the result to a single retail location.
type Query struct {
	Location   string
	Store      string
	SearchTerm string
	Models     []string
	Parts      []string
}

// AvailabilityRecord is one store/part availability datapoint. Records are
// built fresh per invocation and never mutated afterwards.
type AvailabilityRecord struct {
	StoreCode       string
	StoreName       string
	City            string
	PartNumber      string
	ModelName       string
	PickupStatus    string
	PickupAvailable bool
	PickupQuote     string
}

// RetryPolicy bounds the fetch loop: MaxAttempts total tries with a fixed
// delay between them. No backoff.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Normalize clamps the policy to its minimums.
func (p RetryPolicy) Normalize() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// WantsModel reports whether the query's model filter admits the given name.
// An empty filter admits everything.
func (q Query) WantsModel(name string) bool {
	return memberOrEmpty(q.Models, name)
}

// WantsPart reports whether the query's part filter admits the given part number.
func (q Query) WantsPart(part string) bool {
	return memberOrEmpty(q.Parts, part)
}

func memberOrEmpty(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
