// Package status derives the lifecycle status of production jobs from their
// asset timelines. Nothing here is stored; every caller recomputes on demand.
package status

import (
	"strings"
	"time"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

// DeriveAsset returns the status of a single asset.
//
// Dates are compared as ISO strings, so a malformed expected date yields a
// well-typed but arbitrary result rather than an error.
func DeriveAsset(isOrdered bool, dateExpected, dateDelivery, today string) model.Status {
	if !isOrdered {
		return model.StatusNotOrdered
	}
	if strings.TrimSpace(dateDelivery) != "" {
		return model.StatusReceived
	}
	if dateExpected != "" && dateExpected < today {
		return model.StatusDelayed
	}
	return model.StatusOrdered
}

// Derive returns the overall status of item as of today (YYYY-MM-DD).
//
// Only the assets the job needs take part. A job needing nothing is
// NotOrdered; any delayed asset makes the job Delayed; otherwise the job is
// Received or NotOrdered only when every needed asset is, and Ordered in
// between.
func Derive(item model.Item, today string) model.Status {
	var subs []model.Status
	for _, t := range model.AssetTypes {
		a := item.Asset(t)
		if !a.Needed() {
			continue
		}
		subs = append(subs, DeriveAsset(a.IsOrdered, a.DateExpected, a.DateDelivery, today))
	}
	if len(subs) == 0 {
		return model.StatusNotOrdered
	}
	return combine(subs)
}

func combine(subs []model.Status) model.Status {
	received, notOrdered := 0, 0
	for _, s := range subs {
		switch s {
		case model.StatusDelayed:
			return model.StatusDelayed
		case model.StatusReceived:
			received++
		case model.StatusNotOrdered:
			notOrdered++
		}
	}
	switch len(subs) {
	case received:
		return model.StatusReceived
	case notOrdered:
		return model.StatusNotOrdered
	}
	return model.StatusOrdered
}

// Today returns the current local calendar date.
func Today() string {
	return time.Now().Format(model.DateFormat)
}

// Of derives the status of item against the system clock.
func Of(item model.Item) model.Status {
	return Derive(item, Today())
}

// ParseStatus parses a status name as used in query parameters. The empty
// string parses to "" with ok set, meaning no filter.
func ParseStatus(s string) (model.Status, bool) {
	st := model.Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return "", true
	}
	return st, st.Valid()
}

// Filter returns the items whose derived status is want. An empty want
// matches every item.
func Filter(items []model.Item, want model.Status, today string) []model.Item {
	out := make([]model.Item, 0, len(items))
	if want == "" {
		return append(out, items...)
	}
	for _, it := range items {
		if Derive(it, today) == want {
			out = append(out, it)
		}
	}
	return out
}

// Count returns the number of items in each status. Every status is present
// in the result, possibly with a zero count.
func Count(items []model.Item, today string) map[model.Status]int {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, s := range model.Statuses {
		counts[s] = 0
	}
	for _, it := range items {
		counts[Derive(it, today)]++
	}
	return counts
}
