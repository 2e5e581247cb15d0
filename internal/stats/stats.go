// Package stats aggregates the dashboard figures. Every job status comes
// from the status package; nothing is cached.
package stats

import (
	"math"
	"slices"
	"time"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
	"github.com/atlasherbaltea-design/otg-track-99/internal/status"
)

// TopOperators is the number of operators kept in repair statistics.
const TopOperators = 5

// Summary counts jobs per status.
type Summary struct {
	Total      int          `json:"total"`
	NotOrdered int          `json:"not_ordered"`
	Ordered    int          `json:"ordered"`
	Received   int          `json:"received"`
	Delayed    int          `json:"delayed"`
	DelayRate  int          `json:"delay_rate"`
	NonConform int          `json:"non_conformities"`
	Late       []model.Item `json:"late"`
}

// Summarize counts items per status as of today.
func Summarize(items []model.Item, today string) Summary {
	s := Summary{Total: len(items), Late: []model.Item{}}
	for _, it := range items {
		switch status.Derive(it, today) {
		case model.StatusNotOrdered:
			s.NotOrdered++
		case model.StatusOrdered:
			s.Ordered++
		case model.StatusReceived:
			s.Received++
		case model.StatusDelayed:
			s.Delayed++
			s.Late = append(s.Late, it)
		}
		if it.HasNonConformity() {
			s.NonConform++
		}
	}
	s.DelayRate = percent(s.Delayed, s.Total, 0)
	return s
}

// OperatorCount is the number of tickets declared by one operator.
type OperatorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Aging buckets open tickets by days since declaration.
type Aging struct {
	Fresh  int `json:"fresh"`  // under 3 days
	Medium int `json:"medium"` // 3 to 7 days
	Old    int `json:"old"`    // over 7 days
}

// RepairSummary aggregates repair tickets.
type RepairSummary struct {
	Total       int             `json:"total"`
	Open        int             `json:"open"`
	Closed      int             `json:"closed"`
	SuccessRate int             `json:"success_rate"`
	Operators   []OperatorCount `json:"operators"`
	Aging       Aging           `json:"aging"`
}

// Repairs aggregates tickets as of now. Open tickets with an unparseable
// declaration date are left out of the aging buckets.
func Repairs(repairs []model.Repair, now time.Time) RepairSummary {
	s := RepairSummary{Total: len(repairs), Operators: []OperatorCount{}}
	index := map[string]int{}
	for _, r := range repairs {
		switch r.Status {
		case model.RepairOpen:
			s.Open++
			if d, err := time.ParseInLocation(model.DateFormat, r.DeclarationDate, now.Location()); err == nil {
				days := int(math.Floor(now.Sub(d).Hours() / 24))
				switch {
				case days < 3:
					s.Aging.Fresh++
				case days <= 7:
					s.Aging.Medium++
				default:
					s.Aging.Old++
				}
			}
		case model.RepairClosed:
			s.Closed++
		}
		if r.Operator == "" {
			continue
		}
		if i, ok := index[r.Operator]; ok {
			s.Operators[i].Count++
			continue
		}
		index[r.Operator] = len(s.Operators)
		s.Operators = append(s.Operators, OperatorCount{Name: r.Operator, Count: 1})
	}
	slices.SortStableFunc(s.Operators, func(a, b OperatorCount) int { return b.Count - a.Count })
	if len(s.Operators) > TopOperators {
		s.Operators = s.Operators[:TopOperators]
	}
	s.SuccessRate = percent(s.Closed, s.Total, 0)
	return s
}

// SupplierStats is the performance of one supplier over the jobs where it
// supplies either asset.
type SupplierStats struct {
	Name        string `json:"name"`
	Total       int    `json:"total"`
	Delayed     int    `json:"delayed"`
	Received    int    `json:"received"`
	NonConform  int    `json:"non_conformities"`
	OnTimeRate  int    `json:"on_time_rate"`
	QualityRate int    `json:"quality_rate"`
}

// Suppliers computes the statistics of every configured supplier, busiest first.
func Suppliers(items []model.Item, suppliers []string, today string) []SupplierStats {
	out := make([]SupplierStats, 0, len(suppliers))
	for _, name := range suppliers {
		s := SupplierStats{Name: name}
		for _, it := range items {
			if it.Cliche.Supplier != name && it.Forme.Supplier != name {
				continue
			}
			s.Total++
			switch status.Derive(it, today) {
			case model.StatusDelayed:
				s.Delayed++
			case model.StatusReceived:
				s.Received++
			}
			if it.HasNonConformity() {
				s.NonConform++
			}
		}
		s.OnTimeRate = percent(s.Received-s.Delayed, s.Total, 100)
		s.QualityRate = percent(s.Total-s.NonConform, s.Total, 100)
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b SupplierStats) int { return b.Total - a.Total })
	return out
}

// MachineStats counts the activity of one machine.
type MachineStats struct {
	Name        string `json:"name"`
	Received    int    `json:"received"`
	Delayed     int    `json:"delayed"`
	OpenRepairs int    `json:"open_repairs"`
}

// Machines counts received and delayed jobs and open repairs per configured
// machine. Machines with no activity at all are omitted.
func Machines(items []model.Item, repairs []model.Repair, machines []string, today string) []MachineStats {
	out := make([]MachineStats, 0, len(machines))
	for _, name := range machines {
		m := MachineStats{Name: name}
		for _, it := range items {
			if it.Machine != name {
				continue
			}
			switch status.Derive(it, today) {
			case model.StatusReceived:
				m.Received++
			case model.StatusDelayed:
				m.Delayed++
			}
		}
		for _, r := range repairs {
			if r.Machine == name && r.IsOpen() {
				m.OpenRepairs++
			}
		}
		if m.Received+m.Delayed+m.OpenRepairs > 0 {
			out = append(out, m)
		}
	}
	return out
}

// FilterItems returns the items of machine, or all items when machine is empty.
func FilterItems(items []model.Item, machine string) []model.Item {
	if machine == "" {
		return items
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.Machine == machine {
			out = append(out, it)
		}
	}
	return out
}

// FilterRepairs returns the repairs of machine, or all repairs when machine is empty.
func FilterRepairs(repairs []model.Repair, machine string) []model.Repair {
	if machine == "" {
		return repairs
	}
	out := make([]model.Repair, 0, len(repairs))
	for _, r := range repairs {
		if r.Machine == machine {
			out = append(out, r)
		}
	}
	return out
}

// percent returns round(n/total*100) with halves rounded up, or empty when
// total is zero.
func percent(n, total, empty int) int {
	if total == 0 {
		return empty
	}
	return int(math.Floor(float64(n)*100/float64(total) + 0.5))
}
