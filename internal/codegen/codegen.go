// Package codegen generates the next sequential tooling code for a machine.
package codegen

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/atlasherbaltea-design/otg-track-99/internal/model"
)

// Template is the literal text surrounding the five-digit sequence of a code.
type Template struct {
	Prefix string `json:"prefix" toml:"prefix"`
	Suffix string `json:"suffix" toml:"suffix"`
}

// Format renders the code for sequence number seq.
func (t Template) Format(seq int) string {
	return fmt.Sprintf("%s%05d%s", t.Prefix, seq, t.Suffix)
}

func (t Template) pattern() *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(t.Prefix) + `(\d{5})` + regexp.QuoteMeta(t.Suffix) + "$")
}

// MachineTemplate holds the code templates of one machine.
type MachineTemplate struct {
	Cliche Template `json:"cliche"`
	Forme  Template `json:"forme"`
}

// For returns the template of the given asset type.
func (m MachineTemplate) For(t model.AssetType) Template {
	if t == model.AssetCliche {
		return m.Cliche
	}
	return m.Forme
}

// Fallback is used for machines without a template.
var Fallback = MachineTemplate{
	Cliche: Template{Prefix: "CL-"},
	Forme:  Template{Prefix: "FR-"},
}

// Templates maps machine names to their code templates.
type Templates map[string]MachineTemplate

// DefaultTemplates is the workshop's built-in machine table.
var DefaultTemplates = Templates{
	"MACARBOX": {
		Cliche: Template{Prefix: "F", Suffix: "M"},
		Forme:  Template{Prefix: "F", Suffix: "MR"},
	},
	"ASAHI CELMACH": {
		Cliche: Template{Prefix: "F", Suffix: "AC"},
		Forme:  Template{Prefix: "F", Suffix: "P"},
	},
	"DRO": {
		Cliche: Template{Prefix: "F", Suffix: "D"},
		Forme:  Template{Prefix: "F", Suffix: "R"},
	},
	"CHROMA HQP": {
		Cliche: Template{Prefix: "F", Suffix: "CH"},
		Forme:  Template{Prefix: "F", Suffix: "CC"},
	},
}

// Lookup returns the template of machine and asset type t, falling back to
// the generic prefixes for unmapped machines. A mapped template with an
// empty prefix also takes the generic prefix.
func (ts Templates) Lookup(machine string, t model.AssetType) Template {
	mt, ok := ts[machine]
	if !ok {
		return Fallback.For(t)
	}
	tmpl := mt.For(t)
	if tmpl.Prefix == "" {
		tmpl.Prefix = Fallback.For(t).Prefix
	}
	return tmpl
}

// NextCode returns the code following the highest existing code of type t
// that matches the machine's template. It never fails: an unmapped machine
// uses the fallback template and no match starts the sequence at 1.
func (ts Templates) NextCode(machine string, t model.AssetType, items []model.Item) string {
	tmpl := ts.Lookup(machine, t)
	re := tmpl.pattern()

	maxSeq := 0
	for i := range items {
		code := strings.TrimSpace(items[i].Asset(t).Code)
		m := re.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		maxSeq = max(maxSeq, seq)
	}
	return tmpl.Format(maxSeq + 1)
}

// NextCodes returns the next cliché and forme codes for machine at once, as
// needed when the machine of a new job changes.
func (ts Templates) NextCodes(machine string, items []model.Item) (cliche, forme string) {
	return ts.NextCode(machine, model.AssetCliche, items), ts.NextCode(machine, model.AssetForme, items)
}

// Merge returns a copy of ts with the entries of other added or replacing
// existing ones.
func (ts Templates) Merge(other Templates) Templates {
	out := make(Templates, len(ts)+len(other))
	for k, v := range ts {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Slot names one (machine, asset type) template.
type Slot struct {
	Machine string
	Type    model.AssetType
}

// Collision reports templates that share a prefix and suffix, and therefore
// one sequence space.
type Collision struct {
	Template Template
	Slots    []Slot
}

func (c Collision) String() string {
	names := make([]string, len(c.Slots))
	for i, s := range c.Slots {
		names[i] = fmt.Sprintf("%s/%s", s.Machine, s.Type)
	}
	return fmt.Sprintf("%q..%q shared by %s", c.Template.Prefix, c.Template.Suffix, strings.Join(names, ", "))
}

// Collisions lists every template used by more than one slot, sorted by
// prefix then suffix.
func (ts Templates) Collisions() []Collision {
	bySlot := map[Template][]Slot{}
	machines := make([]string, 0, len(ts))
	for m := range ts {
		machines = append(machines, m)
	}
	slices.Sort(machines)
	for _, m := range machines {
		for _, t := range model.AssetTypes {
			tmpl := ts.Lookup(m, t)
			bySlot[tmpl] = append(bySlot[tmpl], Slot{Machine: m, Type: t})
		}
	}

	var out []Collision
	for tmpl, slots := range bySlot {
		if len(slots) > 1 {
			out = append(out, Collision{Template: tmpl, Slots: slots})
		}
	}
	slices.SortFunc(out, func(a, b Collision) int {
		if c := strings.Compare(a.Template.Prefix, b.Template.Prefix); c != 0 {
			return c
		}
		return strings.Compare(a.Template.Suffix, b.Template.Suffix)
	})
	return out
}

// NextCode uses DefaultTemplates.
func NextCode(machine string, t model.AssetType, items []model.Item) string {
	return DefaultTemplates.NextCode(machine, t, items)
}
