package model

import (
	"strings"
	"time"
)

// DateFormat is the ISO calendar date layout used for every stored date.
const DateFormat = "2006-01-02"

// AssetType identifies one of the two tooling assets a job can need.
type AssetType string

// Asset types.
const (
	AssetCliche AssetType = "cliche"
	AssetForme  AssetType = "forme"
)

// AssetTypes lists both asset types in display order.
var AssetTypes = []AssetType{AssetCliche, AssetForme}

// Valid reports whether t is a known asset type.
func (t AssetType) Valid() bool {
	return t == AssetCliche || t == AssetForme
}

// Status is the lifecycle state of a job or of one of its assets.
type Status string

// Statuses.
const (
	StatusNotOrdered Status = "not_ordered"
	StatusOrdered    Status = "ordered"
	StatusReceived   Status = "received"
	StatusDelayed    Status = "delayed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNotOrdered, StatusOrdered, StatusReceived, StatusDelayed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotOrdered, StatusOrdered, StatusReceived, StatusDelayed:
		return true
	}
	return false
}

// Asset is the procurement timeline of one tooling asset of a job.
// An empty Code means the job does not need this asset.
type Asset struct {
	Code         string `json:"code"`
	Supplier     string `json:"supplier"`
	DateCreation string `json:"date_creation"`
	IsOrdered    bool   `json:"is_ordered"`
	DateOrder    string `json:"date_order"`
	DateExpected string `json:"date_expected"`
	DateDelivery string `json:"date_delivery"`
}

// Needed reports whether the job needs this asset.
func (a Asset) Needed() bool {
	return strings.TrimSpace(a.Code) != ""
}

// Item is one production job (dossier).
type Item struct {
	ID            string            `json:"id"`
	Machine       string            `json:"machine"`
	Client        string            `json:"client"`
	Reference     string            `json:"reference"`
	Element       string            `json:"element"`
	Poses         int               `json:"poses"`
	DateCreation  string            `json:"date_creation"`
	Cliche        Asset             `json:"cliche"`
	Forme         Asset             `json:"forme"`
	Comments      string            `json:"comments"`
	NonConformity string            `json:"non_conformity"`
	CustomFields  map[string]string `json:"custom_fields,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Asset returns the asset of the given type. Unknown types yield the forme asset.
func (it *Item) Asset(t AssetType) *Asset {
	if t == AssetCliche {
		return &it.Cliche
	}
	return &it.Forme
}

// HasNonConformity reports whether a non-conformity note was recorded.
func (it Item) HasNonConformity() bool {
	return strings.TrimSpace(it.NonConformity) != ""
}

// Normalize applies the write-time invariants: poses is at least 1 and
// text fields carry no surrounding whitespace.
func (it *Item) Normalize() {
	if it.Poses < 1 {
		it.Poses = 1
	}
	it.Machine = strings.TrimSpace(it.Machine)
	it.Client = strings.TrimSpace(it.Client)
	it.Reference = strings.TrimSpace(it.Reference)
	it.Element = strings.TrimSpace(it.Element)
	it.DateCreation = strings.TrimSpace(it.DateCreation)
	for _, a := range []*Asset{&it.Cliche, &it.Forme} {
		a.Code = strings.TrimSpace(a.Code)
		a.Supplier = strings.TrimSpace(a.Supplier)
		a.DateCreation = strings.TrimSpace(a.DateCreation)
		a.DateOrder = strings.TrimSpace(a.DateOrder)
		a.DateExpected = strings.TrimSpace(a.DateExpected)
		a.DateDelivery = strings.TrimSpace(a.DateDelivery)
	}
}

// DropUnneededSuppliers clears the supplier of each asset the job does not need.
func (it *Item) DropUnneededSuppliers() {
	for _, a := range []*Asset{&it.Cliche, &it.Forme} {
		if !a.Needed() {
			a.Supplier = ""
		}
	}
}

// ValidDate reports whether s is empty or a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse(DateFormat, s)
	return err == nil
}

// DateFields returns the named date fields of an item for boundary validation.
func (it Item) DateFields() map[string]string {
	return map[string]string{
		"date_creation":        it.DateCreation,
		"cliche.date_creation": it.Cliche.DateCreation,
		"cliche.date_order":    it.Cliche.DateOrder,
		"cliche.date_expected": it.Cliche.DateExpected,
		"cliche.date_delivery": it.Cliche.DateDelivery,
		"forme.date_creation":  it.Forme.DateCreation,
		"forme.date_order":     it.Forme.DateOrder,
		"forme.date_expected":  it.Forme.DateExpected,
		"forme.date_delivery":  it.Forme.DateDelivery,
	}
}

// CustomFieldDefinition describes an extra per-item field configured by the workshop.
type CustomFieldDefinition struct {
	ID    string `json:"id" toml:"id"`
	Label string `json:"label" toml:"label"`
	Type  string `json:"type" toml:"type"`
}

// Custom field types.
const (
	CustomFieldText   = "text"
	CustomFieldNumber = "number"
	CustomFieldDate   = "date"
)
