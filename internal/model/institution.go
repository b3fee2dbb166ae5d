package model

import "time"

// Institution is a single reporting entity identified by its RSSD id.
// Created or refreshed on every import; never deleted by the core.
type Institution struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FDICCert   string    `json:"fdic_cert,omitempty"`
	OCCCharter string    `json:"occ_charter,omitempty"`
	ABARouting string    `json:"aba_routing,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	State      string    `json:"state,omitempty"`
	ZIP        string    `json:"zip,omitempty"`
	Website    string    `json:"website,omitempty"`
	FilingType string    `json:"filing_type,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
