package gateway

import "github.com/cardforge/connector/internal/status"

// StatusMapper is an immutable per-provider status table built once at
// initialization: each raw code is registered as ignored, mapping to a charge
// status, or mapping to a refund status. Lookup of an unregistered code
// yields StatusUnknown, which is not an error. The zero entry set is valid.
//
// The key type is provider-specific: plain string codes for most providers,
// a (code, success) pair for Smartpay-style providers.
type StatusMapper[K comparable] struct {
	entries map[K]InterpretedStatus
}

// MapperEntry declares one row of a provider's status table.
type MapperEntry[K comparable] struct {
	Code    K
	Outcome InterpretedStatus
}

// Ignore marks a raw code as informational.
func Ignore[K comparable](code K) MapperEntry[K] {
	return MapperEntry[K]{Code: code, Outcome: InterpretedStatus{Type: StatusIgnored}}
}

// MapCharge maps a raw code to a charge status.
func MapCharge[K comparable](code K, s status.ChargeStatus) MapperEntry[K] {
	return MapperEntry[K]{Code: code, Outcome: InterpretedStatus{Type: StatusCharge, ChargeStatus: s}}
}

// MapRefund maps a raw code to a refund status.
func MapRefund[K comparable](code K, s status.RefundStatus) MapperEntry[K] {
	return MapperEntry[K]{Code: code, Outcome: InterpretedStatus{Type: StatusRefund, RefundStatus: s}}
}

// NewStatusMapper builds the immutable table. Safe for unsynchronised
// concurrent reads afterwards.
func NewStatusMapper[K comparable](entries ...MapperEntry[K]) *StatusMapper[K] {
	m := &StatusMapper[K]{entries: make(map[K]InterpretedStatus, len(entries))}
	for _, e := range entries {
		m.entries[e.Code] = e.Outcome
	}
	return m
}

// From looks up a raw code. Unregistered codes yield StatusUnknown.
func (m *StatusMapper[K]) From(code K) InterpretedStatus {
	if outcome, ok := m.entries[code]; ok {
		return outcome
	}
	return InterpretedStatus{Type: StatusUnknown}
}
