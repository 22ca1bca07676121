package model

import "strings"

// MaxSeatLabelLen is the longest seat label, in bytes, the ledger stores.
const MaxSeatLabelLen = 191

// ParseSeatLabels splits a comma-separated seat list, trims each label,
// drops blanks and removes repeats keeping the first occurrence. Labels are
// compared as entered, so "a1" and "A1" are different seats.
func ParseSeatLabels(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// JoinSeatLabels renders labels the way Reservation.SeatLabels stores them.
func JoinSeatLabels(labels []string) string {
	return strings.Join(labels, SeatSeparator)
}
