package model

import "encoding/json"

// Ledger is the executed-indices history of a session, oldest first.
type Ledger []int

// ParseLedger decodes the stored ledger text. Empty or corrupt text yields an
// empty ledger instead of an error.
func ParseLedger(raw string) Ledger {
	if raw == "" {
		return Ledger{}
	}
	var l Ledger
	if err := json.Unmarshal([]byte(raw), &l); err != nil || l == nil {
		return Ledger{}
	}
	return l
}

// Record appends idx unless it is already the last entry.
func (l Ledger) Record(idx int) Ledger {
	if n := len(l); n > 0 && l[n-1] == idx {
		return l
	}
	return append(l, idx)
}

func (l Ledger) String() string {
	if len(l) == 0 {
		return "[]"
	}
	b, _ := json.Marshal([]int(l))
	return string(b)
}
