// Package numbering defines the human-readable identifiers handed out to
// students, staff and fee receipts, and the per-scope counter they are
// allocated from.
package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/madrasa/backend/internal/domain/shared"
)

// ErrIdentifierAlreadyAssigned is returned when an entity already carries
// its identifier. Identifiers are assigned once and never regenerated.
var ErrIdentifierAlreadyAssigned = shared.NewDomainError("IDENTIFIER_ALREADY_ASSIGNED", "Identifier has already been assigned")

// Kind names the family an identifier belongs to
type Kind string

const (
	KindAdmission Kind = "ADMISSION"
	KindStaff     Kind = "STAFF"
	KindReceipt   Kind = "RECEIPT"
)

// Scope is one counter namespace. Key identifies the counter row; Prefix and
// Width define how a sequence value is rendered.
type Scope struct {
	Kind   Kind
	Key    string
	Prefix string
	Width  int
}

// AdmissionScope is branch-scoped: WAKR0001
func AdmissionScope(branchCode string) Scope {
	prefix := leading(branchCode, 4)
	return Scope{Kind: KindAdmission, Key: "admission:" + prefix, Prefix: prefix, Width: 4}
}

// StaffScope is organization-scoped: KIC001
func StaffScope(orgCode string) Scope {
	prefix := leading(orgCode, 3)
	return Scope{Kind: KindStaff, Key: "staff:" + prefix, Prefix: prefix, Width: 3}
}

// ReceiptScope is scoped by organization and collection month: KIC-2024-12-0001
func ReceiptScope(orgCode string, on time.Time) Scope {
	prefix := fmt.Sprintf("%s-%04d-%02d-", strings.ToUpper(strings.TrimSpace(orgCode)), on.Year(), int(on.Month()))
	return Scope{Kind: KindReceipt, Key: "receipt:" + strings.TrimSuffix(prefix, "-"), Prefix: prefix, Width: 4}
}

// Format renders n in this scope
func (s Scope) Format(n int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, n)
}

// Parse extracts the sequence value from an identifier of this scope.
// ok is false when the identifier does not belong to the scope.
func (s Scope) Parse(identifier string) (n int64, ok bool) {
	if !strings.HasPrefix(identifier, s.Prefix) {
		return 0, false
	}
	suffix := identifier[len(s.Prefix):]
	if suffix == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// HighestIn returns the largest sequence value among identifiers that belong
// to the scope, or 0 when none do
func (s Scope) HighestIn(identifiers []string) int64 {
	var highest int64
	for _, id := range identifiers {
		if n, ok := s.Parse(id); ok && n > highest {
			highest = n
		}
	}
	return highest
}

func leading(code string, n int) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) > n {
		return code[:n]
	}
	return code
}
