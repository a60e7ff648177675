package types

import (
	"math/big"

	"github.com/google/uuid"
)

// Entity id prefixes
const (
	ClientIDPrefix   = "C"
	EmployeeIDPrefix = "P"
	VisitIDPrefix    = "V"
)

// NewID returns a short prefixed identifier derived from a random UUID,
// e.g. "V421387". Collisions are caught by the primary key constraint.
func NewID(prefix string) string {
	u := uuid.New()
	digits := new(big.Int).SetBytes(u[:]).String()
	if len(digits) > 6 {
		digits = digits[:6]
	}
	return prefix + digits
}
