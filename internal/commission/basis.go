package commission

import (
	"errors"
	"fmt"
	"strings"
)

// BasisMode selects which nominal the percentage is applied to.
type BasisMode string

const (
	BasisNet   BasisMode = "net_after_reconciliation"
	BasisGross BasisMode = "gross_before_reconciliation"

	DefaultBasisMode = BasisNet
)

var ErrUnknownBasisMode = errors.New("unknown basis mode")

func (m BasisMode) Validate() error {
	switch m {
	case BasisNet, BasisGross:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownBasisMode, string(m))
}

// ParseBasisMode accepts the full names as well as "net" and "gross".
func ParseBasisMode(s string) (BasisMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "net", string(BasisNet):
		return BasisNet, nil
	case "gross", string(BasisGross):
		return BasisGross, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBasisMode, s)
}
