package report

import (
	"fmt"
	"strings"
)

// Side selects which cluster's PVC list to retrieve.
type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
	SideBoth   Side = "both"
)

var Sides = []string{string(SideSource), string(SideTarget), string(SideBoth)}

func ParseSide(s string) (Side, error) {
	switch side := Side(s); side {
	case SideSource, SideTarget, SideBoth:
		return side, nil
	}

	return "", fmt.Errorf("unknown side %q, must be one of: %s", s, strings.Join(Sides, ", "))
}

func (s Side) IncludesSource() bool {
	return s == SideSource || s == SideBoth
}

func (s Side) IncludesTarget() bool {
	return s == SideTarget || s == SideBoth
}
