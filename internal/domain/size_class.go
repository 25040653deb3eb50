package domain

import (
	"fmt"
	"strings"
)

// SizeClass is the ordinal size of a vehicle or a slot. A vehicle fits any
// slot whose class is greater than or equal to its own.
type SizeClass int

const (
	SizeSmall SizeClass = iota
	SizeMedium
	SizeLarge
)

var sizeClassNames = map[SizeClass]string{
	SizeSmall:  "small",
	SizeMedium: "medium",
	SizeLarge:  "large",
}

func (c SizeClass) String() string {
	if name, ok := sizeClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("SizeClass(%d)", int(c))
}

func (c SizeClass) Valid() bool {
	_, ok := sizeClassNames[c]
	return ok
}

// Fits reports whether a vehicle of class c can use a slot of class slot.
func (c SizeClass) Fits(slot SizeClass) bool {
	return slot >= c
}

// ParseSizeClass accepts "small", "medium" or "large" in any case, or the
// ordinal 0, 1 or 2.
func ParseSizeClass(s string) (SizeClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small", "0":
		return SizeSmall, nil
	case "medium", "1":
		return SizeMedium, nil
	case "large", "2":
		return SizeLarge, nil
	}
	return 0, fmt.Errorf("unknown size class %q", s)
}

