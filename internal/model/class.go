package model

import (
	"strings"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
)

// Class is a fare tier.  The set is closed: economy, business, first.
type Class string

const (
	Economy  Class = "economy"
	Business Class = "business"
	First    Class = "first"
)

// Classes lists every valid fare tier in ascending price order.
var Classes = []Class{Economy, Business, First}

// ParseClass normalises s and returns the matching Class or an
// InvalidClass error.
func ParseClass(s string) (Class, error) {
	c := Class(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperr.InvalidClass(s)
	}
	return c, nil
}

// Valid reports whether c is one of the fixed fare tiers.
func (c Class) Valid() bool {
	switch c {
	case Economy, Business, First:
		return true
	}
	return false
}

func (c Class) String() string { return string(c) }
