package config

// This file provides pflag-compatible Value adapters so the enum types
// (ScanOrder, FusionMode, ColorMode) can be registered with FlagSet.Var.
// Each adapter validates on Set, which keeps bad values out of Config before
// Validate ever runs. Exported because flag registration lives in the cli
// package.

import (
	"fmt"
	"strings"
)

// ScanOrderValue adapts a *ScanOrder for flag registration.
type ScanOrderValue struct{ P *ScanOrder }

func (v *ScanOrderValue) String() string { return string(*v.P) }
func (v *ScanOrderValue) Type() string   { return "order" }
func (v *ScanOrderValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "snake":
		*v.P = OrderSnakeByRows
	case "rows":
		*v.P = OrderRowByRow
	default:
		return fmt.Errorf("invalid scan order %q (use 'snake' or 'rows')", s)
	}
	return nil
}

// FusionValue adapts a *FusionMode for flag registration.
type FusionValue struct{ P *FusionMode }

func (v *FusionValue) String() string { return string(*v.P) }
func (v *FusionValue) Type() string   { return "mode" }
func (v *FusionValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "linear":
		*v.P = FusionLinear
	case "average":
		*v.P = FusionAverage
	case "max":
		*v.P = FusionMax
	default:
		return fmt.Errorf("invalid fusion mode %q (use 'linear', 'average' or 'max')", s)
	}
	return nil
}

// ColorModeValue adapts a *ColorMode for flag registration.
type ColorModeValue struct{ P *ColorMode }

func (v *ColorModeValue) String() string { return string(*v.P) }
func (v *ColorModeValue) Type() string   { return "when" }
func (v *ColorModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "auto":
		*v.P = ColorAuto
	case "always":
		*v.P = ColorAlways
	case "never":
		*v.P = ColorNever
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}
