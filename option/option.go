// Package option defines the stretch engine options and their display
// names.
//
// Options are grouped, every group has a default value which is zero.
// Options of different groups are merged with bitwise OR:
//
//	set := option.Merge(option.ChannelsTogether, option.EngineFiner)
//
// Only non-default options have names. Names are used to derive the output
// file names of the sweep:
//
//	option.Suffix([]option.Flag{option.ChannelsTogether, option.EngineFiner})
//	// -ChannelsTogether-EngineFiner
package option

import (
	"errors"
	"fmt"
	"strings"
)

// Flag is a single engine option.
type Flag uint32

// Set is a union of flags.
type Set uint32

// Engine options. Values of each group are mutually exclusive.
const (
	ProcessOffline  Flag = 0x00000000
	ProcessRealTime Flag = 0x00000001

	StretchElastic Flag = 0x00000000
	StretchPrecise Flag = 0x00000010

	TransientsCrisp  Flag = 0x00000000
	TransientsMixed  Flag = 0x00000100
	TransientsSmooth Flag = 0x00000200

	DetectorCompound   Flag = 0x00000000
	DetectorPercussive Flag = 0x00000400
	DetectorSoft       Flag = 0x00000800

	PhaseLaminar     Flag = 0x00000000
	PhaseIndependent Flag = 0x00002000

	ThreadingAuto   Flag = 0x00000000
	ThreadingNever  Flag = 0x00010000
	ThreadingAlways Flag = 0x00020000

	WindowStandard Flag = 0x00000000
	WindowShort    Flag = 0x00100000
	WindowLong     Flag = 0x00200000

	SmoothingOff Flag = 0x00000000
	SmoothingOn  Flag = 0x00800000

	FormantShifted   Flag = 0x00000000
	FormantPreserved Flag = 0x01000000

	PitchHighSpeed       Flag = 0x00000000
	PitchHighQuality     Flag = 0x02000000
	PitchHighConsistency Flag = 0x04000000

	ChannelsApart    Flag = 0x00000000
	ChannelsTogether Flag = 0x10000000

	EngineFaster Flag = 0x00000000
	EngineFiner  Flag = 0x20000000
)

// ErrUnknownOption is returned when option name cannot be parsed.
var ErrUnknownOption = errors.New("unknown option")

// named lists non-default flags in display order.
var named = []struct {
	Flag
	name string
}{
	{ProcessRealTime, "ProcessRealTime"},
	{StretchPrecise, "StretchPrecise"},
	{TransientsMixed, "TransientsMixed"},
	{TransientsSmooth, "TransientsSmooth"},
	{DetectorPercussive, "DetectorPercussive"},
	{DetectorSoft, "DetectorSoft"},
	{PhaseIndependent, "PhaseIndependent"},
	{ThreadingNever, "ThreadingNever"},
	{ThreadingAlways, "ThreadingAlways"},
	{WindowShort, "WindowShort"},
	{WindowLong, "WindowLong"},
	{SmoothingOn, "SmoothingOn"},
	{FormantPreserved, "FormantPreserved"},
	{PitchHighQuality, "PitchHighQuality"},
	{PitchHighConsistency, "PitchHighConsistency"},
	{ChannelsTogether, "ChannelsTogether"},
	{EngineFiner, "EngineFiner"},
}

// defaults can be parsed, but have no display names.
var defaults = []string{
	"ProcessOffline",
	"StretchElastic",
	"TransientsCrisp",
	"DetectorCompound",
	"PhaseLaminar",
	"ThreadingAuto",
	"WindowStandard",
	"SmoothingOff",
	"FormantShifted",
	"PitchHighSpeed",
	"ChannelsApart",
	"EngineFaster",
}

// Name returns display name of the flag. Default and unknown flags don't
// have names.
func Name(f Flag) (string, bool) {
	for _, n := range named {
		if n.Flag == f {
			return n.name, true
		}
	}
	return "", false
}

// String returns display name of the flag or its hex value.
func (f Flag) String() string {
	if name, ok := Name(f); ok {
		return name
	}
	return fmt.Sprintf("0x%08x", uint32(f))
}

// Parse returns the flag with provided name.
func Parse(name string) (Flag, error) {
	for _, n := range named {
		if n.name == name {
			return n.Flag, nil
		}
	}
	for _, d := range defaults {
		if d == name {
			return 0, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownOption)
}

// Suffix returns dash-prefixed names of flags in provided order. Flags
// without names are skipped.
func Suffix(flags []Flag) string {
	var b strings.Builder
	for _, f := range flags {
		if name, ok := Name(f); ok {
			b.WriteString("-")
			b.WriteString(name)
		}
	}
	return b.String()
}

// Merge returns the union of flags. Real-time processing is always set,
// because the engine is driven block by block.
func Merge(flags ...Flag) Set {
	s := Set(ProcessRealTime)
	for _, f := range flags {
		s |= Set(f)
	}
	return s
}

// Has returns true if non-default flag is set.
func (s Set) Has(f Flag) bool {
	return f != 0 && Set(f)&s == Set(f)
}

// Flags returns named flags of the set in display order.
func (s Set) Flags() []Flag {
	var flags []Flag
	for _, n := range named {
		if s.Has(n.Flag) {
			flags = append(flags, n.Flag)
		}
	}
	return flags
}

// String returns names of the set flags joined with "|".
func (s Set) String() string {
	flags := s.Flags()
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}
