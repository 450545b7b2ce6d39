// Package record checks CDF record headers before a parser reads any field,
// and provides the small field helpers parsers share.
package record

import (
	"fmt"
	"slices"
	"strings"
)

// Type is the integer record type tag stored in every record header.
type Type int32

const (
	TypeCDR    Type = 1
	TypeGDR    Type = 2
	TypeRVDR   Type = 3
	TypeADR    Type = 4
	TypeAgrEDR Type = 5
	TypeVXR    Type = 6
	TypeVVR    Type = 7
	TypeZVDR   Type = 8
	TypeAzEDR  Type = 9
	TypeCCR    Type = 10
	TypeCPR    Type = 11
	TypeSPR    Type = 12
	TypeCVVR   Type = 13
	TypeUIR    Type = -1
)

var typeNames = map[Type]string{
	TypeCDR:    "CDR",
	TypeGDR:    "GDR",
	TypeRVDR:   "rVDR",
	TypeADR:    "ADR",
	TypeAgrEDR: "AgrEDR",
	TypeVXR:    "VXR",
	TypeVVR:    "VVR",
	TypeZVDR:   "zVDR",
	TypeAzEDR:  "AzEDR",
	TypeCCR:    "CCR",
	TypeCPR:    "CPR",
	TypeSPR:    "SPR",
	TypeCVVR:   "CVVR",
	TypeUIR:    "UIR",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// Kind enumerates the record variants a parser can build. Each kind carries
// the fixed set of tags it accepts.
type Kind uint8

const (
	// KindAny is not committed to a tag and accepts every record.
	KindAny Kind = iota
	KindCDR
	KindGDR
	// KindVDR covers both r- and z-variable descriptors.
	KindVDR
	KindADR
	// KindAEDR covers both global and z-variable attribute entries.
	KindAEDR
	KindVXR
	KindVVR
	KindCCR
	KindCPR
	KindSPR
	KindCVVR
	KindUIR
	numKinds
)

type kindInfo struct {
	name     string
	accepted []Type
}

var kinds = [numKinds]kindInfo{
	KindAny:  {name: "any"},
	KindCDR:  {name: "cdr", accepted: []Type{TypeCDR}},
	KindGDR:  {name: "gdr", accepted: []Type{TypeGDR}},
	KindVDR:  {name: "vdr", accepted: []Type{TypeRVDR, TypeZVDR}},
	KindADR:  {name: "adr", accepted: []Type{TypeADR}},
	KindAEDR: {name: "aedr", accepted: []Type{TypeAgrEDR, TypeAzEDR}},
	KindVXR:  {name: "vxr", accepted: []Type{TypeVXR}},
	KindVVR:  {name: "vvr", accepted: []Type{TypeVVR}},
	KindCCR:  {name: "ccr", accepted: []Type{TypeCCR}},
	KindCPR:  {name: "cpr", accepted: []Type{TypeCPR}},
	KindSPR:  {name: "spr", accepted: []Type{TypeSPR}},
	KindCVVR: {name: "cvvr", accepted: []Type{TypeCVVR}},
	KindUIR:  {name: "uir", accepted: []Type{TypeUIR}},
}

func (k Kind) valid() bool {
	return k < numKinds
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kinds[k].name
}

// Accepts returns a copy of the tags this kind accepts. Nil means any tag.
func (k Kind) Accepts() []Type {
	if !k.valid() {
		return nil
	}
	return slices.Clone(kinds[k].accepted)
}

// Check validates the plan's tag against the kind.
func (k Kind) Check(plan Plan) error {
	if !k.valid() {
		return fmt.Errorf("record: unknown kind %d", uint8(k))
	}
	return CheckType(plan, kinds[k].accepted...)
}

// ParseKind resolves a kind by its lower case name, e.g. "vdr".
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := range numKinds {
		if kinds[k].name == name {
			return k, nil
		}
	}
	return KindAny, fmt.Errorf("record: unknown kind %q", name)
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := range numKinds {
		out = append(out, k)
	}
	return out
}
