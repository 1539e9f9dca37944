package service

import (
	"fmt"
)

// Format selects the encoding used when generating a secret value.
type Format string

const (
	FormatAlphanumeric Format = "alphanumeric"
	FormatBase64       Format = "base64"
	FormatHex          Format = "hex"
)

// Part selects which half of a broker-issued credential pair a dynamic
// slot resolves to.
type Part string

const (
	PartAccess Part = "access"
	PartSecret Part = "secret"
)

// SlotKind discriminates the Secret union.
type SlotKind string

const (
	SlotLoad     SlotKind = "load"
	SlotGenerate SlotKind = "generate"
	SlotDynamic  SlotKind = "dynamic"
)

// Secret is a single secret-slot declaration. Exactly the fields relevant
// to Kind are populated; the rest are zero.
type Secret struct {
	Kind SlotKind

	// generate
	Format     Format
	Length     int
	Regenerate bool

	// dynamic
	Role string
	Part Part
}

// rawSecret mirrors the on-disk shape: a table whose "kind" key selects
// the variant. go-toml decodes each [secrets.<name>] table into rawSecret
// directly (rawSpec.Secrets); a slot written as a bare string such as
// "load" is not accepted and makes ParseSpec fail.
type rawSecret struct {
	Kind       string `toml:"kind"`
	Format     string `toml:"format,omitempty"`
	Length     int    `toml:"length,omitempty"`
	Regenerate bool   `toml:"regenerate,omitempty"`
	Role       string `toml:"role,omitempty"`
	Part       string `toml:"part,omitempty"`
}

// secretFromRaw validates and converts a decoded raw table into a Secret.
// Unknown slot kinds are rejected, per spec: "Unknown slot kinds reject
// the whole spec."
func secretFromRaw(r rawSecret) (Secret, error) {
	switch SlotKind(r.Kind) {
	case SlotLoad:
		return Secret{Kind: SlotLoad}, nil
	case SlotGenerate:
		format := Format(r.Format)
		switch format {
		case FormatAlphanumeric, FormatBase64, FormatHex:
		default:
			return Secret{}, fmt.Errorf("generate secret: unknown format %q", r.Format)
		}
		if r.Length <= 0 {
			return Secret{}, fmt.Errorf("generate secret: length must be > 0")
		}
		return Secret{
			Kind:       SlotGenerate,
			Format:     format,
			Length:     r.Length,
			Regenerate: r.Regenerate,
		}, nil
	case SlotDynamic:
		if r.Role == "" {
			return Secret{}, fmt.Errorf("dynamic secret: role is required")
		}
		part := Part(r.Part)
		switch part {
		case PartAccess, PartSecret:
		default:
			return Secret{}, fmt.Errorf("dynamic secret: unknown part %q", r.Part)
		}
		return Secret{Kind: SlotDynamic, Role: r.Role, Part: part}, nil
	default:
		return Secret{}, fmt.Errorf("unknown secret slot kind %q", r.Kind)
	}
}
