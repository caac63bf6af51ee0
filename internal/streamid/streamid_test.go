// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package streamid

import "testing"

func TestValidate_EmptySentinel(t *testing.T) {
	stringCodec := Codec[string]{Format: FormatString, Empty: ""}
	if err := Validate(stringCodec, ""); err != ErrEmpty {
		t.Fatalf("Validate(empty string) = %v, want ErrEmpty", err)
	}
	if err := Validate(stringCodec, "stream-1"); err != nil {
		t.Fatalf("Validate(non-empty) = %v, want nil", err)
	}

	numericCodec := Codec[uint32]{Format: FormatNumeric, Empty: 0}
	if err := Validate(numericCodec, uint32(0)); err != ErrEmpty {
		t.Fatalf("Validate(0) = %v, want ErrEmpty", err)
	}
	if err := Validate(numericCodec, uint32(7)); err != nil {
		t.Fatalf("Validate(7) = %v, want nil", err)
	}
}

func TestFormat_String(t *testing.T) {
	if FormatString.String() != "string" {
		t.Fatalf("FormatString.String() = %q, want string", FormatString.String())
	}
	if FormatNumeric.String() != "numeric" {
		t.Fatalf("FormatNumeric.String() = %q, want numeric", FormatNumeric.String())
	}
}
