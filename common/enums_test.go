package common

import (
	"errors"
	"testing"
)

func TestOutputFmt_String(t *testing.T) {
	tests := []struct {
		fmt      OutputFmt
		expected string
	}{
		{OutputFmtText, "text"},
		{OutputFmtProtobuf, "protobuf"},
		{OutputFmt(99), "OutputFmt(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.fmt.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOutputFmt_Binary(t *testing.T) {
	if OutputFmtText.Binary() {
		t.Error("text output should not be binary")
	}
	if !OutputFmtProtobuf.Binary() {
		t.Error("protobuf output should be binary")
	}
}

func TestParseOutputFmt(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  OutputFmt
		shouldErr bool
	}{
		{"text lowercase", "text", OutputFmtText, false},
		{"PROTOBUF uppercase", "PROTOBUF", OutputFmtProtobuf, false},
		{"protobuf", "protobuf", OutputFmtProtobuf, false},
		{"invalid", "json", OutputFmt(0), true},
		{"empty", "", OutputFmt(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutputFmt(tt.input)
			if tt.shouldErr {
				if !errors.Is(err, ErrInvalidOutputFmt) {
					t.Errorf("Expected ErrInvalidOutputFmt, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ParseOutputFmt(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestErrorPolicy_IsValid(t *testing.T) {
	tests := []struct {
		policy ErrorPolicy
		valid  bool
	}{
		{ErrorPolicySkip, true},
		{ErrorPolicyAbort, true},
		{ErrorPolicy(7), false},
		{ErrorPolicy(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			if got := tt.policy.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestErrorPolicy_TextRoundTrip(t *testing.T) {
	for _, name := range ErrorPolicyNames() {
		var p ErrorPolicy
		if err := p.UnmarshalText([]byte(name)); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", name, err)
		}
		out, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		if string(out) != name {
			t.Errorf("round trip of %q gave %q", name, out)
		}
	}

	var p ErrorPolicy
	if err := p.UnmarshalText([]byte("retry")); !errors.Is(err, ErrInvalidErrorPolicy) {
		t.Errorf("UnmarshalText(retry) error = %v, want ErrInvalidErrorPolicy", err)
	}
}

func TestMustParseErrorPolicy_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParseErrorPolicy() should panic for invalid name")
		}
	}()
	MustParseErrorPolicy("later")
}

func TestChunkCoord_String(t *testing.T) {
	if got := (ChunkCoord{X: -5, Z: 100}).String(); got != "(-5, 100)" {
		t.Errorf("String() = %q, want (-5, 100)", got)
	}
}
