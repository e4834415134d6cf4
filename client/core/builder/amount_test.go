package builder

import (
	"errors"
	"testing"
)

func TestParseSOL(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		want    Lamports
		wantErr error
	}{
		{"one SOL", "1", 1_000_000_000, nil},
		{"fraction", "0.001", 1_000_000, nil},
		{"leading dot", ".5", 500_000_000, nil},
		{"one lamport", "0.000000001", 1, nil},
		{"whitespace", "  2.25 ", 2_250_000_000, nil},
		{"zero", "0", 0, nil},
		{"too precise", "0.0000000001", 0, ErrInvalidAmount},
		{"negative", "-1", 0, ErrNegativeAmount},
		{"garbage", "abc", 0, ErrInvalidAmount},
		{"empty", "", 0, ErrInvalidAmount},
		{"lone dot", ".", 0, ErrInvalidAmount},
		{"overflow", "18446744074", 0, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSOL(tt.str)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseSOL(%q) error = %v, want %v", tt.str, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSOL(%q) unexpected error: %v", tt.str, err)
			}
			if got != tt.want {
				t.Errorf("ParseSOL(%q) = %d, want %d", tt.str, got, tt.want)
			}
		})
	}
}

func TestLamportsString(t *testing.T) {
	tests := []struct {
		in   Lamports
		want string
	}{
		{0, "0 SOL"},
		{FromSOL(2), "2 SOL"},
		{500_000_000, "0.5 SOL"},
		{1_000_000, "0.001 SOL"},
		{1, "0.000000001 SOL"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Lamports(%d).String() = %q, want %q", uint64(tt.in), got, tt.want)
		}
	}
}
