package geo

import (
	"errors"
	"strings"
	"testing"

	"github.com/stormlens/tileindex/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		bounds  Bounds
		wantErr string // empty means valid
	}{
		{"valid", Bounds{West: -77.5, South: 18.0, East: -77.4, North: 18.05}, ""},
		{"valid full extent", Bounds{West: -180, South: -90, East: 180, North: 90}, ""},
		{"west out of range", Bounds{West: -181, South: 0, East: 1, North: 1}, "invalid west longitude"},
		{"east out of range", Bounds{West: 0, South: 0, East: 180.5, North: 1}, "invalid east longitude"},
		{"south out of range", Bounds{West: 0, South: -91, East: 1, North: 1}, "invalid south latitude"},
		{"north out of range", Bounds{West: 0, South: 0, East: 1, North: 90.01}, "invalid north latitude"},
		{"west equals east", Bounds{West: 5, South: 0, East: 5, North: 1}, "west must be less than east"},
		{"west greater than east", Bounds{West: 6, South: 0, East: 5, North: 1}, "west must be less than east"},
		{"south equals north", Bounds{West: 0, South: 3, East: 1, North: 3}, "south must be less than north"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.bounds.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error %v is not ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestCenter(t *testing.T) {
	b := Bounds{West: -77.5, South: 18.0, East: -77.4, North: 18.05}
	lat, lon := b.Center()
	if lat != 18.025 {
		t.Errorf("expected center lat 18.025, got %v", lat)
	}
	if lon != -77.45 {
		t.Errorf("expected center lon -77.45, got %v", lon)
	}
}

func TestCenter_Idempotent(t *testing.T) {
	b := Bounds{West: 10, South: 20, East: 30, North: 40}
	lat1, lon1 := b.Center()
	lat2, lon2 := b.Center()
	if lat1 != lat2 || lon1 != lon2 {
		t.Error("center derivation is not deterministic")
	}
}

func TestContains(t *testing.T) {
	b := Bounds{West: -78, South: 17.5, East: -76, North: 18.7}

	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"inside", 18.0, -77.0, true},
		{"on west edge", 18.0, -78.0, true},
		{"on north edge", 18.7, -77.0, true},
		{"corner", 17.5, -76.0, true},
		{"north of box", 19.0, -77.0, false},
		{"west of box", 18.0, -79.0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Contains(tc.lat, tc.lon); got != tc.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tc.lat, tc.lon, got, tc.want)
			}
		})
	}
}
