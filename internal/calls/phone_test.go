package calls

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "national", raw: "0912 345 678", want: "+84912345678"},
		{name: "country code", raw: "84912345678", want: "+84912345678"},
		{name: "plus country code", raw: "+84 (91) 234-5678", want: "+84912345678"},
		{name: "subscriber only", raw: "912345678", want: "+84912345678"},
		{name: "empty", raw: "", wantErr: ErrInvalidPhone},
		{name: "letters only", raw: "n/a", wantErr: ErrInvalidPhone},
		{name: "too long", raw: "0123456789012345678", wantErr: ErrInvalidPhone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NormalizePhone(%q) err = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
