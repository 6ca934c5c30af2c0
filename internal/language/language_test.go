package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", Auto, false},
		{"auto", Auto, false},
		{"AUTO", Auto, false},
		{"en", "en", false},
		{"EN", "en", false},
		{"pt-BR", "pt", false},
		{" es ", "es", false},
		{"deu", "de", false},
		{"!!", "", true},
		{"zz9", "", true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Normalize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTarget(t *testing.T) {
	if got, err := NormalizeTarget("es"); err != nil || got != "es" {
		t.Errorf("NormalizeTarget(es) = %q, %v", got, err)
	}
	if _, err := NormalizeTarget("auto"); err == nil {
		t.Error("NormalizeTarget(auto) must fail")
	}
	if _, err := NormalizeTarget(""); err == nil {
		t.Error("NormalizeTarget(\"\") must fail")
	}
}
