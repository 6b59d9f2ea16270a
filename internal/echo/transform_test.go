package echo

import "testing"

func TestTransform(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii words", "hello world", "Dlrow Olleh"},
		{"mixed case", "HeLLo", "Olleh"},
		{"cyrillic", "Привет мир", "Рим Тевирп"},
		{"empty", "", ""},
		{"single rune", "ж", "Ж"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Transform([]byte(tt.in)))
			if got != tt.want+Signature {
				t.Errorf("Transform(%q) = %q, want %q", tt.in, got, tt.want+Signature)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	b := newBackoff(10, 40)

	for i, want := range []int64{10, 20, 40, 40} {
		got := int64(b.Next())
		lo, hi := want*8/10-1, want*12/10
		if got < lo || got > hi {
			t.Errorf("Next() #%d = %d, want %d±20%%", i, got, want)
		}
	}

	b.Reset()
	if got := int64(b.Next()); got < 7 || got > 12 {
		t.Errorf("Next() after Reset = %d, want 10±20%%", got)
	}
}
