package reminder

import "testing"

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2:00PM", "14:00", true},
		{"2:00 PM", "14:00", true},
		{"2:00pm", "14:00", true},
		{"  11:30 am ", "11:30", true},
		{"12:00 AM", "00:00", true},
		{"12:15 PM", "12:15", true},
		{"garbage", "", false},
		{"", "", false},
		{"25:00 PM", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeTime(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NormalizeTime(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
