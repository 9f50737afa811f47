package contact

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "9876543210", "9876543210"},
		{"spaces", " 98765 43210 ", "9876543210"},
		{"country code", "+91 98765-43210", "9876543210"},
		{"bare country code", "919876543210", "9876543210"},
		{"trunk zero", "09876543210", "9876543210"},
		{"short", "12345", "12345"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.in); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	if !Equal(Phone("+91 9876543210"), Phone("9876543210 ")) {
		t.Error("phone variants should be equal after normalisation")
	}
	if !Equal(Email(" Driver@Example.COM"), Email("driver@example.com")) {
		t.Error("email variants should be equal after normalisation")
	}
	if Equal(Phone(""), Phone("")) {
		t.Error("empty contacts must never be equal")
	}
	if Equal(Phone("9876543210"), Email("9876543210")) {
		t.Error("different channels must not be equal")
	}
}

func TestFromFields(t *testing.T) {
	t.Parallel()

	if c := FromFields("98765 43210", "a@b.co"); c.Channel != ChannelPhone {
		t.Errorf("channel = %s, want phone", c.Channel)
	}
	if c := FromFields("", "A@B.co"); c.Channel != ChannelEmail || c.Value != "a@b.co" {
		t.Errorf("got %+v, want normalised email", c)
	}
	if c := FromFields("", ""); !c.IsZero() {
		t.Errorf("got %+v, want zero contact", c)
	}
}
