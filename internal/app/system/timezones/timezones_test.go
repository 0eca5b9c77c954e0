package timezones

import "testing"

func TestLoad(t *testing.T) {
	if err := Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Should be idempotent
	if err := Load(); err != nil {
		t.Fatalf("Load() second call error = %v", err)
	}
}

func TestAll(t *testing.T) {
	zones, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}

	if len(zones) == 0 {
		t.Error("All() returned empty slice")
	}

	for _, z := range zones {
		if z.ID == "" {
			t.Error("Zone with empty ID found")
		}
		if z.Label == "" {
			t.Errorf("Zone %s has empty Label", z.ID)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"Asia/Jakarta", true},
		{"Asia/Makassar", true},
		{"America/New_York", true},
		{"Europe/London", true},
		{"UTC", true},
		{"Invalid/Timezone", false},
		{"", false},
		{"Local", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := Valid(tt.id)
			if got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := Label("Asia/Jakarta"); got != "Jakarta (WIB)" {
		t.Errorf("Label(Asia/Jakarta) = %q, want %q", got, "Jakarta (WIB)")
	}

	// Invalid timezone should return the ID itself
	if got := Label("Invalid/Timezone"); got != "Invalid/Timezone" {
		t.Errorf("Label(Invalid/Timezone) = %q, want 'Invalid/Timezone'", got)
	}
}

func TestLocation(t *testing.T) {
	loc, err := Location("Asia/Jakarta")
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "Asia/Jakarta" {
		t.Errorf("Location().String() = %q", loc.String())
	}

	// Known to the runtime but not curated
	if _, err := Location("Antarctica/Troll"); err == nil {
		t.Error("Location(Antarctica/Troll) should be rejected")
	}
	if _, err := Location("Local"); err == nil {
		t.Error("Location(Local) should be rejected")
	}
}
