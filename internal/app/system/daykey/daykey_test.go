package daykey

import (
	"testing"
	"time"

	"github.com/dalemusser/strataattend/internal/domain/models"
)

func jakarta(t *testing.T) *Policy {
	t.Helper()
	p, err := Load("Asia/Jakarta")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if p.Location().String() != DefaultZone {
		t.Errorf("default zone = %q, want %q", p.Location().String(), DefaultZone)
	}

	if _, err := Load("Mars/Olympus_Mons"); err == nil {
		t.Error("Load() with unknown zone should fail")
	}
}

func TestNew_NilIsUTC(t *testing.T) {
	p := New(nil)
	if p.Location() != time.UTC {
		t.Errorf("New(nil).Location() = %v, want UTC", p.Location())
	}
}

func TestClassify(t *testing.T) {
	p := jakarta(t)
	loc := p.Location()

	tests := []struct {
		name string
		at   time.Time
		want models.AttendanceStatus
	}{
		{"early morning", time.Date(2025, 1, 15, 6, 0, 0, 0, loc), models.StatusPresent},
		{"08:55", time.Date(2025, 1, 15, 8, 55, 0, 0, loc), models.StatusPresent},
		{"last millisecond before cutoff", time.Date(2025, 1, 15, 8, 59, 59, int(999*time.Millisecond), loc), models.StatusPresent},
		{"exact cutoff", time.Date(2025, 1, 15, 9, 0, 0, 0, loc), models.StatusLate},
		{"one nanosecond after cutoff", time.Date(2025, 1, 15, 9, 0, 0, 1, loc), models.StatusLate},
		{"late evening", time.Date(2025, 1, 15, 23, 59, 59, 0, loc), models.StatusLate},
		{"midnight", time.Date(2025, 1, 15, 0, 0, 0, 0, loc), models.StatusPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Classify(tt.at); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.at, got, tt.want)
			}
		})
	}
}

func TestClassify_UsesReferenceZoneNotInputZone(t *testing.T) {
	p := jakarta(t)

	// 01:30 UTC is 08:30 in Jakarta (UTC+7).
	at := time.Date(2025, 1, 15, 1, 30, 0, 0, time.UTC)
	if got := p.Classify(at); got != models.StatusPresent {
		t.Errorf("Classify(01:30Z) = %q, want present", got)
	}

	// 02:00 UTC is exactly 09:00 in Jakarta.
	at = time.Date(2025, 1, 15, 2, 0, 0, 0, time.UTC)
	if got := p.Classify(at); got != models.StatusLate {
		t.Errorf("Classify(02:00Z) = %q, want late", got)
	}
}

func TestClassify_DSTTransitionDays(t *testing.T) {
	p, err := Load("Europe/London")
	if err != nil {
		t.Fatalf("Load(Europe/London) error = %v", err)
	}
	loc := p.Location()

	tests := []struct {
		name string
		at   time.Time
		want models.AttendanceStatus
	}{
		// 2025-03-30: clocks go 01:00 GMT -> 02:00 BST, the day is 23h long.
		{"spring forward 08:59:59", time.Date(2025, 3, 30, 8, 59, 59, 0, loc), models.StatusPresent},
		{"spring forward 09:00", time.Date(2025, 3, 30, 9, 0, 0, 0, loc), models.StatusLate},
		{"spring forward 09:30", time.Date(2025, 3, 30, 9, 30, 0, 0, loc), models.StatusLate},
		// 2025-10-26: clocks go 02:00 BST -> 01:00 GMT, the day is 25h long.
		{"fall back 08:30", time.Date(2025, 10, 26, 8, 30, 0, 0, loc), models.StatusPresent},
		{"fall back 08:59:59", time.Date(2025, 10, 26, 8, 59, 59, 0, loc), models.StatusPresent},
		{"fall back 09:00", time.Date(2025, 10, 26, 9, 0, 0, 0, loc), models.StatusLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Classify(tt.at); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.at, got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	p := jakarta(t)

	// 18:00 UTC on the 14th is already the 15th in Jakarta.
	at := time.Date(2025, 1, 14, 18, 0, 0, 0, time.UTC)
	if got := p.Key(at); got != "2025-01-15" {
		t.Errorf("Key() = %q, want 2025-01-15", got)
	}

	at = time.Date(2025, 1, 14, 16, 59, 59, 0, time.UTC)
	if got := p.Key(at); got != "2025-01-14" {
		t.Errorf("Key() = %q, want 2025-01-14", got)
	}
}

func TestParse(t *testing.T) {
	p := jakarta(t)

	got, err := p.Parse("2025-02-01")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := time.Date(2025, 2, 1, 0, 0, 0, 0, p.Location())
	if !got.Equal(want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "2025-2-1", "2025-02-30", "01/02/2025", "2025-02-01T00:00:00Z"} {
		if _, err := p.Parse(bad); err != ErrMalformed {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", bad, err)
		}
	}
}

func TestAddDays(t *testing.T) {
	p := jakarta(t)

	tests := []struct {
		key  string
		n    int
		want string
	}{
		{"2025-03-01", -1, "2025-02-28"},
		{"2024-03-01", -1, "2024-02-29"},
		{"2025-01-15", -29, "2024-12-17"},
		{"2025-12-31", 1, "2026-01-01"},
		{"2025-06-10", 0, "2025-06-10"},
	}
	for _, tt := range tests {
		got, err := p.AddDays(tt.key, tt.n)
		if err != nil {
			t.Fatalf("AddDays(%q, %d) error = %v", tt.key, tt.n, err)
		}
		if got != tt.want {
			t.Errorf("AddDays(%q, %d) = %q, want %q", tt.key, tt.n, got, tt.want)
		}
	}
}

func TestClockAndISO(t *testing.T) {
	p := jakarta(t)
	at := time.Date(2025, 1, 15, 1, 5, 0, 0, time.UTC)

	if got := p.Clock(at); got != "08:05" {
		t.Errorf("Clock() = %q, want 08:05", got)
	}
	if got := p.ISO(at); got != "2025-01-15T08:05:00+07:00" {
		t.Errorf("ISO() = %q", got)
	}
}
