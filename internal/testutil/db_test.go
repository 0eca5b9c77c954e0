package testutil

import (
	"strings"
	"testing"
)

func TestDBName(t *testing.T) {
	if got, want := DBName("TestCheckIn/late"), "strataattend_test_TestCheckIn_late"; got != want {
		t.Errorf("DBName() = %q, want %q", got, want)
	}

	long := DBName("Test" + strings.Repeat("x", 100))
	if len(long) != maxDBName {
		t.Errorf("len(DBName(long)) = %d, want %d", len(long), maxDBName)
	}
	if !strings.HasPrefix(long, DBPrefix+"_Test") {
		t.Errorf("DBName(long) = %q, lost prefix", long)
	}
}
