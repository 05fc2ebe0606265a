package catalog

import (
	"testing"
	"time"

	"github.com/ppiankov/dqlens/internal/models"
)

func TestSystemDMFsCatalog(t *testing.T) {
	dmfs := SystemDMFs()
	if len(dmfs) != 14 {
		t.Fatalf("expected 14 system DMFs, got %d", len(dmfs))
	}

	seen := make(map[string]bool)
	for _, d := range dmfs {
		if seen[d.Name] {
			t.Errorf("duplicate DMF %s", d.Name)
		}
		seen[d.Name] = true

		if _, ok := models.ParseCategory(string(d.Category)); !ok {
			t.Errorf("%s has unknown category %q", d.Name, d.Category)
		}
		if d.Function != "SNOWFLAKE.CORE."+d.Name {
			t.Errorf("%s has unexpected function %q", d.Name, d.Function)
		}
	}
}

func TestSystemDMFsReturnsCopy(t *testing.T) {
	dmfs := SystemDMFs()
	dmfs[0].Name = "MUTATED"

	if SystemDMFs()[0].Name != "BLANK_COUNT" {
		t.Error("catalog was mutated through the returned slice")
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name      string
		wantFound bool
		wantName  string
	}{
		{"NULL_COUNT", true, "NULL_COUNT"},
		{"null_count", true, "NULL_COUNT"},
		{"SNOWFLAKE.CORE.ROW_COUNT", true, "ROW_COUNT"},
		{"  FRESHNESS ", true, "FRESHNESS"},
		{"NOT_A_DMF", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Lookup(tt.name)
			if ok != tt.wantFound {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.name, ok, tt.wantFound)
			}
			if ok && d.Name != tt.wantName {
				t.Errorf("Lookup(%q) = %s, want %s", tt.name, d.Name, tt.wantName)
			}
		})
	}
}

func TestDirection(t *testing.T) {
	for _, name := range []string{"ROW_COUNT", "UNIQUE_COUNT"} {
		d, _ := Lookup(name)
		if d.Direction != AtLeast {
			t.Errorf("%s direction = %s, want at least", name, d.Direction)
		}
	}
	d, _ := Lookup("BLANK_COUNT")
	if d.Direction != AtMost {
		t.Errorf("BLANK_COUNT direction = %s, want at most", d.Direction)
	}
}

func TestByCategory(t *testing.T) {
	counts := CountByCategory()
	want := map[models.Category]int{
		models.CategoryAccuracy:   4,
		models.CategoryFreshness:  2,
		models.CategoryStatistics: 4,
		models.CategoryUniqueness: 3,
		models.CategoryVolume:     1,
	}
	for cat, n := range want {
		if counts[cat] != n {
			t.Errorf("CountByCategory()[%s] = %d, want %d", cat, counts[cat], n)
		}
		if got := len(ByCategory(cat)); got != n {
			t.Errorf("len(ByCategory(%s)) = %d, want %d", cat, got, n)
		}
	}
}

func TestRefreshInterval(t *testing.T) {
	tests := []struct {
		name    string
		want    time.Duration
		wantErr bool
	}{
		{"realtime", 30 * time.Second, false},
		{"Frequent", 5 * time.Minute, false},
		{"standard", 15 * time.Minute, false},
		{"slow", time.Hour, false},
		{"hourly", 0, true},
	}

	for _, tt := range tests {
		got, err := RefreshInterval(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("RefreshInterval(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RefreshInterval(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRefreshPresetNamesOrdered(t *testing.T) {
	names := RefreshPresetNames()
	want := []string{"realtime", "frequent", "standard", "slow"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
