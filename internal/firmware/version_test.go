package firmware

import (
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"four components", "6.2.5.16868", false},
		{"single component", "7", false},
		{"many components", "1.2.3.4.5.6", false},
		{"zero components", "0.0.0.0", false},
		{"empty", "", true},
		{"negative component", "1.-2.3", true},
		{"non-numeric component", "1.2.x", true},
		{"trailing dot", "1.2.", true},
		{"leading dot", ".1.2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && v.String() != tt.input {
				t.Errorf("ParseVersion(%q).String() = %q", tt.input, v.String())
			}
			if err != nil && !v.IsZero() {
				t.Errorf("ParseVersion(%q) returned non-zero Version with error", tt.input)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "6.2.5.16868", "6.2.5.16868", 0},
		{"numeric not lexicographic", "6.2.5.16868", "6.2.5.9", 1},
		{"major wins", "7.0.0.0", "6.9.9.99999", 1},
		{"shorter padded with zeros", "1.2", "1.2.0.0", 0},
		{"shorter but larger", "1.3", "1.2.9.9", 1},
		{"missing trailing less", "1.2", "1.2.0.1", -1},
		{"single components", "2", "10", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := MustParseVersion(tt.a), MustParseVersion(tt.b)
			if got := Compare(a, b); got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			// Antisymmetry holds for every pair.
			if got := Compare(b, a); got != -tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestCompareTotalOrder(t *testing.T) {
	versions := []string{"1.0", "1.0.0.1", "1.2.5.9", "1.2.5.16868", "2", "2.0.0.1", "10.0"}

	for _, s := range versions {
		v := MustParseVersion(s)
		if Compare(v, v) != 0 {
			t.Errorf("Compare(%s, %s) != 0", s, s)
		}
	}

	// Transitivity over the ascending list: every earlier entry compares
	// less than every later one.
	for i := 0; i < len(versions); i++ {
		for j := i + 1; j < len(versions); j++ {
			a, b := MustParseVersion(versions[i]), MustParseVersion(versions[j])
			if Compare(a, b) != -1 {
				t.Errorf("Compare(%s, %s) != -1", versions[i], versions[j])
			}
		}
	}
}

func TestSortVersions(t *testing.T) {
	versions := []Version{
		MustParseVersion("6.2.5.16868"),
		MustParseVersion("6.2.5.9"),
		MustParseVersion("7.0.0.1"),
		MustParseVersion("6.2.5.100"),
	}

	SortVersions(versions)

	want := []string{"6.2.5.9", "6.2.5.100", "6.2.5.16868", "7.0.0.1"}
	for i, w := range want {
		if versions[i].String() != w {
			t.Fatalf("SortVersions order = %v, want %v", VersionStrings(versions), want)
		}
	}
}

func TestParseChannel(t *testing.T) {
	for _, c := range Channels {
		got, err := ParseChannel(string(c))
		if err != nil || got != c {
			t.Errorf("ParseChannel(%q) = %q, %v", c, got, err)
		}
	}

	for _, bad := range []string{"", "lts", "stable", "LTS "} {
		if _, err := ParseChannel(bad); err == nil {
			t.Errorf("ParseChannel(%q) succeeded, want error", bad)
		}
	}
}
