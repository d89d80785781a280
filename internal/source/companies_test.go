package source

import "testing"

func TestMatchesCompanies(t *testing.T) {
	cases := []struct {
		name    string
		company string
		targets []string
		want    bool
	}{
		{"exact match", "Globex", []string{"Globex"}, true},
		{"case insensitive", "GLOBEX", []string{"globex"}, true},
		{"substring match", "Globex Corporation", []string{"Globex"}, true},
		{"no match", "Initech", []string{"Globex"}, false},
		{"second target matches", "Initech", []string{"Globex", "Initech"}, true},
		{"empty targets match everything", "Anyone", nil, true},
		{"blank target ignored", "Initech", []string{"", "Globex"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := matchesCompanies(c.company, c.targets); got != c.want {
				t.Errorf("matchesCompanies(%q, %v) = %v, want %v", c.company, c.targets, got, c.want)
			}
		})
	}
}
