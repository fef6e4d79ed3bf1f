package nfl

import "testing"

func TestRegistryRoundTrip(t *testing.T) {
	r := NewTeamRegistry()

	teams := r.Teams()
	if len(teams) != 32 {
		t.Fatalf("Expected 32 franchises, got %d", len(teams))
	}

	// Every franchise resolves bidirectionally.
	for _, team := range teams {
		name, ok := r.Name(team.Abbr)
		if !ok || name != team.Name {
			t.Errorf("Name(%s): got %q ok=%v, want %q", team.Abbr, name, ok, team.Name)
		}
		abbr, ok := r.Abbr(team.Name)
		if !ok || abbr != team.Abbr {
			t.Errorf("Abbr(%s): got %q ok=%v, want %q", team.Name, abbr, ok, team.Abbr)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewTeamRegistry()

	tests := []struct {
		input string
		want  string
	}{
		{"KC", "KC"},
		{"kc", "KC"},
		{"Kansas City Chiefs", "KC"},
		{"kansas city chiefs", "KC"},
		{"  Kansas   City  Chiefs ", "KC"},

		// Historical names and abbreviations map to the current franchise.
		{"Oakland Raiders", "LV"},
		{"OAK", "LV"},
		{"San Diego Chargers", "LAC"},
		{"SD", "LAC"},
		{"St. Louis Rams", "LA"},
		{"STL", "LA"},
		{"Washington Redskins", "WAS"},
		{"Washington Football Team", "WAS"},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(tt.input)
		if !ok {
			t.Errorf("Resolve(%q): not found", tt.input)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q): got %s, want %s", tt.input, got, tt.want)
		}
	}

	if _, ok := r.Resolve("London Monarchs"); ok {
		t.Error("Resolve of unknown team should fail")
	}
}

func TestMatchupContext(t *testing.T) {
	r := NewTeamRegistry()

	tests := []struct {
		a, b     string
		division bool
		conf     bool
	}{
		{"KC", "DEN", true, true},    // AFC West
		{"KC", "BAL", false, true},   // both AFC
		{"KC", "SF", false, false},   // cross-conference
		{"DAL", "PHI", true, true},   // NFC East
		{"OAK", "KC", true, true},    // historical abbr, still AFC West
		{"KC", "UNKNOWN", false, false},
	}
	for _, tt := range tests {
		if got := r.SameDivision(tt.a, tt.b); got != tt.division {
			t.Errorf("SameDivision(%s, %s): got %v, want %v", tt.a, tt.b, got, tt.division)
		}
		if got := r.SameConference(tt.a, tt.b); got != tt.conf {
			t.Errorf("SameConference(%s, %s): got %v, want %v", tt.a, tt.b, got, tt.conf)
		}
	}
}
