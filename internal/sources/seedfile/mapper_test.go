package seedfile

import (
	"testing"
)

func TestMapWikis(t *testing.T) {
	config := &SeedConfig{Wikis: []WikiEntry{
		{Name: "Wikipedia", APIURL: "https://en.wikipedia.org/w/api.php"},
		{Name: "Private", APIURL: "https://wiki.example/w/api.php", Username: "bot", Password: "pw"},
	}}

	wikis, err := NewMapper().MapWikis(config)
	if err != nil {
		t.Fatalf("MapWikis() failed: %v", err)
	}
	if len(wikis) != 2 {
		t.Fatalf("MapWikis() = %d wikis, want 2", len(wikis))
	}
	if wikis[0].Name != "Wikipedia" || wikis[0].RequiresAuth() {
		t.Errorf("first wiki = %+v", wikis[0])
	}
	if !wikis[1].RequiresAuth() {
		t.Error("credentialed entry did not map to an authenticated wiki")
	}
}

func TestMapWikisRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry WikiEntry
	}{
		{"missing name", WikiEntry{APIURL: "https://wiki.example/w/api.php"}},
		{"blank name", WikiEntry{Name: "   ", APIURL: "https://wiki.example/w/api.php"}},
		{"missing url", WikiEntry{Name: "Broken"}},
		{"bad scheme", WikiEntry{Name: "Broken", APIURL: "ftp://wiki.example/w/api.php"}},
		{"no host", WikiEntry{Name: "Broken", APIURL: "https:///w/api.php"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &SeedConfig{Wikis: []WikiEntry{tt.entry}}
			if _, err := NewMapper().MapWikis(config); err == nil {
				t.Errorf("MapWikis() accepted %+v", tt.entry)
			}
		})
	}
}
