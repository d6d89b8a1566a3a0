package dataset

import "testing"

func TestEnrich(t *testing.T) {
	ds := Load("Title,Views,Favorites\nA,100,10\nB,3,1\nC,0,5\nD,,2\nE,50,\n")
	enriched := ds.Enrich()

	if !enriched.HasColumn(EngagementColumn) {
		t.Fatal("enriched dataset missing engagement column")
	}
	if enriched.Headers[len(enriched.Headers)-1] != EngagementColumn {
		t.Errorf("engagement should be the last header, got %v", enriched.Headers)
	}

	tests := []struct {
		row  int
		want string
	}{
		{0, "0.1"},
		{1, "0.333333"}, // rounded to 6 decimal places
		{2, ""},         // views == 0
		{3, ""},         // views unparseable
		{4, ""},         // favorites unparseable
	}
	for _, tt := range tests {
		if got := enriched.Rows[tt.row][EngagementColumn]; got != tt.want {
			t.Errorf("row %d engagement = %q, want %q", tt.row, got, tt.want)
		}
	}

	// Receiver is untouched.
	if ds.HasColumn(EngagementColumn) {
		t.Error("Enrich mutated the receiver")
	}
}

func TestEnrichIdempotent(t *testing.T) {
	ds := Load("Title,Views,Favorites\nA,100,10\n")
	once := ds.Enrich()
	twice := once.Enrich()
	if twice != once {
		t.Error("second Enrich should return the receiver unchanged")
	}
	if n := len(twice.Headers); n != 4 {
		t.Errorf("headers = %d, want 4", n)
	}
}

func TestEnrichMissingSourceColumns(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no favorites", "Title,Views\nA,100\n"},
		{"no views", "Title,Favorites\nA,10\n"},
		{"neither", "Title,Other\nA,x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Load(tt.raw)
			if got := ds.Enrich(); got != ds {
				t.Error("Enrich without source columns should return the receiver")
			}
		})
	}
}

func TestEnrichRecognizesAliases(t *testing.T) {
	ds := Load("name,view count,likes\nA,10,5\n")
	enriched := ds.Enrich()
	if got := enriched.Rows[0][EngagementColumn]; got != "0.5" {
		t.Errorf("engagement = %q, want %q", got, "0.5")
	}
}
