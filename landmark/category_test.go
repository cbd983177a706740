package landmark

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"Ancient Roman amphitheater", Historical},
		{"city art museum", Cultural},
		{"small fishing village", Other},
		{"A glacial LAKE surrounded by forest", Natural},
		{"The university was founded in 1477", Educational},
		{"Gothic cathedral", Religious},
		{"A shopping centre with 200 stores", Commercial},
		{"", Other},
		{"A 13th-century stone bridge", Historical},
		{"The historical centre of the town", Historical},
		{"Ruins of a Benedictine monastery", Historical},
		{"Two art galleries and a sculpture garden", Cultural},
		{"National parks of Sweden", Natural},

		// Common words that merely contain a keyword.
		{"Småby is a small fishing village, part of Örebro Municipality.", Other},
		{"The old farmhouse was restored in 1990.", Other},
		{"A large parking area next to the highway.", Other},
		{"Stuttgart Hauptbahnhof is a railway station.", Other},
		{"The fire department started operating in 1902.", Other},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_DeclarationOrderBreaksTies(t *testing.T) {
	// "medieval" is Historical, "museum" is Cultural. Historical is declared first.
	text := "A museum housed in a medieval building"
	if got := Classify(text); got != Historical {
		t.Errorf("Classify(%q) = %q, want %q", text, got, Historical)
	}

	// Cultural beats Religious for the same reason.
	text = "Concert hall in a former church"
	if got := Classify(text); got != Cultural {
		t.Errorf("Classify(%q) = %q, want %q", text, got, Cultural)
	}
}

func TestParseCategories(t *testing.T) {
	got := ParseCategories(" historical,CULTURAL,bogus,Historical ,")
	want := []Category{Historical, Cultural}
	if len(got) != len(want) {
		t.Fatalf("ParseCategories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseCategories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := ParseCategories("   "); got != nil {
		t.Errorf("ParseCategories(blank) = %v, want nil", got)
	}
}

func TestAllCategories_EndsWithOther(t *testing.T) {
	all := AllCategories()
	if len(all) != 7 {
		t.Fatalf("len(AllCategories()) = %d, want 7", len(all))
	}
	if all[len(all)-1] != Other {
		t.Errorf("last category = %q, want %q", all[len(all)-1], Other)
	}
}
