package slug

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Other Post":         "other-post",
		"  Hello,  World!  ": "hello-world",
		"already-slugged":    "already-slugged",
		"C++ & Go 1.25":      "c-go-1-25",
		"---":                "",
		"":                   "",
		"Café Society":       "caf-society",
		"snake_case_name":    "snake-case-name",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("Other POST"); got != "other post" {
		t.Errorf("Fold = %q, want %q", got, "other post")
	}
	if got := Fold("ÉCOLE"); got != "école" {
		t.Errorf("Fold = %q, want %q", got, "école")
	}
}
