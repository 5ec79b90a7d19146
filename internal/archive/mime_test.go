package archive

import "testing"

// TestClassify проверяет таблицу расширение → MIME-тип.
func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"data.json", "application/json"},
		{"readme.txt", "text/plain"},
		{"photo.jpg", "image/jpeg"},
		{"photo.jpeg", "image/jpeg"},
		{"logo.png", "image/png"},
		{"archive.tar", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
		{"trailingdot.", "application/octet-stream"},
		{"many.dots.in.name.json", "application/json"},
	}
	for _, c := range cases {
		if got := Classify(c.name); got != c.want {
			t.Errorf("Classify(%q) = %q, ожидался %q", c.name, got, c.want)
		}
	}
}

// TestClassify_CaseInsensitive проверяет нечувствительность к регистру.
func TestClassify_CaseInsensitive(t *testing.T) {
	if got := Classify("SCAN.PDF"); got != "application/pdf" {
		t.Errorf("Classify(SCAN.PDF) = %q, ожидался application/pdf", got)
	}
	if got := Classify("photo.JpEg"); got != "image/jpeg" {
		t.Errorf("Classify(photo.JpEg) = %q, ожидался image/jpeg", got)
	}
}

// TestClassify_Idempotent проверяет детерминированность классификации.
func TestClassify_Idempotent(t *testing.T) {
	names := []string{"a.pdf", "b.unknown", "c"}
	for _, name := range names {
		if Classify(name) != Classify(name) {
			t.Errorf("Classify(%q) не детерминирована", name)
		}
	}
}
