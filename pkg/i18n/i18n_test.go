package i18n

import "testing"

func TestBundleLanguages(t *testing.T) {
	b := MustBundle("")
	if got := b.Default(); got != "vi" {
		t.Fatalf("Default() = %q, want vi", got)
	}
	langs := b.Languages()
	if len(langs) != 2 {
		t.Fatalf("Languages() = %v, want 2 languages", langs)
	}
}

func TestMatch(t *testing.T) {
	b := MustBundle("vi")
	tests := []struct {
		accept string
		want   string
	}{
		{"", "vi"},
		{"en-US,en;q=0.9", "en"},
		{"vi-VN", "vi"},
		{"fr-FR", "vi"},
		{"!!!", "vi"},
	}
	for _, tt := range tests {
		if got := b.Match(tt.accept); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.accept, got, tt.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	b := MustBundle("")
	vi := b.Localizer("vi")
	en := b.Localizer("en")

	tests := []struct {
		loc  *Localizer
		id   string
		data map[string]any
		want string
	}{
		{vi, "UsersList", nil, "Danh sách nhân viên"},
		{vi, "UsersDetail", nil, "Hồ sơ nhân viên"},
		{en, "UsersList", nil, "Staff"},
		{vi, "RecordCount", map[string]any{"Count": 3}, "3 bản ghi"},
		{en, "RecordCount", map[string]any{"Count": 3}, "3 records"},
		{vi, "NoSuchMessage", nil, "NoSuchMessage"},
	}
	for _, tt := range tests {
		if got := tt.loc.T(tt.id, tt.data); got != tt.want {
			t.Errorf("%s.T(%q) = %q, want %q", tt.loc.Lang(), tt.id, got, tt.want)
		}
	}
}

func TestLocalizerCached(t *testing.T) {
	b := MustBundle("")
	if b.Localizer("en") != b.Localizer("en-GB") {
		t.Error("Localizer() returned different instances for the same matched language")
	}
}

func TestNilLocalizer(t *testing.T) {
	var l *Localizer
	if got := l.T("Home", nil); got != "Home" {
		t.Errorf("nil Localizer T() = %q, want id", got)
	}
}

func TestBadDefaultLanguage(t *testing.T) {
	if _, err := NewBundle("not a language!"); err == nil {
		t.Fatal("NewBundle() with invalid language succeeded")
	}
}
