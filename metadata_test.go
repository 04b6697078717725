package shelf

import "testing"

func TestDefaultFields(t *testing.T) {
	d := DefaultFields()
	if d.Author != "Unknown Author" {
		t.Errorf("Author = %q", d.Author)
	}
	if d.Language != "en" {
		t.Errorf("Language = %q", d.Language)
	}
	if d.Publisher != "" {
		t.Errorf("Publisher = %q, want empty", d.Publisher)
	}
	if d.UntitledBook != "Untitled Book" {
		t.Errorf("UntitledBook = %q", d.UntitledBook)
	}
}

func TestDefaultFields_ReturnsCopy(t *testing.T) {
	d := DefaultFields()
	d.Author = "Mutated"
	if DefaultFields().Author != "Unknown Author" {
		t.Error("mutating the returned value changed the defaults")
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/uploads/books/1700000000000-123456789-moby_dick.epub", "Moby Dick"},
		{"the-old-man-and-the-sea.epub", "The Old Man And The Sea"},
		{"/a/b/War_and-Peace.EPUB", "War And Peace"},
		{"12-34-.epub", "Untitled Book"},
		{".epub", "Untitled Book"},
		{"", "Untitled Book"},
		{"2001-a_space_odyssey.epub", "2001 A Space Odyssey"},
		{"already Capital.epub", "Already Capital"},
	}
	for _, tt := range tests {
		if got := TitleFromFilename(tt.path); got != tt.want {
			t.Errorf("TitleFromFilename(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
