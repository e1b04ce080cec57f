package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want error
	}{
		{"valid text", Item{Content: "hi", Type: TypeText}, nil},
		{"valid image", Item{Content: "data", Type: TypeImage}, nil},
		{"empty content", Item{Type: TypeText}, ErrEmptyContent},
		{"unknown type", Item{Content: "hi", Type: "video"}, ErrInvalidType},
		{"missing type", Item{Content: "hi"}, ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Validate())
		})
	}
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, TypeLink, DetectType("https://example.com/a?b=c"))
	assert.Equal(t, TypeLink, DetectType("  http://example.com \n"))
	assert.Equal(t, TypeText, DetectType("see https://example.com"))
	assert.Equal(t, TypeText, DetectType("ftp://example.com"))
	assert.Equal(t, TypeText, DetectType(""))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"Work", "ideas"}, NormalizeTags([]string{" Work ", "ideas", "work", "", "IDEAS"}))
	assert.Nil(t, NormalizeTags(nil))
	assert.Nil(t, NormalizeTags([]string{"", "  "}))
}

func TestTitle(t *testing.T) {
	item := Item{Content: "first line\nsecond line"}
	assert.Equal(t, "first line", item.Title())

	item.Filename = "notes.txt"
	assert.Equal(t, "notes.txt", item.Title())

	item.DisplayName = "My notes"
	assert.Equal(t, "My notes", item.Title())
}

func TestHasTag(t *testing.T) {
	item := Item{Tags: []string{"Work"}}
	assert.True(t, item.HasTag("work"))
	assert.False(t, item.HasTag("home"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "日本…", Truncate("日本語テキスト", 3))
	assert.Equal(t, "", Truncate("anything", 0))
}

func TestShare(t *testing.T) {
	s := Share{Token: "tok", Permission: PermissionReadOnly}
	assert.Equal(t, "https://clips.example.com/shared/tok", s.URL("https://clips.example.com/"))
	assert.False(t, s.CanWrite())

	s.Permission = PermissionReadWrite
	assert.True(t, s.CanWrite())

	assert.True(t, ValidPermission(PermissionReadOnly))
	assert.False(t, ValidPermission("owner"))
}

func TestPostValidate(t *testing.T) {
	post := Post{CreatorID: "c1", ContentURL: "https://example.com/post"}
	assert.NoError(t, post.Validate())

	post.CreatorID = ""
	assert.Equal(t, ErrMissingCreator, post.Validate())

	post.CreatorID = "c1"
	post.ContentURL = "javascript:alert(1)"
	assert.Equal(t, ErrInvalidURL, post.Validate())

	assert.False(t, IsWebURL("https://"))
	assert.True(t, IsWebURL("http://localhost:8080/x"))
}

func TestLinkPreviewEmpty(t *testing.T) {
	p := LinkPreview{URL: "https://example.com", SiteName: "Example"}
	assert.True(t, p.Empty())
	p.Title = "Hello"
	assert.False(t, p.Empty())
}
