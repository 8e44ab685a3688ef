package catalogurl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want Triple
	}{
		{"movie", "https://x.test/en/movie/ABC-123", Triple{catalog.PageTypeMovie, "ABC-123", 1}},
		{"movie page 3", "https://x.test/en/movie/ABC-123/page/3", Triple{catalog.PageTypeMovie, "ABC-123", 3}},
		{"http star", "http://mirror.test/cn/star/8a2b/page/12", Triple{catalog.PageTypeStar, "8a2b", 12}},
		{"search", "https://x.test/ja/search/foo%20bar", Triple{catalog.PageTypeSearch, "foo%20bar", 1}},
		{"page zero kept", "https://x.test/en/genre/g1/page/0", Triple{catalog.PageTypeGenre, "g1", 0}},
		{"unknown page type", "https://x.test/en/notareal/thing", Sentinel},
		{"missing locale", "https://x.test/movie", Sentinel},
		{"empty", "", Sentinel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Decode(tc.url)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want != Sentinel, got.Valid())
		})
	}
}

func TestSentinelShape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, catalog.PageTypeNone, Sentinel.PageType)
	assert.Equal(t, "", Sentinel.Keyword)
	assert.Equal(t, -1, Sentinel.Page)
}

func TestEncode(t *testing.T) {
	t.Parallel()

	c := Codec{Site: "https://mirror.test/", Country: "cn"}
	tests := []struct {
		name     string
		pageType catalog.PageType
		keyword  string
		page     int
		want     string
	}{
		{"root", catalog.PageTypeNone, "", 1, "https://mirror.test/cn"},
		{"root page 2", catalog.PageTypeNone, "", 2, "https://mirror.test/cn/page/2"},
		{"movie", catalog.PageTypeMovie, "abc", 1, "https://mirror.test/cn/movie/abc"},
		{"studio page", catalog.PageTypeStudio, "s1", 4, "https://mirror.test/cn/studio/s1/page/4"},
		{"search keyword", catalog.PageTypeSearch, "foo", 2, "https://mirror.test/cn/search/foo/page/2"},
		{"search no keyword", catalog.PageTypeSearch, "", 3, "https://mirror.test/cn/page/3"},
		{"page type only", catalog.PageTypeGenre, "", 1, "https://mirror.test/cn/genre"},
		{"negative page", catalog.PageTypeStar, "x", -1, "https://mirror.test/cn/star/x"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, c.Encode(tc.pageType, tc.keyword, tc.page))
		})
	}
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	t.Parallel()

	c := Codec{Site: "https://mirror.test", Country: "en"}
	got := Decode(c.Encode(catalog.PageTypeLabel, "lbl", 7))
	assert.Equal(t, Triple{catalog.PageTypeLabel, "lbl", 7}, got)
}

func TestEncodeLocal(t *testing.T) {
	t.Parallel()

	c := Codec{}
	assert.Equal(t, "http://127.0.0.1:5000", c.Root())
	assert.Equal(t, "http://127.0.0.1:5000/search/foo%20bar/page/2",
		c.EncodeLocal(catalog.PageTypeSearch, "foo bar", 2))
	assert.Equal(t, "http://127.0.0.1:5000/search", c.EncodeLocal(catalog.PageTypeSearch, "", 1))

	c.LocalAddr = "localhost:8080"
	assert.Equal(t, "http://localhost:8080/genre/a%2Fb", c.EncodeLocal(catalog.PageTypeGenre, "a/b", 0))
}
