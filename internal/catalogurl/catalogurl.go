// Package catalogurl converts between catalog URLs and the
// (page type, keyword, page number) triple that drives scraping and local
// serving.
package catalogurl

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/avmoo-catalog/internal/catalog"
)

// DefaultLocalAddr is where the local site listens unless configured otherwise.
const DefaultLocalAddr = "127.0.0.1:5000"

var catalogURLPattern = regexp.MustCompile(
	`https?://[^/]+/[^/]+/(movie|star|genre|series|studio|label|director|search)/([^/]+)(/page/(\d+))?`,
)

// Triple identifies one page of the catalog.
type Triple struct {
	PageType catalog.PageType `json:"page_type"`
	Keyword  string           `json:"keyword"`
	Page     int              `json:"page"`
}

// Sentinel is returned by Decode for URLs it does not recognize.
var Sentinel = Triple{PageType: catalog.PageTypeNone, Keyword: "", Page: -1}

// Valid reports whether t came from a recognized URL.
func (t Triple) Valid() bool {
	return t.PageType != catalog.PageTypeNone
}

// Decode parses a remote catalog URL. Unrecognized shapes yield Sentinel; a
// missing page segment yields page 1. A page segment is reported as written,
// so /page/0 decodes to page 0.
func Decode(rawURL string) Triple {
	if rawURL == "" {
		return Sentinel
	}
	m := catalogURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return Sentinel
	}
	page := 1
	if m[4] != "" {
		n, err := strconv.Atoi(m[4])
		if err != nil {
			return Sentinel
		}
		page = n
	}
	return Triple{PageType: catalog.PageType(m[1]), Keyword: m[2], Page: page}
}

// Codec builds remote and local catalog URLs.
type Codec struct {
	// Site is the remote mirror root, e.g. https://avmoo.example.
	Site string
	// Country is the locale segment that follows the site root.
	Country string
	// LocalAddr is host:port of the local site.
	LocalAddr string
}

// Encode builds the remote URL for a page. The page segment is omitted for
// page numbers up to 1. A search page type is only appended together with a
// non-empty keyword.
func (c Codec) Encode(pageType catalog.PageType, keyword string, page int) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(c.Site, "/"))
	b.WriteString("/")
	b.WriteString(c.Country)
	if pageType == catalog.PageTypeSearch {
		if keyword != "" {
			b.WriteString("/search/")
			b.WriteString(keyword)
		}
	} else {
		if pageType != catalog.PageTypeNone {
			b.WriteString("/")
			b.WriteString(string(pageType))
		}
		if keyword != "" {
			b.WriteString("/")
			b.WriteString(keyword)
		}
	}
	writePage(&b, page)
	return b.String()
}

// EncodeLocal builds the local site URL for a page. The keyword segment is
// percent-encoded.
func (c Codec) EncodeLocal(pageType catalog.PageType, keyword string, page int) string {
	addr := c.LocalAddr
	if addr == "" {
		addr = DefaultLocalAddr
	}
	var b strings.Builder
	b.WriteString("http://")
	b.WriteString(addr)
	if pageType != catalog.PageTypeNone {
		b.WriteString("/")
		b.WriteString(string(pageType))
	}
	if keyword != "" {
		b.WriteString("/")
		b.WriteString(url.PathEscape(keyword))
	}
	writePage(&b, page)
	return b.String()
}

// Root returns the local site root.
func (c Codec) Root() string {
	return c.EncodeLocal(catalog.PageTypeNone, "", 1)
}

func writePage(b *strings.Builder, page int) {
	if page > 1 {
		fmt.Fprintf(b, "/page/%d", page)
	}
}
