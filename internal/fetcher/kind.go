package fetcher

import (
	"fmt"
	"strings"
)

// Kind selects a fetch backend.
type Kind string

const (
	KindChrome        Kind = "chrome"
	KindChromeNoJS    Kind = "chrome-no-js"
	KindChromeNoMedia Kind = "chrome-no-media"
	KindMiniblink     Kind = "miniblink"
	KindHTTP          Kind = "http"
	KindScraper       Kind = "scraper"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindChrome, KindChromeNoJS, KindChromeNoMedia, KindMiniblink, KindHTTP, KindScraper}
}

// ParseKind resolves a mode name. Matching ignores case and surrounding space.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported mode %q", s)
}

// Browser reports whether the kind drives a real browser.
func (k Kind) Browser() bool {
	switch k {
	case KindChrome, KindChromeNoJS, KindChromeNoMedia, KindMiniblink:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
