package store

import "testing"

func TestCacheKeyForNormalizesEquivalentURLs(t *testing.T) {
	variants := []string{
		"https://www.Instagram.com/jane/",
		"http://instagram.com/jane",
		"INSTAGRAM.COM/jane/",
		"  instagram.com/jane  ",
	}
	want := CacheKeyFor(variants[0])
	for _, v := range variants[1:] {
		if got := CacheKeyFor(v); got != want {
			t.Errorf("CacheKeyFor(%q) = %q, want %q (same as %q)", v, got, want, variants[0])
		}
	}
}

func TestCacheKeyForDistinguishesDifferentProfiles(t *testing.T) {
	a := CacheKeyFor("https://instagram.com/jane")
	b := CacheKeyFor("https://instagram.com/john")
	if a == b {
		t.Fatal("expected distinct profiles to hash to distinct keys")
	}
}

func TestNormalizeProfileURLStripsSchemeWWWAndTrailingSlash(t *testing.T) {
	got := normalizeProfileURL("HTTPS://WWW.TikTok.com/@jane/")
	want := "tiktok.com/@jane"
	if got != want {
		t.Fatalf("normalizeProfileURL = %q, want %q", got, want)
	}
}
