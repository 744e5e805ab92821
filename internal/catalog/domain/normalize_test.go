package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fanloremedia/fanlore/internal/catalog/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases and trims", "  DAISO  ", "daiso"},
		{"collapses whitespace", "Blue   Bottle\tCoffee", "blue bottle coffee"},
		{"strips hash numbering", "Tokyo Walking Tour #12", "tokyo walking tour"},
		{"strips ep numbering", "Ramen Adventure ep. 3", "ramen adventure"},
		{"strips episode word", "Onsen Trip Episode 45", "onsen trip"},
		{"strips vol numbering", "Thrift Haul vol.4", "thrift haul"},
		{"strips japanese numbering", "第12回 温泉旅", "温泉旅"},
		{"strips bracketed channel tag", "【Official】Street Food Crawl", "street food crawl"},
		{"strips trailing youtube", "My Osaka Trip - YouTube", "my osaka trip"},
		{"strips shorts marker", "Beach Day #shorts", "beach day"},
		{"combined noise", "【Ch】Night Market Tour #7 - YouTube", "night market tour"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.Normalize(tt.input))
		})
	}
}

func TestIsShortForm(t *testing.T) {
	assert.True(t, domain.IsShortForm("Beach Day #shorts"))
	assert.True(t, domain.IsShortForm("QUICK LOOK #Short"))
	assert.False(t, domain.IsShortForm("Shorts Haul Spring Edition"))
	assert.False(t, domain.IsShortForm("Tokyo Walking Tour #12"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "daiso-harajuku", domain.Slugify("Daiso Harajuku!"))
	assert.Equal(t, "blue-bottle-coffee", domain.Slugify("Blue Bottle Coffee"))
	assert.Equal(t, "tokyo-tower", domain.Slugify("Tokyo-Tower"))

	// Names without ASCII alphanumerics fall back to a stable hash form.
	jp := domain.Slugify("ダイソー")
	assert.Regexp(t, `^n-[0-9a-f]{8}$`, jp)
	assert.Equal(t, jp, domain.Slugify("ダイソー"))
}

func TestDisambiguateSlug(t *testing.T) {
	taken := map[string]bool{"daiso": true, "daiso-2": true}
	got := domain.DisambiguateSlug("daiso", func(s string) bool { return taken[s] })
	assert.Equal(t, "daiso-3", got)

	free := domain.DisambiguateSlug("ramen", func(s string) bool { return false })
	assert.Equal(t, "ramen", free)
}
