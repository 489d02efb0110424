package config

import (
	"github.com/nao1215/clarityfilter/internal/scope"
	"github.com/nao1215/clarityfilter/internal/settings"
)

// SiteConfig holds overrides for one site.
type SiteConfig struct {
	// Mode overrides the concealment mode on this site.
	Mode string `yaml:"mode,omitempty"`

	// PixelCellSize overrides the pixelate cell size on this site.
	PixelCellSize int `yaml:"pixelCellSize,omitempty"`

	// ExtraTerms are filtered on this site in addition to the stored terms.
	ExtraTerms []string `yaml:"extraTerms,omitempty"`

	// Disabled turns filtering off on this site.
	Disabled bool `yaml:"disabled,omitempty"`
}

// File represents the structure of the .clarityfilter configuration file.
type File struct {
	// Engine names the regexp engine, used when --engine is not given.
	Engine string `yaml:"engine,omitempty"`

	// Sites maps hosts to their overrides. A key also covers its
	// subdomains; the most specific key wins.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the overrides for host, merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.ExtraTerms = append([]string(nil), cf.Defaults.ExtraTerms...)

	site, ok := cf.lookup(host)
	if !ok {
		return result
	}
	if site.Mode != "" {
		result.Mode = site.Mode
	}
	if site.PixelCellSize != 0 {
		result.PixelCellSize = site.PixelCellSize
	}
	result.ExtraTerms = append(result.ExtraTerms, site.ExtraTerms...)
	if site.Disabled {
		result.Disabled = true
	}
	return result
}

// lookup finds the most specific site key covering host.
func (cf *File) lookup(host string) (SiteConfig, bool) {
	if host == "" {
		return SiteConfig{}, false
	}
	var (
		best    SiteConfig
		bestLen = -1
	)
	for key, site := range cf.Sites {
		pattern, err := scope.Host(key)
		if err != nil || !scope.Match(host, pattern) {
			continue
		}
		if len(pattern) > bestLen {
			best, bestLen = site, len(pattern)
		}
	}
	return best, bestLen >= 0
}

// Apply returns s with the overrides for the page at pageURL applied.
func (cf *File) Apply(s settings.Settings, pageURL string) settings.Settings {
	host, _ := scope.Host(pageURL)
	site := cf.GetSiteConfig(host)

	out := s.Clone()
	if m, err := settings.ParseMode(site.Mode); err == nil && site.Mode != "" {
		out.Mode = m
	}
	if site.PixelCellSize != 0 {
		out.PixelCellSize = site.PixelCellSize
	}
	out.Terms = append(out.Terms, site.ExtraTerms...)
	if site.Disabled {
		out.Enabled = false
	}
	return settings.Normalize(out)
}
