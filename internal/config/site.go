package config

// SiteConfig holds per-site overrides for audit behavior. Keys in the
// config file are hostnames; the matching entry is merged over Defaults
// when auditing that site.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are additional HTTP headers for requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// Zero means use the global value.
	Depth int `yaml:"depth,omitempty"`

	// ExcludePatterns are URL path fragments to skip during crawling.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`
}

// File represents the structure of the .linkstatus configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults is applied to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the merged configuration for a hostname.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if site, ok := cf.Sites[host]; ok {
		if site.Cookie != "" {
			result.Cookie = site.Cookie
		}
		if site.Depth != 0 {
			result.Depth = site.Depth
		}
		if len(site.Headers) > 0 {
			// Copy before merging; result.Headers aliases the defaults map.
			merged := make(map[string]string, len(result.Headers)+len(site.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range site.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
		if len(site.ExcludePatterns) > 0 {
			result.ExcludePatterns = site.ExcludePatterns
		}
	}

	return result
}
