package locale

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// Catalog holds the message templates of every bundled language
type Catalog struct {
	messages        map[string]map[string]string // language -> flattened key -> template
	defaultLanguage string
}

// Load parses the embedded catalogs. defaultLocale is used when a key is
// missing from the requested language.
func Load(defaultLocale string) (*Catalog, error) {
	entries, err := catalogFS.ReadDir("catalog")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogs: %w", err)
	}

	c := &Catalog{
		messages:        make(map[string]map[string]string, len(entries)),
		defaultLanguage: language(defaultLocale),
	}
	for _, entry := range entries {
		data, err := catalogFS.ReadFile(path.Join("catalog", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", entry.Name(), err)
		}
		if err := c.add(strings.TrimSuffix(entry.Name(), ".yaml"), data); err != nil {
			return nil, err
		}
	}

	if _, ok := c.messages[c.defaultLanguage]; !ok {
		return nil, fmt.Errorf("no catalog for default locale %q", defaultLocale)
	}
	return c, nil
}

func (c *Catalog) add(lang string, data []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", lang, err)
	}

	flat := make(map[string]string)
	if err := flatten("", tree, flat); err != nil {
		return fmt.Errorf("catalog %s: %w", lang, err)
	}
	c.messages[lang] = flat
	return nil
}

func flatten(prefix string, node map[string]any, out map[string]string) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch value := v.(type) {
		case string:
			out[key] = value
		case map[string]any:
			if err := flatten(key, value, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("key %s: unsupported value %T", key, v)
		}
	}
	return nil
}

// Render looks up key for locale and fills its {name} placeholders. Unknown
// locales fall back to the default language and unknown keys render as the key.
func (c *Catalog) Render(key, locale string, vars map[string]string) string {
	template, ok := c.lookup(key, locale)
	if !ok {
		log.WithFields(log.Fields{
			"key":    key,
			"locale": locale,
		}).Warn("Missing localization key")
		return key
	}
	if len(vars) == 0 {
		return template
	}

	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Has reports whether key exists in the default language
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[c.defaultLanguage][key]
	return ok
}

// Languages lists the bundled languages
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Keys lists the keys of one language
func (c *Catalog) Keys(lang string) []string {
	keys := make([]string, 0, len(c.messages[lang]))
	for key := range c.messages[lang] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) lookup(key, locale string) (string, bool) {
	if messages, ok := c.messages[language(locale)]; ok {
		if template, ok := messages[key]; ok {
			return template, true
		}
	}
	template, ok := c.messages[c.defaultLanguage][key]
	return template, ok
}

// language reduces a platform locale such as "en-US" or "pt_BR" to its base language
func language(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return locale
}
