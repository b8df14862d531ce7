package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"arcsched/internal/model"
)

// DefaultLanguage is used when no supported language matches a request.
const DefaultLanguage = "en"

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	supported []language.Tag
	matcher   language.Matcher
)

func init() {
	tags, err := register(localeFS)
	if err != nil {
		panic(fmt.Sprintf("i18n: load embedded catalogs: %v", err))
	}
	supported = tags
	matcher = language.NewMatcher(supported)
}

// register parses every locales/*.yaml file and registers its messages with
// x/text/message. The default language is always first in the result.
func register(fsys fs.FS) ([]language.Tag, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	tags := make([]language.Tag, 0, len(paths))
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: locale %q: %w", path, file.Locale, err)
		}
		for key, value := range file.Messages {
			if err := message.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("catalog %s: key %q: %w", path, key, err)
			}
		}
		if tag.String() == DefaultLanguage {
			tags = append([]language.Tag{tag}, tags...)
		} else {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 || tags[0].String() != DefaultLanguage {
		return nil, fmt.Errorf("default language %s is not defined in catalogs", DefaultLanguage)
	}
	return tags, nil
}

// Supported returns the languages with a catalog, default first.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Resolve picks the best supported language for a BCP 47 string such as
// "es-MX" or an Accept-Language header value.
func Resolve(lang string) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return supported[0]
	}
	wanted, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(wanted) == 0 {
		return supported[0]
	}
	_, idx, conf := matcher.Match(wanted...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// Localizer is the minimal message-printer contract used for labels.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Translator prints catalog messages for one language.
type Translator struct {
	*message.Printer
	tag language.Tag
}

// New returns a Translator for the best match of lang.
func New(lang string) *Translator {
	tag := Resolve(lang)
	return &Translator{Printer: message.NewPrinter(tag), tag: tag}
}

// Tag returns the resolved language.
func (t *Translator) Tag() language.Tag {
	return t.tag
}

// Upper upper-cases s with the language's casing rules.
func (t *Translator) Upper(s string) string {
	return cases.Upper(t.tag).String(s)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// EventKey is the catalog key for an event label.
func EventKey(e model.EventKind) string {
	return "event." + slug(string(e))
}

// LocationKey is the catalog key for a location label.
func LocationKey(l model.Location) string {
	return "location." + slug(string(l))
}

func EventLabel(loc Localizer, e model.EventKind) string {
	return loc.Sprintf(EventKey(e))
}

func LocationLabel(loc Localizer, l model.Location) string {
	return loc.Sprintf(LocationKey(l))
}

// HitLabel renders the first hit as "<event> @ <location>", with a "(+n)"
// suffix when more hits share the hour. It returns "" for no hits.
func HitLabel(loc Localizer, hits []model.Hit) string {
	if len(hits) == 0 {
		return ""
	}
	first := hits[0]
	label := EventLabel(loc, first.Event) + " @ " + LocationLabel(loc, first.Location)
	if len(hits) > 1 {
		label += " (+" + strconv.Itoa(len(hits)-1) + ")"
	}
	return label
}
