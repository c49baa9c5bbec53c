package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLang = "en"

// Translator resolves message keys for one language, falling back to English
// and finally to the key itself.
type Translator struct {
	lang         string
	translations map[string]string
	fallback     map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	if langCode == "" {
		langCode = DefaultLang
	}
	translations, err := readLocale(fsys, langCode)
	if err != nil {
		return nil, err
	}
	t := &Translator{lang: langCode, translations: translations}
	if langCode != DefaultLang {
		if fb, err := readLocale(fsys, DefaultLang); err == nil {
			t.fallback = fb
		}
	}
	return t, nil
}

// New loads an embedded locale.
func New(langCode string) (*Translator, error) {
	return NewTranslator(LocalesFS, langCode)
}

// Default is the embedded English catalogue.
func Default() *Translator {
	t, err := New(DefaultLang)
	if err != nil {
		panic(fmt.Sprintf("i18n: embedded %s locale: %v", DefaultLang, err))
	}
	return t
}

func readLocale(fsys fs.FS, langCode string) (map[string]string, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return parse(data)
}

func parse(data []byte) (map[string]string, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return translations, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	translations, err := parse(data)
	if err != nil {
		return nil, err
	}
	return &Translator{lang: "test", translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T formats the message for key with args. Unknown keys come back verbatim.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		if format, ok = t.fallback[key]; !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
