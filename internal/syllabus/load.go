package syllabus

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the syllabus file (yaml, json or toml, picked by extension).
// The file holds a single "areas" list of {area, quota} entries.
func Load(path string) (*Syllabus, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("syllabus path is empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read syllabus file: %w", err)
	}
	return fromViper(v)
}

// LoadReader is Load for an already opened source, format being "yaml", "json" or "toml".
func LoadReader(r io.Reader, format string) (*Syllabus, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read syllabus: %w", err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Syllabus, error) {
	var entries []Entry
	if err := v.UnmarshalKey("areas", &entries); err != nil {
		return nil, fmt.Errorf("decode syllabus areas: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptySyllabus
	}
	return New(entries)
}
