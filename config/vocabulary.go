package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pricelens/backend/internal/usecase"
)

// LoadVocabulary reads brand, category, color and promo word tables from a
// YAML file. Tables missing from the file keep their built-in values; an
// empty path returns the built-in vocabulary.
func LoadVocabulary(path string) (usecase.Vocabulary, error) {
	if path == "" {
		return usecase.DefaultVocabulary(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return usecase.Vocabulary{}, fmt.Errorf("error reading vocabulary file: %w", err)
	}

	var vocab usecase.Vocabulary
	if err := v.Unmarshal(&vocab); err != nil {
		return usecase.Vocabulary{}, fmt.Errorf("unable to decode vocabulary: %w", err)
	}

	for i, b := range vocab.Brands {
		if b.Name == "" {
			return usecase.Vocabulary{}, fmt.Errorf("brand entry %d has no name", i)
		}
	}

	return vocab.WithDefaults(), nil
}
