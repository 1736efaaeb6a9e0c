package store

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var defaultDocument = sync.OnceValues(func() (Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(defaultsYAML, &raw); err != nil {
		return nil, fmt.Errorf("parsing default content: %w", err)
	}
	n, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	return Document(n.(map[string]any)), nil
})

// DefaultDocument returns a fresh copy of the built-in content skeleton.
func DefaultDocument() Document {
	doc, err := defaultDocument()
	if err != nil {
		// defaults.yaml is embedded at build time; a parse failure is a
		// programming error.
		panic(err)
	}
	return doc.Clone()
}
