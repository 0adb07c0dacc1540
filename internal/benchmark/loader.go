package benchmark

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/fairvalue/pkg/logger"
)

// Load reads a YAML (or JSON) benchmark table
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a benchmark table
func Parse(data []byte) (*Table, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode benchmark table: %w", err)
	}

	if t.Countries == nil {
		t.Countries = map[string]Country{}
	}
	if t.Industries == nil {
		t.Industries = map[string]Industry{}
	}

	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadOrDefault loads the table at path, falling back to Default when the
// file does not exist. Any other error is returned.
func LoadOrDefault(path string, log *logger.Logger) (*Table, error) {
	t, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Benchmark table %s not found, using defaults", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load benchmark table %s: %w", path, err)
	}

	log.WithFields(map[string]interface{}{
		"path":       path,
		"version":    t.Version,
		"countries":  len(t.Countries),
		"industries": len(t.Industries),
	}).Info("Benchmark table loaded")

	return t, nil
}

// Hash returns the SHA256 of the table's canonical JSON.
// encoding/json sorts map keys, so equal tables hash equally.
func Hash(t *Table) (string, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
