package config

import (
	"fmt"
	"sort"
	"strings"
)

// normalizer maps loosely written config strings onto enum values.
type normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	validKeys    []string
}

func newNormalizer[T comparable](values map[string]T, defaultValue T) *normalizer[T] {
	n := &normalizer[T]{values: make(map[string]T, len(values)), defaultValue: defaultValue}
	for k, v := range values {
		key := normalizeKey(k)
		n.values[key] = v
		n.validKeys = append(n.validKeys, key)
	}
	sort.Strings(n.validKeys)
	return n
}

// Normalize returns the default value on unknown input.
func (n *normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v
	}
	return n.defaultValue
}

func (n *normalizer[T]) Validate(raw string) error {
	if _, ok := n.values[normalizeKey(raw)]; ok {
		return nil
	}
	return fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TraversalMode selects how deep include discovery goes.
type TraversalMode string

const (
	// TraversalFixed rewrites two include levels below the top documents and
	// only inspects the third.
	TraversalFixed TraversalMode = "fixed"
	// TraversalWorklist follows includes until no new document is found.
	TraversalWorklist TraversalMode = "worklist"
)

var traversalModes = newNormalizer(map[string]TraversalMode{
	"fixed":    TraversalFixed,
	"worklist": TraversalWorklist,
}, TraversalFixed)

func NormalizeTraversalMode(raw string) TraversalMode {
	return traversalModes.Normalize(raw)
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = newNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevels.Normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = newNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormats.Normalize(raw)
}
