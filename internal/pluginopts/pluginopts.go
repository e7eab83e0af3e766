// Package pluginopts parses the "key=value" plugin argument vector, the
// same shape QEMU plugin arguments take. It has no knowledge of what a
// valid key is for any particular core; callers walk the parsed tokens
// themselves.
package pluginopts

import (
	"fmt"
	"strconv"
	"strings"
)

// ConfigError is the install-time configuration error taxonomy. It always
// carries a one-line diagnostic and causes plugin install to return
// non-zero.
type ConfigError struct {
	Opt string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Opt == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Opt, e.Msg)
}

// Token is one parsed "key=value" argument.
type Token struct {
	Key   string
	Value string
	raw   string
}

// Parse splits each element of argv on the first "=", mirroring
// g_strsplit(opt, "=", 2) in the original plugin. An argument with no "="
// is rejected the same way QEMU's plugin arg parser rejects it.
func Parse(argv []string) ([]Token, error) {
	tokens := make([]Token, 0, len(argv))
	for _, opt := range argv {
		key, value, ok := strings.Cut(opt, "=")
		if !ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("option parsing failed: %s", opt)}
		}
		tokens = append(tokens, Token{Key: key, Value: value, raw: opt})
	}
	return tokens, nil
}

// ParseInt parses t.Value as a base-10 integer, wrapping any failure in a
// ConfigError naming the offending option.
func ParseInt(t Token) (int, error) {
	n, err := strconv.ParseInt(t.Value, 10, 64)
	if err != nil {
		return 0, &ConfigError{Opt: t.raw, Msg: "expected an integer value"}
	}
	return int(n), nil
}

// boolWords mirrors qemu_plugin_bool_parse's accepted vocabulary.
var boolWords = map[string]bool{
	"on": true, "yes": true, "true": true, "1": true,
	"off": false, "no": false, "false": false, "0": false,
}

// ParseBool parses t.Value using the same vocabulary
// qemu_plugin_bool_parse accepts ("on"/"off", "yes"/"no", "true"/"false",
// "1"/"0").
func ParseBool(t Token) (bool, error) {
	b, ok := boolWords[strings.ToLower(t.Value)]
	if !ok {
		return false, &ConfigError{Opt: t.raw, Msg: "boolean argument parsing failed"}
	}
	return b, nil
}
