package testutils

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mcuadros/go-defaults"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// PresencePlaceholder in expected JSON matches any actual value, as long as the key exists.
const PresencePlaceholder = "<<PRESENCE>>"

func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

type JSONAssertOptions struct {
	IgnoreExtraKeys          bool     `default:"true"`
	NilToEmptyArray          bool     `default:"true"`
	AllowPresencePlaceholder bool     `default:"true"`
	IgnoredFields            []string `default:""`
}

// Option is a functional option for configuring JSONAsserter
type Option func(*JSONAssertOptions)

// JSONAsserter compares JSON documents structurally and reports a readable diff.
type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

// NewJSONAsserter creates a new JSONAsserter with default options
func NewJSONAsserter(t TestingT) *JSONAsserter {
	opts := JSONAssertOptions{}
	defaults.SetDefaults(&opts)
	return &JSONAsserter{t: t, options: opts}
}

// WithOptions applies functional options to the JSONAsserter
func (ja *JSONAsserter) WithOptions(opts ...Option) *JSONAsserter {
	for _, opt := range opts {
		opt(&ja.options)
	}
	return ja
}

// GetOptions returns a copy of the current options
func (ja *JSONAsserter) GetOptions() JSONAssertOptions {
	return ja.options
}

// Assert compares actualJSON against expectedJSON
func (ja *JSONAsserter) Assert(actualJSON, expectedJSON string) {
	if diff := ja.diff(actualJSON, expectedJSON); diff != "" {
		ja.t.Errorf("JSON assertion failed:\n%s", diff)
	}
}

// AssertValue marshals v and compares it against expectedJSON.
func (ja *JSONAsserter) AssertValue(v any, expectedJSON string) {
	ja.Assert(MustJSON(v), expectedJSON)
}

func (ja *JSONAsserter) diff(actualJSON, expectedJSON string) string {
	var expected, actual interface{}
	if err := json.Unmarshal([]byte(expectedJSON), &expected); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actualJSON), &actual); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v", err)
	}

	// gojsondiff only compares objects at the root
	if isArray(expected) && isArray(actual) {
		expected = map[string]interface{}{"array": expected}
		actual = map[string]interface{}{"array": actual}
	}

	if ja.options.AllowPresencePlaceholder {
		replacePresenceWithActual(expected, actual)
	}
	if ja.options.NilToEmptyArray {
		normalizeNilArrays(expected, actual)
	}
	if len(ja.options.IgnoredFields) > 0 {
		removeIgnoredFields(expected, actual, ja.options.IgnoredFields)
	}
	if ja.options.IgnoreExtraKeys {
		pruneExtraKeys(actual, expected)
	}

	expectedBytes, _ := json.Marshal(expected)
	actualBytes, _ := json.Marshal(actual)

	diff, err := gojsondiff.New().Compare(expectedBytes, actualBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !diff.Modified() {
		return ""
	}

	f := formatter.NewAsciiFormatter(expected, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	out, _ := f.Format(diff)
	return out
}

// walkPairs calls fn for every (expected, actual) child pair present on both sides.
func walkPairs(expected, actual interface{}, fn func(exp, act interface{})) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		if act, ok := actual.(map[string]interface{}); ok {
			for k := range exp {
				fn(exp[k], act[k])
			}
		}
	case []interface{}:
		if act, ok := actual.([]interface{}); ok {
			for i := range exp {
				if i < len(act) {
					fn(exp[i], act[i])
				}
			}
		}
	}
}

func replacePresenceWithActual(expected, actual interface{}) {
	if exp, ok := expected.(map[string]interface{}); ok {
		if act, ok := actual.(map[string]interface{}); ok {
			for k, v := range exp {
				if s, ok := v.(string); ok && s == PresencePlaceholder {
					if actVal, present := act[k]; present {
						exp[k] = actVal
					}
				}
			}
		}
	}
	walkPairs(expected, actual, replacePresenceWithActual)
}

// normalizeNilArrays treats null and [] as equal on either side.
func normalizeNilArrays(expected, actual interface{}) {
	isEmpty := func(v interface{}) bool {
		arr, ok := v.([]interface{})
		return v == nil || (ok && len(arr) == 0)
	}
	if exp, ok := expected.(map[string]interface{}); ok {
		if act, ok := actual.(map[string]interface{}); ok {
			for k := range exp {
				if _, present := act[k]; present && isEmpty(exp[k]) && isEmpty(act[k]) {
					exp[k] = []interface{}{}
					act[k] = []interface{}{}
				}
			}
		}
	}
	walkPairs(expected, actual, normalizeNilArrays)
}

// pruneExtraKeys removes keys from actual that expected does not mention.
func pruneExtraKeys(actual, expected interface{}) {
	if exp, ok := expected.(map[string]interface{}); ok {
		if act, ok := actual.(map[string]interface{}); ok {
			for k := range act {
				if _, exists := exp[k]; !exists {
					delete(act, k)
				}
			}
		}
	}
	walkPairs(expected, actual, func(exp, act interface{}) { pruneExtraKeys(act, exp) })
}

func removeIgnoredFields(expected, actual interface{}, ignored []string) {
	if exp, ok := expected.(map[string]interface{}); ok {
		if act, ok := actual.(map[string]interface{}); ok {
			for _, field := range ignored {
				delete(exp, field)
				delete(act, field)
			}
		}
	}
	walkPairs(expected, actual, func(exp, act interface{}) { removeIgnoredFields(exp, act, ignored) })
}

// WithIgnoreExtraKeys sets whether to ignore extra keys in actual JSON
func WithIgnoreExtraKeys(ignore bool) Option {
	return func(opts *JSONAssertOptions) { opts.IgnoreExtraKeys = ignore }
}

// WithNilToEmptyArray sets whether null and [] compare equal
func WithNilToEmptyArray(normalize bool) Option {
	return func(opts *JSONAssertOptions) { opts.NilToEmptyArray = normalize }
}

// WithAllowPresencePlaceholder sets whether "<<PRESENCE>>" placeholders are honoured
func WithAllowPresencePlaceholder(allow bool) Option {
	return func(opts *JSONAssertOptions) { opts.AllowPresencePlaceholder = allow }
}

// WithIgnoredFields sets field names removed from both sides before comparison
func WithIgnoredFields(fields ...string) Option {
	return func(opts *JSONAssertOptions) { opts.IgnoredFields = fields }
}

func isArray(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

var _ TestingT = (*testing.T)(nil)
