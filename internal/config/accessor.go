package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// GetByPath returns the value at a dot-separated path such as "storage.table".
// Section paths ("storage") return the whole section.
func GetByPath(cfg *Config, path string) (any, error) {
	v, err := lookup(cfg, path)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetByPath parses value according to the type of the field at path and
// stores it. Only existing leaf fields can be set.
func SetByPath(cfg *Config, path, value string) error {
	v, err := lookup(cfg, path)
	if err != nil {
		return err
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected a boolean, got %q", path, value)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, v.Type().Bits())
		if err != nil {
			return fmt.Errorf("%s: expected an integer, got %q", path, value)
		}
		v.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: expected a number, got %q", path, value)
		}
		v.SetFloat(f)
	case reflect.Struct:
		return fmt.Errorf("%s is a section; set one of its fields instead", path)
	default:
		return fmt.Errorf("%s: unsupported field type %s", path, v.Kind())
	}
	return nil
}

// ListPaths returns every settable leaf path with its current value.
func ListPaths(cfg *Config) map[string]any {
	out := make(map[string]any)
	collectLeaves(reflect.ValueOf(cfg).Elem(), "", out)
	return out
}

// SortedPaths returns the keys of ListPaths in lexical order.
func SortedPaths(cfg *Config) []string {
	leaves := ListPaths(cfg)
	paths := make([]string, 0, len(leaves))
	for p := range leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Sanitize returns a copy of the config with secrets masked.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	if c.Model.APIKey != "" {
		c.Model.APIKey = maskString(c.Model.APIKey)
	}
	if c.Gateway.Secret != "" {
		c.Gateway.Secret = maskString(c.Gateway.Secret)
	}
	return &c
}

func lookup(cfg *Config, path string) (reflect.Value, error) {
	if path == "" {
		return reflect.Value{}, fmt.Errorf("empty config path")
	}
	v := reflect.ValueOf(cfg).Elem()
	for _, key := range strings.Split(path, ".") {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("unknown config path: %s", path)
		}
		field, ok := fieldByTag(v, key)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown config path: %s", path)
		}
		v = field
	}
	return v, nil
}

func fieldByTag(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tagName(t.Field(i)) == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

func collectLeaves(v reflect.Value, prefix string, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := tagName(t.Field(i))
		if prefix != "" {
			key = prefix + "." + key
		}
		if fv := v.Field(i); fv.Kind() == reflect.Struct {
			collectLeaves(fv, key, out)
		} else {
			out[key] = fv.Interface()
		}
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
