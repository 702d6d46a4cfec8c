// Package config layers a TOML file, BLINKD_* environment variables and CLI
// flags onto an options struct, and watches the file for live changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/blinkd/internal/logging"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "BLINKD_"

// LoadConfig fills opts with precedence CLI flags > env vars > config file.
// opts must be a pointer to a struct. Fields carry a `toml:"section.key"`
// tag for the file and an `env:"KEY"` tag for the environment. The field
// named Config holds the file path; a missing file is not an error. Flags
// explicitly set on cmd are never overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: want pointer to struct, got %T", opts)
	}
	v = v.Elem()
	t := v.Type()

	changed := changedFlags(cmd)
	skip := func(f reflect.StructField) bool {
		return changed[fieldNameToFlag(f.Name)]
	}

	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		values, err := readTOML(f.String())
		if err != nil {
			return err
		}
		for i := 0; i < v.NumField(); i++ {
			ft := t.Field(i)
			path := ft.Tag.Get("toml")
			if path == "" || skip(ft) {
				continue
			}
			if value := getNestedValue(values, path); value != nil {
				if err := setFieldValue(v.Field(i), value); err != nil {
					return fmt.Errorf("config %s: %w", path, err)
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		ft := t.Field(i)
		key := ft.Tag.Get("env")
		if key == "" || skip(ft) {
			continue
		}
		if raw := os.Getenv(EnvPrefix + key); raw != "" {
			if err := setFieldValueFromString(v.Field(i), raw); err != nil {
				return fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
			}
		}
	}

	return nil
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	visit := func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	}
	// humacli declares its option flags as persistent flags on the root.
	cmd.Flags().VisitAll(visit)
	cmd.PersistentFlags().VisitAll(visit)
	return changed
}

// readTOML parses path into a generic map. A missing file yields nil.
func readTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var values map[string]any
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return values, nil
}

// fieldNameToFlag converts a struct field name to the kebab-case flag name
// humacli derives for it. Acronyms stay together.
// Example: "LedLines" -> "led-lines", "GPIOChip" -> "gpio-chip".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from a nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue assigns a decoded TOML value to field.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		switch v := value.(type) {
		case string:
			field.SetString(v)
		case []any:
			// a TOML array for a comma-separated list option
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			field.SetString(strings.Join(parts, ","))
		default:
			return fmt.Errorf("want string, got %T", value)
		}
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int:
		i, ok := toInt(value)
		if !ok {
			return fmt.Errorf("want integer, got %T", value)
		}
		field.SetInt(i)
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok {
			return fmt.Errorf("want array, got %T", value)
		}
		switch field.Type().Elem().Kind() {
		case reflect.String:
			out := make([]string, len(arr))
			for i, item := range arr {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("element %d: want string, got %T", i, item)
				}
				out[i] = s
			}
			field.Set(reflect.ValueOf(out))
		case reflect.Int:
			out := make([]int, len(arr))
			for i, item := range arr {
				n, ok := toInt(item)
				if !ok {
					return fmt.Errorf("element %d: want integer, got %T", i, item)
				}
				out[i] = int(n)
			}
			field.Set(reflect.ValueOf(out))
		}
	}
	return nil
}

func toInt(value any) (int64, bool) {
	switch n := value.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// setFieldValueFromString parses an env var into field. Lists are
// comma-separated.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Slice:
		parts := strings.Split(value, ",")
		switch field.Type().Elem().Kind() {
		case reflect.String:
			out := make([]string, len(parts))
			for i, part := range parts {
				out[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(out))
		case reflect.Int:
			out := make([]int, len(parts))
			for i, part := range parts {
				n, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					return err
				}
				out[i] = n
			}
			field.Set(reflect.ValueOf(out))
		}
	}
	return nil
}

// Reloadable is the part of the config file applied without a restart.
type Reloadable struct {
	Logging logging.Config
	// StepMs is animation.step_ms; zero when unset.
	StepMs int
}

// LoadReloadable reads the live-reloadable settings from path. Used as the
// loader for the config Watcher.
func LoadReloadable(path string) (Reloadable, error) {
	values, err := readTOML(path)
	if err != nil {
		return Reloadable{}, err
	}
	r := Reloadable{Logging: loggingFrom(values)}
	if v := getNestedValue(values, "animation.step_ms"); v != nil {
		n, ok := toInt(v)
		if !ok {
			return Reloadable{}, fmt.Errorf("config animation.step_ms: want integer, got %T", v)
		}
		r.StepMs = int(n)
	}
	return r, nil
}

// LoadLoggingConfig reads the [logging] table. Defaults are returned when
// the file is missing or unparsable.
func LoadLoggingConfig(configPath string) logging.Config {
	if configPath == "" {
		return loggingFrom(nil)
	}
	values, err := readTOML(configPath)
	if err != nil {
		return loggingFrom(nil)
	}
	return loggingFrom(values)
}

// loggingFrom extracts level and format from [logging]. Module levels come
// from [logging.modules]; any other string key in [logging] is also taken
// as a module level.
func loggingFrom(values map[string]any) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	table, ok := values["logging"].(map[string]any)
	if !ok {
		return cfg
	}

	for key, raw := range table {
		switch key {
		case "level":
			if s, ok := raw.(string); ok {
				cfg.Level = s
			}
		case "format":
			if s, ok := raw.(string); ok {
				cfg.Format = s
			}
		case "modules":
			mods, _ := raw.(map[string]any)
			for mod, lvl := range mods {
				if s, ok := lvl.(string); ok {
					cfg.Modules[mod] = s
				}
			}
		default:
			if s, ok := raw.(string); ok {
				cfg.Modules[key] = s
			}
		}
	}
	return cfg
}
