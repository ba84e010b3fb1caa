package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/ettle/strcase"
	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/hdrbind/internal/configpaths"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file for a specific command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"generate,check,scan"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to hdrbind.<format> in the current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

// Run generates a configuration template dynamically via reflection of the command structs and tags.
func (c *ConfigInit) Run(logger *slog.Logger) error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	var t reflect.Type
	switch c.Command {
	case "generate":
		t = reflect.TypeOf(Generate{})
	case "check":
		t = reflect.TypeOf(Check{})
	case "scan":
		t = reflect.TypeOf(Scan{})
	default:
		return errors.New("unknown command; expected 'generate', 'check' or 'scan'")
	}
	root := configTemplate(format, c.Command, t)

	dest := c.Output
	if dest == "" {
		dest = configpaths.AppName + "." + configpaths.Ext(format)
	}

	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	data, err := marshalConfig(format, root)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	logger.Info("Wrote configuration template", "command", c.Command, "file", dest)
	return nil
}

func marshalConfig(format string, root map[string]any) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(root)
	case "toml":
		return toml.Marshal(root)
	default:
		data, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// keyStyle selects how flag names are spelled in a configuration file.
type keyStyle int

const (
	// snakeKeys are matched by kong's JSON resolver: allowlist_type, and
	// prefixed embeds as nested objects.
	snakeKeys keyStyle = iota
	// kebabKeys are the flag names themselves (allowlist-type), as the
	// YAML and TOML resolvers look them up.
	kebabKeys
)

// configTemplate lays out the defaults of cmd the way the loader for
// format resolves them. JSON and TOML files are flat; the YAML resolver
// looks flags up under the command path, so YAML nests them under command.
func configTemplate(format, command string, cmd reflect.Type) map[string]any {
	switch format {
	case "yaml":
		return map[string]any{command: buildMapFromStruct(cmd, kebabKeys)}
	case "toml":
		return buildMapFromStruct(cmd, kebabKeys)
	default:
		return buildMapFromStruct(cmd, snakeKeys)
	}
}

// configKey is the key kong's configuration resolvers look a flag up by.
func configKey(f reflect.StructField, style keyStyle) string {
	name := f.Tag.Get("name")
	if name == "" {
		name = strcase.ToKebab(f.Name)
	}
	if style == snakeKeys {
		return strings.ReplaceAll(name, "-", "_")
	}
	return name
}

func buildMapFromStruct(t reflect.Type, style keyStyle) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Tag.Get("kong") == "-" {
			continue
		}
		if _, ok := f.Tag.Lookup("arg"); ok {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			prefix := f.Tag.Get("prefix")
			sub := buildMapFromStruct(f.Type, style)
			if name := strings.TrimSuffix(prefix, "."); name != "" && style == snakeKeys {
				out[name] = sub
				continue
			}
			for k, v := range sub {
				out[prefix+k] = v
			}
			continue
		}

		def := f.Tag.Get("default")
		val := defaultValueForField(f.Type, def, style)
		if val != nil {
			out[configKey(f, style)] = val
		}
	}
	return out
}

func defaultValueForField(t reflect.Type, def string, style keyStyle) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def != "" {
			return def
		}
		return "0s"
	}
	switch t.Kind() {
	case reflect.String:
		return def // may be empty
	case reflect.Bool:
		if def == "" {
			return false
		}
		b, err := strconv.ParseBool(def)
		if err != nil {
			return false
		}
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseInt(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseUint(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Float32, reflect.Float64:
		if def == "" {
			return 0
		}
		f, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return 0
		}
		return f
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return nil
		}
		if def == "" {
			return []string{}
		}
		return strings.Split(def, ",")
	case reflect.Struct:
		return buildMapFromStruct(t, style)
	default:
		return nil
	}
}
