// Package config holds the command-line surface of hdrbind. Every field can
// also be set from a configuration file or an HDRBIND_* environment variable.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/Alia5/hdrbind/internal/cmd"
)

type Log struct {
	Level  string `help:"Log level" default:"info" enum:"trace,debug,info,warn,error" env:"HDRBIND_LOG_LEVEL"`
	File   string `help:"Also write logs to this file" env:"HDRBIND_LOG_FILE"`
	Format string `help:"Log format; auto is text on a terminal and json otherwise" default:"auto" enum:"auto,text,json" env:"HDRBIND_LOG_FORMAT"`
}

type CLI struct {
	ConfigFile string           `name:"config" help:"Configuration file (json, yaml or toml)" env:"HDRBIND_CONFIG" placeholder:"PATH"`
	Log        Log              `embed:"" prefix:"log."`
	Version    kong.VersionFlag `help:"Print the version and exit"`

	Generate cmd.Generate      `cmd:"" default:"withargs" help:"Generate bindings from a C header"`
	Check    cmd.Check         `cmd:"" help:"Fail when the generated bindings on disk are out of date"`
	Scan     cmd.Scan          `cmd:"" help:"Print the declarations the parser finds in a header"`
	Config   cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
}

// StdoutReserved reports whether stdout carries machine-readable output for
// the selected command, so logs must stay on stderr.
func (c *CLI) StdoutReserved(command string) bool {
	switch command {
	case "scan":
		return true
	case "generate":
		return c.Generate.Cargo
	}
	return false
}
