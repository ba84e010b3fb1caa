package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/Alia5/hdrbind/internal/codegen/common"
	"github.com/Alia5/hdrbind/internal/config"
	"github.com/Alia5/hdrbind/internal/configpaths"
	"github.com/Alia5/hdrbind/internal/log"
	"github.com/Alia5/hdrbind/internal/util"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	version, err := common.GetVersion()
	if err != nil {
		version = "unknown"
	}

	exit := util.ExitFunc(os.Stdin, os.Stderr, util.IsRunFromGUI(), os.Exit)

	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("hdrbind"),
		kong.Description("Generate Rust and Go bindings from C headers"),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.Vars{"version": version},
		// Load configuration from JSON/YAML/TOML in priority order; flags/env override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	command, _, _ := strings.Cut(ctx.Command(), " ")
	sinks := log.ConsoleSinks(cli.StdoutReserved(command))
	logger, closeFiles, err := log.SetupLoggerTo(sinks, cli.Log.Level, cli.Log.File, cli.Log.Format)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx.Bind(logger)

	err = ctx.Run()
	for _, c := range closeFiles {
		_ = c.Close()
	}
	ctx.FatalIfErrorf(err)
	exit(0)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("HDRBIND_CONFIG"); v != "" {
		return v
	}
	return ""
}
