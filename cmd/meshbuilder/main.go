// meshbuilder converts Wavefront OBJ meshes into AOBJ vertex/index containers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/meshbuilder/internal/config"
	"github.com/Faultbox/meshbuilder/internal/converter"
	"github.com/Faultbox/meshbuilder/internal/logger"
	"github.com/Faultbox/meshbuilder/internal/model"
	"github.com/Faultbox/meshbuilder/pkg/formats"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		path, err := cfg.Save()
		if err != nil {
			logger.Error("failed to save config", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("config saved", zap.String("path", path))
	}

	args := config.Args()
	command := "build"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var code int
	switch command {
	case "build":
		code = cmdBuild(cfg)
	case "convert":
		code = cmdConvert(cfg, args)
	case "info":
		code = cmdInfo(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = 1
	}

	logger.Sync()
	os.Exit(code)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `meshbuilder - OBJ to AOBJ mesh converter

Usage:
  meshbuilder [flags] [command]

Commands:
  build                          Convert every source in the input directory (default)
  convert <file.obj> [out.aobj]  Convert a single file
  info <file.aobj>...            Show container information
  help                           Show this help

Flags:`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
Examples:
  meshbuilder -i ./resources/models/
  meshbuilder -i assets -o build/meshes -jobs 4
  meshbuilder convert tree.obj
  meshbuilder info build/meshes/tree.aobj`)
}

func cmdBuild(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := converter.New(cfg, logger.Named("converter")).Run(ctx)
	if summary == nil {
		logger.Error("build failed", zap.Error(err))
		return 1
	}
	if err != nil {
		logger.Error("some meshes failed to convert",
			zap.Strings("failed", summary.Failed),
			zap.Int("converted", len(summary.Converted)),
		)
		return 1
	}
	if len(summary.Sources) == 0 {
		logger.Warn("no sources found",
			zap.String("dir", cfg.Input.Dir),
			zap.String("extension", cfg.Input.Extension),
		)
	}
	return 0
}

func cmdConvert(cfg *config.Config, args []string) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshbuilder convert <file.obj> [out.aobj]")
		return 1
	}

	src := args[0]
	if len(args) == 1 {
		_, err := converter.New(cfg, logger.Named("converter")).Convert(src)
		if err != nil {
			return 1
		}
		return 0
	}

	res, err := converter.ConvertFile(src, args[1])
	if err != nil {
		logger.Error("conversion failed", zap.Error(err))
		return 1
	}
	logger.Info("mesh written",
		zap.String("dst", res.Output),
		zap.Int("vertices", res.Vertices),
		zap.Int("indices", res.Indices),
	)
	return 0
}

func cmdInfo(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshbuilder info <file.aobj>...")
		return 1
	}

	code := 0
	for i, path := range args {
		aobj, err := formats.ParseAOBJFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			code = 1
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		printInfo(path, aobj)
	}
	return code
}

func printInfo(path string, aobj *formats.AOBJ) {
	mesh := model.FromAOBJ(aobj)

	fmt.Printf("File:      %s\n", filepath.Clean(path))
	fmt.Printf("Type:      %d\n", aobj.Type)
	fmt.Printf("Vertices:  %d (%d bytes)\n", len(aobj.Vertices), aobj.VertexBytes())
	fmt.Printf("Indices:   %d (%d bytes)\n", len(aobj.Indices), aobj.IndexBytes())
	fmt.Printf("Triangles: %d\n", aobj.TriangleCount())
	if len(aobj.Vertices) > 0 {
		b := mesh.Bounds
		fmt.Printf("Bounds:    min (%.4g, %.4g, %.4g) max (%.4g, %.4g, %.4g)\n",
			b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
		c, e := b.Center(), b.Extent()
		fmt.Printf("Center:    (%.4g, %.4g, %.4g) extent (%.4g, %.4g, %.4g)\n",
			c[0], c[1], c[2], e[0], e[1], e[2])
	}
}
