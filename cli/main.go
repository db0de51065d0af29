package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/photo-scrub/core"
	"github.com/ankit-chaubey/photo-scrub/core/engine"
	"github.com/ankit-chaubey/photo-scrub/core/privacy"
	"github.com/ankit-chaubey/photo-scrub/core/strip"
	"github.com/ankit-chaubey/photo-scrub/internal/config"
	"github.com/ankit-chaubey/photo-scrub/internal/logger"
)

const usage = `Usage:
  scrub view  [-json] <image>
  scrub clean [-json] [-o out] <image>`

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdout))
}

// runMain wires configuration and logging around run and returns the exit
// code. Buffered log entries are flushed on every path.
func runMain(args []string, stdout io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		core.PrintError(err.Error())
		return 1
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		core.PrintError(err.Error())
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), cfg, log, args, stdout); err != nil {
		log.Debug("command failed", zap.Strings("args", args), zap.Error(err))
		core.PrintError(err.Error())
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd := args[0]
	if cmd != "view" && cmd != "clean" {
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jsonMode := fs.Bool("json", false, "print the report as JSON")
	out := ""
	if cmd == "clean" {
		fs.StringVar(&out, "o", "", "output path (default <name>"+cfg.App.OutputSuffix+"<ext>)")
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errors.New(usage)
		}
		return err
	}
	if fs.NArg() != 1 {
		return errors.New(usage)
	}
	file := fs.Arg(0)

	buf, err := readImage(file, cfg.App.MaxUploadSize)
	if err != nil {
		return err
	}

	proc := engine.New(strip.New(cfg.App.JPEGQuality, log), log)
	res, err := proc.Process(ctx, buf)
	if err != nil {
		return err
	}

	rep := core.Report{
		File:           file,
		Result:         res,
		PersonalFields: privacy.PersonalFields(res.Metadata),
	}
	if cmd == "clean" {
		dst := core.ResolveOutPath(file, out, cfg.App.OutputSuffix, res.Cleaned.ContentType)
		if err := os.WriteFile(dst, res.Cleaned.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
		rep.Written = dst
	}
	return core.NewPrinter(*jsonMode, stdout).PrintReport(rep)
}

// readImage loads file after checking it against the size ceiling. The
// declared type comes from the extension.
func readImage(file string, limit int64) (core.ImageBuffer, error) {
	info, err := os.Stat(file)
	if err != nil {
		return core.ImageBuffer{}, err
	}
	if info.IsDir() {
		return core.ImageBuffer{}, fmt.Errorf("%s is a directory", file)
	}
	if info.Size() > limit {
		return core.ImageBuffer{}, fmt.Errorf("%s is %d bytes, over the %d byte limit", file, info.Size(), limit)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return core.ImageBuffer{}, err
	}
	return core.ImageBuffer{
		Data:        data,
		ContentType: core.ContentTypeForExt(filepath.Ext(file)),
	}, nil
}
