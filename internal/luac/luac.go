// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

// Package luac provides a Cobra command for the Lua-to-IR compiler.
// Its command-line options are roughly those of [luac(1)],
// except that the output is the compiler's intermediate representation
// rather than virtual machine bytecode.
//
// [luac(1)]: https://www.lua.org/manual/5.3/luac.html
package luac

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/go-json-experiment/json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"zombiezen.com/go/log"

	"github.com/luavixen/rembulan-sub001/internal/bufseek"
	"github.com/luavixen/rembulan-sub001/internal/luacomp"
	"github.com/luavixen/rembulan-sub001/internal/luair"
	"github.com/luavixen/rembulan-sub001/internal/luasem"
	"github.com/luavixen/rembulan-sub001/internal/luasyntax"
	"github.com/luavixen/rembulan-sub001/internal/xiter"
)

type options struct {
	inputFilenames []string
	list           int
	jsonOutput     bool
	parseOnly      bool
	cpuAccounting  string
}

// New returns a new rembulan-luac command.
func New() *cobra.Command {
	c := &cobra.Command{
		Use:                   "rembulan-luac [flags] FILE [FILE...]",
		Short:                 "compile Lua chunks to IR",
		Args:                  cobra.MinimumNArgs(1),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(options)
	c.Flags().CountVarP(&opts.list, "list", "l", "produce a listing of the compiled IR")
	c.Flags().BoolVarP(&opts.parseOnly, "parse-only", "p", false, "stop after translation; produce no output")
	c.Flags().BoolVar(&opts.jsonOutput, "json", false, "emit the IR module as JSON")
	c.Flags().StringVar(&opts.cpuAccounting, "cpu-accounting", "none", "CPU accounting `mode` forwarded to later passes (none or every-basic-block)")
	showDebug := c.Flags().Bool("debug", false, "show debugging output")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		initLogging(*showDebug)
		opts.inputFilenames = args
		return run(cmd.Context(), opts)
	}
	return c
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "rembulan-luac: ", log.StdFlags, nil),
		})
	})
}

func run(ctx context.Context, opts *options) error {
	var mode luair.CPUAccounting
	switch opts.cpuAccounting {
	case "none":
		mode = luair.CPUAccountingNone
	case "every-basic-block":
		mode = luair.CPUAccountingEveryBasicBlock
	default:
		return fmt.Errorf("invalid --cpu-accounting mode %q", opts.cpuAccounting)
	}

	// Chunks compile independently, so fan out across the inputs.
	// Output stays in argument order.
	modules := make([]*luair.Module, len(opts.inputFilenames))
	compileErrors := make([]error, len(opts.inputFilenames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, filename := range opts.inputFilenames {
		g.Go(func() error {
			mod, err := compileFile(ctx, filename, mode)
			modules[i] = mod
			compileErrors[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, err := range compileErrors {
		if err != nil {
			log.Errorf(ctx, "%s: %v", opts.inputFilenames[i], err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(opts.inputFilenames))
	}
	if opts.parseOnly {
		return nil
	}

	for i, mod := range modules {
		filename := opts.inputFilenames[i]
		if opts.jsonOutput {
			if err := writeModuleJSON(os.Stdout, filename, mod); err != nil {
				return err
			}
			continue
		}
		if opts.list > 0 {
			if err := printModule(os.Stdout, filename, mod, opts.list > 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func compileFile(ctx context.Context, filename string, mode luair.CPUAccounting) (*luair.Module, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	block, err := luasyntax.Parse(bufseek.NewReader(f))
	if err != nil {
		return nil, err
	}
	log.Debugf(ctx, "%s: parsed", filename)
	info, err := luasem.Resolve(block)
	if err != nil {
		return nil, err
	}
	mod, err := luacomp.Translate(info, block, luacomp.Options{CPUAccounting: mode})
	if err != nil {
		return nil, err
	}
	log.Debugf(ctx, "%s: translated %d functions", filename, 1+len(mod.Functions))
	return mod, nil
}

func printModule(w io.Writer, filename string, mod *luair.Module, full bool) error {
	bold, reset := "", ""
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bold, reset = "\x1b[1m", "\x1b[0m"
	}
	if err := printFunction(w, mod.Main, "main", filename, bold, reset, full); err != nil {
		return err
	}
	for i, fn := range mod.Functions {
		if err := printFunction(w, fn, fmt.Sprintf("F[%d]", i), filename, bold, reset, full); err != nil {
			return err
		}
	}
	return nil
}

func printFunction(w io.Writer, f *luair.Function, id, filename, bold, reset string, full bool) error {
	varargSuffix := ""
	if f.IsVararg {
		varargSuffix = "+"
	}
	_, err := fmt.Fprintf(
		w,
		"\n%s%s <%s:%d>%s (%d blocks, %d nodes, %d%s params, %d upvalues) for %s\n",
		bold, id, filename, f.LineDefined, reset,
		f.Code.Len(), xiter.Count(f.Code.Nodes()), f.NumParams, varargSuffix, len(f.Upvalues), f.Name,
	)
	if err != nil {
		return err
	}

	// Blocks print in breadth-first order with their predecessor counts.
	in := f.Code.InLabels()
	for _, l := range f.Code.BFS() {
		b := f.Code.Block(l)
		suffix := ""
		if l == f.Code.Entry() {
			suffix = " (entry)"
		}
		if _, err := fmt.Fprintf(w, "%v:%s\t; %d in\n", l, suffix, in[l].Len()); err != nil {
			return err
		}
		for n := range b.Body() {
			if _, err := fmt.Fprintf(w, "\t%v\n", n); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "\t%v\n", b.Terminator()); err != nil {
			return err
		}
	}

	if full && len(f.Upvalues) > 0 {
		if _, err := fmt.Fprintf(w, "upvalues (%d) for %s\n", len(f.Upvalues), id); err != nil {
			return err
		}
		for i, uv := range f.Upvalues {
			inStack := "0"
			if uv.InStack {
				inStack = "1"
			}
			if _, err := fmt.Fprintf(w, "\t%d\t%s\t%s\t%d\n", i, uv.Name, inStack, uv.Index); err != nil {
				return err
			}
		}
	}
	return nil
}

type moduleJSON struct {
	File          string         `json:"file"`
	CPUAccounting string         `json:"cpuAccounting"`
	Main          functionJSON   `json:"main"`
	Functions     []functionJSON `json:"functions,omitempty"`
}

type functionJSON struct {
	Name      string        `json:"name"`
	NumParams int           `json:"numParams"`
	IsVararg  bool          `json:"isVararg"`
	Entry     string        `json:"entry"`
	Upvalues  []upvalueJSON `json:"upvalues,omitempty"`
	Blocks    []blockJSON   `json:"blocks"`
}

type upvalueJSON struct {
	Name    string `json:"name"`
	InStack bool   `json:"inStack"`
	Index   int    `json:"index"`
}

type blockJSON struct {
	Label string   `json:"label"`
	Nodes []string `json:"nodes"`
}

func writeModuleJSON(w io.Writer, filename string, mod *luair.Module) error {
	out := moduleJSON{
		File:          filename,
		CPUAccounting: mod.CPUAccounting.String(),
		Main:          functionToJSON(mod.Main),
	}
	for _, fn := range mod.Functions {
		out.Functions = append(out.Functions, functionToJSON(fn))
	}
	return json.MarshalWrite(w, out)
}

func functionToJSON(f *luair.Function) functionJSON {
	out := functionJSON{
		Name:      f.Name,
		NumParams: f.NumParams,
		IsVararg:  f.IsVararg,
		Entry:     f.Code.Entry().String(),
	}
	for _, uv := range f.Upvalues {
		out.Upvalues = append(out.Upvalues, upvalueJSON(uv))
	}
	for b := range f.Code.Blocks() {
		bj := blockJSON{Label: b.Label().String()}
		for n := range b.Body() {
			bj.Nodes = append(bj.Nodes, n.String())
		}
		bj.Nodes = append(bj.Nodes, b.Terminator().String())
		out.Blocks = append(out.Blocks, bj)
	}
	return out
}
