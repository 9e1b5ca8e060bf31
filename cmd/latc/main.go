// Copyright 2026 The Lattice Authors
// This file is part of Lattice.
//
// Lattice is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Lattice is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Lattice. If not, see <http://www.gnu.org/licenses/>.

// Command latc loads and runs, or disassembles, a compiled .latc artifact.
// It does not compile Lattice source — that's the compiler's job, out of
// this core's scope — it only exercises the runtime described in
// lang/core, lang/codec, and lang/vm.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/ajokela/lattice-sub004/lang/codec"
	"github.com/ajokela/lattice-sub004/lang/env"
	"github.com/ajokela/lattice-sub004/lang/vm"
	"github.com/ajokela/lattice-sub004/log"
)

const version = "0.1.0"

var (
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "log frame entry/exit, worker lifecycle and fault detail (trace level and above)",
	}
	diskCacheFlag = cli.StringFlag{
		Name:  "module-cache",
		Usage: "path to a persistent goleveldb module cache",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "latc"
	app.Usage = "run or disassemble a .latc bytecode artifact"
	app.Version = version
	app.Commands = []cli.Command{
		runCommand,
		disasmCommand,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "latc:", err)
		os.Exit(1)
	}
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "execute a .latc artifact's top-level chunk",
	ArgsUsage: "<file.latc>",
	Flags:     []cli.Flag{verboseFlag, diskCacheFlag},
	Action:    runAction,
}

var disasmCommand = cli.Command{
	Name:      "disasm",
	Usage:     "print a human-readable listing of a .latc artifact",
	ArgsUsage: "<file.latc>",
	Action:    disasmAction,
}

func loadChunk(ctx *cli.Context) (*os.File, error) {
	if ctx.NArg() != 1 {
		return nil, cli.NewExitError(fmt.Sprintf("usage: latc %s <file.latc>", ctx.Command.Name), 1)
	}
	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return nil, cli.NewExitError(fmt.Sprintf("opening %s: %v", ctx.Args().First(), err), 1)
	}
	return f, nil
}

func runAction(ctx *cli.Context) error {
	f, err := loadChunk(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	chunk, err := codec.Decode(f)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("decoding %s: %v", ctx.Args().First(), err), 1)
	}

	logger := log.Root()
	if ctx.Bool("verbose") {
		logger.SetLevel(log.LevelTrace)
	} else {
		logger.SetLevel(log.LevelError)
	}

	rt := env.NewRuntime(ctx.Args().Tail())
	env.RegisterBuiltins(rt)
	vm.RegisterConcurrencyBuiltins(rt)
	rt.Freeze()

	opts := []vm.Option{vm.WithLogger(logger)}
	if path := ctx.String("module-cache"); path != "" {
		store, err := vm.OpenDiskModuleStore(path)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("opening module cache: %v", err), 1)
		}
		defer store.Close()
		opts = append(opts, vm.WithDiskModuleStore(store))
	}

	machine := vm.New(rt, opts...)
	result, err := machine.Run(chunk)
	if result != vm.ResultOK {
		return cli.NewExitError(fmt.Sprintf("%s: %v", result, err), 1)
	}
	return nil
}

func disasmAction(ctx *cli.Context) error {
	f, err := loadChunk(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	chunk, err := codec.Decode(f)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("decoding %s: %v", ctx.Args().First(), err), 1)
	}
	fmt.Print(vm.Disassemble(chunk))
	return nil
}
