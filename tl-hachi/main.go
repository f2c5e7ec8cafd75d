/*
	Copyright 2015 Franc[e]sco (lolisamurai@tfwno.gf)
	This file is part of go-hachi.
	go-hachi is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.
	go-hachi is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.
	You should have received a copy of the GNU General Public License
	along with go-hachi. If not, see <http://www.gnu.org/licenses/>.
*/

// Command tl-hachi runs a CHIP-8 program.
//
// Usage:
//
//	tl-hachi [flags] path/to/program
//
// The program runs in the terminal with the termloop driver unless -driver
// says otherwise. With -disasm, the program is listed instead of run. The
// null driver runs headless and prints the final screen on exit, which is
// mostly useful together with -frames.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	_ "github.com/Francesco149/hachivm/drivers"
	"github.com/Francesco149/hachivm/hachi"
	"github.com/Francesco149/hachivm/host"
	"github.com/pkg/errors"
)

func disassemble(w io.Writer, program []byte) error {
	tw := new(tabwriter.Writer)
	tw.Init(w, 8, 8, 0, '\t', 0)
	fmt.Fprintln(tw, "addr\topcode\tpseudo-code\tascii\tdescription\t")

	for _, l := range hachi.Disassemble(program, hachi.ProgramStart) {
		asciitext := ""
		if ascii := l.ASCII(); len(ascii) != 0 {
			asciitext = fmt.Sprintf("`%s`", ascii)
		}

		opcodeFormatter := "%04X"
		if l.Size() == 1 {
			opcodeFormatter = "%02X"
		}

		fmt.Fprintf(tw, "%04X\t"+opcodeFormatter+"\t%v\t%s\t%s\n",
			l.Address, l.Opcode(), l, asciitext, l.Description())
	}

	return tw.Flush()
}

func atExit(vm *hachi.Chip8, err error, debug bool) {
	if err == nil {
		return
	}
	if debug {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	if vm != nil {
		fmt.Fprintln(os.Stderr, vm)
	}
	os.Exit(1)
}

func main() {
	cfg := host.DefaultConfig()
	var (
		fault      string
		disasm     bool
		debug      bool
		shiftQuirk bool
		loadQuirk  bool
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] path/to/program\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.StringVar(&cfg.Driver, "driver", cfg.Driver,
		"presentation driver: "+strings.Join(host.Drivers(), ", "))
	flag.IntVar(&cfg.CyclesPerFrame, "cycles", cfg.CyclesPerFrame,
		"instructions executed per timer frame")
	flag.IntVar(&cfg.TimerHz, "hz", cfg.TimerHz, "timer frame rate")
	flag.IntVar(&cfg.Frames, "frames", 0, "stop after `n` frames (0 runs until quit)")
	flag.BoolVar(&cfg.Unthrottled, "unthrottled", false,
		"run frames as fast as possible (headless drivers only)")
	flag.Int64Var(&cfg.Seed, "seed", 0, "random seed for RND (0 seeds from the clock)")
	flag.StringVar(&fault, "fault", string(cfg.FaultPolicy),
		"what to do when the program faults: halt, reset or continue")
	flag.BoolVar(&shiftQuirk, "quirk-shift", false, "SHR/SHL shift VY into VX")
	flag.BoolVar(&loadQuirk, "quirk-loadstore", false, "LD [I] and LD VX,[I] advance I")
	flag.BoolVar(&disasm, "disasm", false, "print a disassembly of the program and exit")
	flag.BoolVar(&debug, "v", false, "enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	cfg.ROMPath = flag.Arg(0)
	cfg.FaultPolicy = host.FaultPolicy(fault)
	cfg.Quirks = hachi.Quirks{
		ShiftUsesVY:          shiftQuirk,
		LoadStoreIncrementsI: loadQuirk,
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level}))

	atExit(nil, cfg.Validate(), debug)

	vm, err := hachi.New(cfg.Settings())
	atExit(nil, err, debug)

	_, err = vm.Load(cfg.ROMPath)
	atExit(nil, err, debug)

	if disasm {
		atExit(nil, disassemble(os.Stdout, vm.Program()), debug)
		return
	}

	h, err := host.New(cfg, vm)
	atExit(nil, err, debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = h.Run(ctx)
	if err != nil {
		err = errors.Wrapf(err, "after %d frames", h.Frames())
	}
	if null, ok := h.Driver().(*host.NullDriver); ok {
		fmt.Print(null.Last)
	}
	stop()
	atExit(vm, err, debug)
}
