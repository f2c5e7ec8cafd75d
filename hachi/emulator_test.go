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

package hachi

import (
	"bytes"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/retroenv/retrogolib/assert"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestVM(t *testing.T, quirks Quirks, program ...uint16) *Chip8 {
	t.Helper()
	c, err := New(&Chip8Settings{
		StackSize: MaxStackSize,
		Quirks:    quirks,
		Rand:      rand.New(rand.NewSource(1)),
		Logger:    quietLogger,
	})
	assert.NoError(t, err)

	rom := make([]byte, 0, len(program)*2)
	for _, op := range program {
		rom = append(rom, byte(op>>8), byte(op))
	}
	assert.NoError(t, c.LoadRaw(rom))
	return c
}

func vm(t *testing.T, program ...uint16) *Chip8 {
	t.Helper()
	return newTestVM(t, Quirks{}, program...)
}

func step(t *testing.T, c *Chip8, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d at %04X: %v", i, c.PC, err)
		}
	}
}

func TestNew(t *testing.T) {
	c, err := New(nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(ProgramStart), c.PC)
	assert.Equal(t, -1, c.SP)
	assert.Equal(t, MaxStackSize, len(c.Stack))
	if diff := cmp.Diff(Fontset[:], c.Memory[FontAddress:FontAddress+len(Fontset)]); diff != "" {
		t.Errorf("fontset: (-want, +got)\n%s", diff)
	}
	assert.Equal(t, true, c.ScreenDirty())
	assert.Equal(t, false, c.ScreenDirty())
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"zero", 0, true},
		{"one", 1, false},
		{"max", MaxStackSize, false},
		{"too deep", MaxStackSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&Chip8Settings{StackSize: tt.size, Logger: quietLogger})
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRaw(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"empty", 0, false},
		{"fits", MaxProgramSize, false},
		{"too big", MaxProgramSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := vm(t)
			err := c.LoadRaw(make([]byte, tt.size))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadRaw() error = %v, wantErr %v", err, tt.wantErr)
			}
			var oom *OutOfMemoryErr
			if tt.wantErr && !errors.As(err, &oom) {
				t.Errorf("expected *OutOfMemoryErr, got %T", err)
			}
		})
	}
}

func TestLoadRawKeepsMachineOnError(t *testing.T) {
	c := vm(t, 0x6005)
	err := c.LoadRaw(make([]byte, MaxProgramSize+1))
	if err == nil {
		t.Fatal("expected an error")
	}
	assert.Equal(t, byte(0x60), c.Memory[ProgramStart])
	assert.Equal(t, byte(0x05), c.Memory[ProgramStart+1])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.ch8")
	assert.NoError(t, os.WriteFile(path, []byte{0x60, 0x2A}, 0o644))

	c := vm(t)
	size, err := c.Load(path)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), size)
	step(t, c, 1)
	assert.Equal(t, uint8(0x2A), c.V[0])

	if _, err = c.Load(filepath.Join(dir, "missing.ch8")); err == nil {
		t.Error("expected an error for a missing file")
	}

	big := filepath.Join(dir, "big.ch8")
	assert.NoError(t, os.WriteFile(big, make([]byte, MaxProgramSize+1), 0o644))
	_, err = c.Load(big)
	var oom *OutOfMemoryErr
	if !errors.As(err, &oom) {
		t.Errorf("expected *OutOfMemoryErr, got %v", err)
	}
}

func TestLoadLogsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.ch8")
	assert.NoError(t, os.WriteFile(path, []byte{0x60, 0x2A}, 0o644))

	var buf bytes.Buffer
	c, err := New(&Chip8Settings{
		StackSize: MaxStackSize,
		Logger: slog.New(slog.NewTextHandler(&buf,
			&slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	assert.NoError(t, err)
	_, err = c.Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), "loaded program"))

	buf.Reset()
	assert.NoError(t, c.LoadRaw([]byte{0x60, 0x2A}))
	assert.Equal(t, 0, strings.Count(buf.String(), "loaded program"))
}

func TestLoadAndAdd(t *testing.T) {
	c := vm(t, 0x6005, 0x7003)
	step(t, c, 2)
	assert.Equal(t, uint8(8), c.V[0])
	assert.Equal(t, uint16(0x204), c.PC)
}

func TestAddRegisterFlag(t *testing.T) {
	c := vm(t, 0x8014)
	for a := 0; a < 0x100; a++ {
		for b := 0; b < 0x100; b++ {
			c.Reset()
			c.V[0], c.V[1] = uint8(a), uint8(b)
			step(t, c, 1)

			wantFlag := uint8(0)
			if a+b > 0xFF {
				wantFlag = 1
			}
			if c.V[0] != uint8(a+b) || c.V[0xF] != wantFlag {
				t.Fatalf("%02X + %02X = %02X VF=%v, want %02X VF=%v",
					a, b, c.V[0], c.V[0xF], uint8(a+b), wantFlag)
			}
		}
	}
}

func TestSubRegisterFlag(t *testing.T) {
	c := vm(t, 0x8015, 0x8237)
	for a := 0; a < 0x100; a++ {
		for b := 0; b < 0x100; b++ {
			c.Reset()
			c.V[0], c.V[1] = uint8(a), uint8(b)
			c.V[2], c.V[3] = uint8(a), uint8(b)

			step(t, c, 1)
			wantFlag := uint8(0)
			if a >= b {
				wantFlag = 1
			}
			if c.V[0] != uint8(a-b) || c.V[0xF] != wantFlag {
				t.Fatalf("SUB %02X - %02X = %02X VF=%v, want %02X VF=%v",
					a, b, c.V[0], c.V[0xF], uint8(a-b), wantFlag)
			}

			// SUBN V2,V3 computes V3 - V2
			step(t, c, 1)
			wantFlag = 0
			if b >= a {
				wantFlag = 1
			}
			if c.V[2] != uint8(b-a) || c.V[0xF] != wantFlag {
				t.Fatalf("SUBN %02X - %02X = %02X VF=%v, want %02X VF=%v",
					b, a, c.V[2], c.V[0xF], uint8(b-a), wantFlag)
			}
		}
	}
}

func TestSubFlagRegisterAsOperand(t *testing.T) {
	// VF - V1 with VF as the destination keeps only the flag
	c := vm(t, 0x6F00, 0x6101, 0x8F15)
	step(t, c, 3)
	assert.Equal(t, uint8(0), c.V[0xF])
}

func TestFlagRegisterAsOperand(t *testing.T) {
	// the flag is written after the result
	c := vm(t, 0x6FFF, 0x6101, 0x8F14)
	step(t, c, 3)
	assert.Equal(t, uint8(1), c.V[0xF])
}

func TestShift(t *testing.T) {
	tests := []struct {
		name     string
		quirks   Quirks
		opcode   uint16
		vx, vy   uint8
		wantVX   uint8
		wantFlag uint8
	}{
		{"shr", Quirks{}, 0x8016, 0x05, 0xFF, 0x02, 1},
		{"shr even", Quirks{}, 0x8016, 0x04, 0xFF, 0x02, 0},
		{"shl", Quirks{}, 0x801E, 0x81, 0x00, 0x02, 1},
		{"shl low", Quirks{}, 0x801E, 0x41, 0xFF, 0x82, 0},
		{"shr vy", Quirks{ShiftUsesVY: true}, 0x8016, 0xFF, 0x03, 0x01, 1},
		{"shl vy", Quirks{ShiftUsesVY: true}, 0x801E, 0x00, 0x80, 0x00, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestVM(t, tt.quirks, tt.opcode)
			c.V[0], c.V[1] = tt.vx, tt.vy
			step(t, c, 1)
			assert.Equal(t, tt.wantVX, c.V[0])
			assert.Equal(t, tt.wantFlag, c.V[0xF])
		})
	}
}

func TestLogic(t *testing.T) {
	c := vm(t, 0x8011, 0x8122, 0x8233, 0x8300)
	c.V[0], c.V[1], c.V[2], c.V[3] = 0xF0, 0x0F, 0x3C, 0xAA
	step(t, c, 1)
	assert.Equal(t, uint8(0xFF), c.V[0])
	step(t, c, 1)
	assert.Equal(t, uint8(0x0C), c.V[1])
	step(t, c, 1)
	assert.Equal(t, uint8(0x96), c.V[2])
	step(t, c, 1)
	assert.Equal(t, uint8(0xFF), c.V[3])
}

func TestAddByteWraps(t *testing.T) {
	c := vm(t, 0x60FF, 0x7002)
	c.V[0xF] = 7
	step(t, c, 2)
	assert.Equal(t, uint8(1), c.V[0])
	assert.Equal(t, uint8(7), c.V[0xF])
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		v0, v1 uint8
		skip   bool
	}{
		{"se byte", 0x3042, 0x42, 0, true},
		{"se byte miss", 0x3042, 0x41, 0, false},
		{"sne byte", 0x4042, 0x41, 0, true},
		{"sne byte miss", 0x4042, 0x42, 0, false},
		{"se reg", 0x5010, 7, 7, true},
		{"se reg miss", 0x5010, 7, 8, false},
		{"sne reg", 0x9010, 7, 8, true},
		{"sne reg miss", 0x9010, 7, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := vm(t, tt.opcode)
			c.V[0], c.V[1] = tt.v0, tt.v1
			step(t, c, 1)
			want := uint16(0x202)
			if tt.skip {
				want = 0x204
			}
			assert.Equal(t, want, c.PC)
		})
	}
}

func TestCallAndReturn(t *testing.T) {
	// 200: CALL 206, 202: LD V1,01, 204: JP 204, 206: LD V0,09, 208: RET
	c := vm(t, 0x2206, 0x6101, 0x1204, 0x6009, 0x00EE)
	step(t, c, 1)
	assert.Equal(t, uint16(0x206), c.PC)
	assert.Equal(t, 0, c.SP)
	assert.Equal(t, uint16(0x202), c.Stack[0])
	step(t, c, 3)
	assert.Equal(t, uint16(0x204), c.PC)
	assert.Equal(t, -1, c.SP)
	assert.Equal(t, uint8(9), c.V[0])
	assert.Equal(t, uint8(1), c.V[1])
}

func TestStackOverflow(t *testing.T) {
	// CALL 200 forever
	c := vm(t, 0x2200)
	step(t, c, MaxStackSize)
	assert.Equal(t, MaxStackSize-1, c.SP)

	err := c.Step()
	var overflow *StackOverflowErr
	if !errors.As(err, &overflow) {
		t.Fatalf("expected *StackOverflowErr, got %v", err)
	}
	assert.Equal(t, uint16(0x200), overflow.PC)
	assert.Equal(t, MaxStackSize-1, c.SP)
}

func TestStackOverflowSmallStack(t *testing.T) {
	c, err := New(&Chip8Settings{StackSize: 2, Logger: quietLogger})
	assert.NoError(t, err)
	assert.NoError(t, c.LoadRaw([]byte{0x22, 0x00}))
	step(t, c, 2)
	var overflow *StackOverflowErr
	if err = c.Step(); !errors.As(err, &overflow) {
		t.Fatalf("expected *StackOverflowErr, got %v", err)
	}
	assert.Equal(t, 2, overflow.Depth)
}

func TestStackUnderflow(t *testing.T) {
	c := vm(t, 0x00EE)
	err := c.Step()
	var underflow *StackUnderflowErr
	if !errors.As(err, &underflow) {
		t.Fatalf("expected *StackUnderflowErr, got %v", err)
	}
	assert.Equal(t, uint16(0x200), underflow.PC)
	assert.Equal(t, -1, c.SP)
}

func TestDecodeFailureHasNoEffects(t *testing.T) {
	c := vm(t, 0x6A12, 0x5555)
	step(t, c, 1)

	before := *c
	err := c.Step()
	var decodeErr *DecodeErr
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeErr, got %v", err)
	}
	assert.Equal(t, uint16(0x5555), decodeErr.Opcode)
	assert.Equal(t, uint16(0x202), decodeErr.PC)

	assert.Equal(t, before.PC+2, c.PC)
	if diff := cmp.Diff(before.Memory, c.Memory); diff != "" {
		t.Errorf("memory changed: (-before, +after)\n%s", diff)
	}
	if diff := cmp.Diff(before.V, c.V); diff != "" {
		t.Errorf("registers changed: (-before, +after)\n%s", diff)
	}
	assert.Equal(t, before.I, c.I)
	assert.Equal(t, before.SP, c.SP)
}

func TestHaltedUntilResume(t *testing.T) {
	c := vm(t, 0xFFFF, 0x6007)
	first := c.Step()
	if first == nil {
		t.Fatal("expected a decode error")
	}
	if err := c.Step(); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	assert.Equal(t, uint16(0x202), c.PC)
	if c.Faulted() == nil {
		t.Error("expected a fault")
	}

	c.Resume()
	step(t, c, 1)
	assert.Equal(t, uint8(7), c.V[0])
}

func TestResetClearsFault(t *testing.T) {
	c := vm(t, 0xFFFF)
	if err := c.Step(); err == nil {
		t.Fatal("expected a decode error")
	}
	c.Reset()
	if c.Faulted() != nil {
		t.Errorf("fault survived reset: %v", c.Faulted())
	}
	assert.Equal(t, uint16(ProgramStart), c.PC)
	assert.Equal(t, byte(0xFF), c.Memory[ProgramStart])
}

func TestRun(t *testing.T) {
	c := vm(t, 0x6001, 0x7001, 0x0000)
	err := c.Run()
	var decodeErr *DecodeErr
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeErr, got %v", err)
	}
	assert.Equal(t, uint8(2), c.V[0])
}

func TestFetchOutOfBounds(t *testing.T) {
	c := vm(t)
	c.PC = 0xFFF
	err := c.Step()
	var oob *MemoryOutOfBoundsErr
	if !errors.As(err, &oob) {
		t.Fatalf("expected *MemoryOutOfBoundsErr, got %v", err)
	}
	assert.Equal(t, uint16(0xFFF), oob.PC)
	assert.Equal(t, 0x1000, oob.Address)
}

func TestMemoryOutOfBounds(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		i      uint16
		v0     uint8
	}{
		{"draw", 0xD005, 0xFFC, 0},
		{"bcd", 0xF033, 0xFFE, 0},
		{"store", 0xF255, 0xFFE, 0},
		{"load", 0xF265, 0xFFE, 0},
		{"index overflow", 0xF065, 0x1000, 0},
		{"jump v0", 0xBFFF, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := vm(t, tt.opcode)
			c.I = tt.i
			c.V[0] = tt.v0
			c.V[1], c.V[2] = 0xAA, 0xBB
			before := c.Memory

			err := c.Step()
			var oob *MemoryOutOfBoundsErr
			if !errors.As(err, &oob) {
				t.Fatalf("expected *MemoryOutOfBoundsErr, got %v", err)
			}
			assert.Equal(t, uint16(0x200), oob.PC)
			assert.Equal(t, tt.i, c.I)
			if diff := cmp.Diff(before, c.Memory); diff != "" {
				t.Errorf("memory changed: (-before, +after)\n%s", diff)
			}
		})
	}
}

func TestJumps(t *testing.T) {
	c := vm(t, 0x1ABC)
	step(t, c, 1)
	assert.Equal(t, uint16(0xABC), c.PC)

	c = vm(t, 0xB300)
	c.V[0] = 0x10
	step(t, c, 1)
	assert.Equal(t, uint16(0x310), c.PC)
}

func TestIndex(t *testing.T) {
	c := vm(t, 0xA123, 0xF01E)
	c.V[0] = 0x10
	step(t, c, 2)
	assert.Equal(t, uint16(0x133), c.I)
}

func TestRandom(t *testing.T) {
	c := vm(t, 0xC00F, 0xC100)
	step(t, c, 2)
	assert.Equal(t, uint8(0), c.V[0]&0xF0)
	assert.Equal(t, uint8(0), c.V[1])

	// same seed, same numbers
	a := vm(t, 0xC0FF)
	b := vm(t, 0xC0FF)
	step(t, a, 1)
	step(t, b, 1)
	assert.Equal(t, a.V[0], b.V[0])
}

func TestDrawFont(t *testing.T) {
	// LD V0,0A; LD F,V0; DRW V1,V2,5; DRW V1,V2,5
	c := vm(t, 0x600A, 0xF029, 0xD125, 0xD125)
	c.ScreenDirty()
	step(t, c, 2)
	assert.Equal(t, uint16(FontAddress+0xA*5), c.I)

	step(t, c, 1)
	assert.Equal(t, uint8(0), c.V[0xF])
	assert.Equal(t, true, c.ScreenDirty())
	s := c.Snapshot()
	// "A" is F0 90 F0 90 90
	assert.Equal(t, uint64(0xF0)<<56, s.Row(0))
	assert.Equal(t, uint64(0x90)<<56, s.Row(1))
	assert.Equal(t, uint64(0x90)<<56, s.Row(4))

	step(t, c, 1)
	assert.Equal(t, uint8(1), c.V[0xF])
	assert.Equal(t, Snapshot{}, c.Snapshot())
}

func TestDrawZeroRows(t *testing.T) {
	c := vm(t, 0xD000)
	c.V[0xF] = 1
	step(t, c, 1)
	assert.Equal(t, uint8(0), c.V[0xF])
	assert.Equal(t, Snapshot{}, c.Snapshot())
}

func TestClearScreen(t *testing.T) {
	c := vm(t, 0xF029, 0xD005, 0x00E0)
	step(t, c, 2)
	if c.Snapshot() == (Snapshot{}) {
		t.Fatal("nothing was drawn")
	}
	c.ScreenDirty()
	step(t, c, 1)
	assert.Equal(t, Snapshot{}, c.Snapshot())
	assert.Equal(t, true, c.ScreenDirty())
}

func TestBCD(t *testing.T) {
	tests := []struct {
		value uint8
		want  []byte
	}{
		{157, []byte{1, 5, 7}},
		{0, []byte{0, 0, 0}},
		{255, []byte{2, 5, 5}},
		{42, []byte{0, 4, 2}},
	}
	for _, tt := range tests {
		c := vm(t, 0xA300, 0xF533)
		c.V[5] = tt.value
		step(t, c, 2)
		if diff := cmp.Diff(tt.want, c.Memory[0x300:0x303]); diff != "" {
			t.Errorf("BCD of %v: (-want, +got)\n%s", tt.value, diff)
		}
		assert.Equal(t, uint16(0x300), c.I)
	}
}

func TestStoreLoadRegisters(t *testing.T) {
	for _, quirk := range []bool{false, true} {
		c := newTestVM(t, Quirks{LoadStoreIncrementsI: quirk},
			0xA400, 0xF355, 0xA400, 0xF265)
		copy(c.V[:], []uint8{1, 2, 3, 4, 5})
		step(t, c, 2)
		if diff := cmp.Diff([]byte{1, 2, 3, 4, 0}, c.Memory[0x400:0x405]); diff != "" {
			t.Errorf("store (quirk %v): (-want, +got)\n%s", quirk, diff)
		}
		wantI := uint16(0x400)
		if quirk {
			wantI = 0x404
		}
		assert.Equal(t, wantI, c.I)

		c.V = [16]uint8{}
		step(t, c, 2)
		if diff := cmp.Diff([]uint8{1, 2, 3, 0, 0}, c.V[:5]); diff != "" {
			t.Errorf("load (quirk %v): (-want, +got)\n%s", quirk, diff)
		}
		wantI = 0x400
		if quirk {
			wantI = 0x403
		}
		assert.Equal(t, wantI, c.I)
	}
}

func TestTimerInstructions(t *testing.T) {
	c := vm(t, 0x6003, 0xF015, 0xF018, 0xF107)
	step(t, c, 3)
	assert.Equal(t, true, c.SoundActive())
	c.TickTimers()
	step(t, c, 1)
	assert.Equal(t, uint8(2), c.V[1])
	c.TickTimers()
	c.TickTimers()
	c.TickTimers()
	assert.Equal(t, Timers{}, c.Timers)
	assert.Equal(t, false, c.SoundActive())
}

func TestKeySkips(t *testing.T) {
	c := vm(t, 0xE09E, 0x0000, 0xE0A1, 0x0000)
	c.V[0] = 0xB
	assert.NoError(t, c.KeyDown(0xB))
	step(t, c, 1)
	assert.Equal(t, uint16(0x204), c.PC)
	// the key stays pressed
	assert.Equal(t, true, c.Keypad.Pressed(0xB))

	step(t, c, 1)
	assert.Equal(t, uint16(0x206), c.PC)

	assert.NoError(t, c.KeyUp(0xB))
	c.PC = 0x204
	step(t, c, 1)
	assert.Equal(t, uint16(0x208), c.PC)
}

func TestKeyDownInvalid(t *testing.T) {
	c := vm(t)
	var keyErr *InvalidKeyErr
	if err := c.KeyDown(0x10); !errors.As(err, &keyErr) {
		t.Errorf("expected *InvalidKeyErr, got %v", err)
	}
	if err := c.KeyUp(0xFF); !errors.As(err, &keyErr) {
		t.Errorf("expected *InvalidKeyErr, got %v", err)
	}
	assert.Equal(t, Keypad(0), c.Keypad)
}

func TestWaitForKey(t *testing.T) {
	c := vm(t, 0xF30A, 0x6001)
	step(t, c, 3)
	assert.Equal(t, uint16(0x200), c.PC)

	assert.NoError(t, c.KeyDown(0xE))
	assert.NoError(t, c.KeyDown(0x9))
	step(t, c, 1)
	assert.Equal(t, uint8(0x9), c.V[3])
	assert.Equal(t, uint16(0x202), c.PC)
}

func TestString(t *testing.T) {
	c := vm(t, 0x2204)
	step(t, c, 1)
	// must not panic with a non-empty stack
	if s := c.String(); s == "" {
		t.Error("empty String()")
	}
}
