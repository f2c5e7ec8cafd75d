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

// Package hachi implements a CHIP-8 virtual machine and a disassembler.
//
// The machine holds no reference to any rendering or input library. A host
// loop calls Step at whatever rate it likes, TickTimers at 60hz, feeds key
// events through KeyDown and KeyUp and reads the screen through Snapshot.
package hachi

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Memory layout.
const (
	MemorySize   = 0x1000
	ProgramStart = 0x200
	FontAddress  = 0x050
	// MaxProgramSize is the largest ROM that fits above ProgramStart.
	MaxProgramSize = MemorySize - ProgramStart
	// MaxStackSize is the maximum amount of nested calls.
	MaxStackSize = 16
)

// Fontset holds the 16 built-in hex digit sprites, 5 bytes each.
var Fontset = [80]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// -----------------------------------------------------------------------------

// Quirks selects between behaviours that differ across CHIP-8
// implementations. The zero value is the common modern behaviour.
type Quirks struct {
	// SHR VX,VY and SHL VX,VY shift VY into VX instead of shifting VX.
	ShiftUsesVY bool
	// LD [I],VX and LD VX,[I] leave I pointing past the last register.
	LoadStoreIncrementsI bool
}

// Chip8Settings holds the configuration parameters for a Chip8 instance.
type Chip8Settings struct {
	// Stack size. Defines the maximum amount of nested calls.
	StackSize int
	Quirks    Quirks
	// Source of randomness for RND VX,KK. A time-seeded source is used when
	// nil.
	Rand *rand.Rand
	// Logger receives load and fault events. slog.Default() when nil.
	Logger *slog.Logger
}

// Validate validates the settings.
// Returns an error when the settings aren't valid.
func (s *Chip8Settings) Validate() error {
	if s.StackSize < 1 || s.StackSize > MaxStackSize {
		return errors.Errorf("StackSize must be between 1 and %v, got %v",
			MaxStackSize, s.StackSize)
	}
	return nil
}

// DefaultSettings are the settings used when New is given nil.
var DefaultSettings = &Chip8Settings{
	StackSize: MaxStackSize,
}

// -----------------------------------------------------------------------------

// Chip8 is an implementation of a CHIP-8 virtual machine. It holds the state
// of the machine and is owned by a single goroutine.
type Chip8 struct {
	// The memory where programs are loaded and executed.
	// Programs start at 0x200 because the original interpreter occupied
	// those first 512 bytes. The font lives at 0x050.
	Memory [MemorySize]byte
	// V[0x0]~V[0xF] are 8-bit registers. V[0xF] doubles as a flag.
	V [16]uint8
	// 16-bit address register. Used for memory operations.
	I uint16
	// The call stack, which holds return addresses.
	Stack []uint16
	// The stack pointer. Index of the last value that was pushed on stack,
	// -1 when the stack is empty.
	SP int
	// Program counter. Holds the address of the next instruction.
	PC     uint16
	Timers Timers
	Keypad Keypad
	Screen Framebuffer

	rom    []byte
	fault  error
	dirty  bool
	rand   *rand.Rand
	logger *slog.Logger

	pLdMemory, pLdSetMemory func(c *Chip8, x uint8)
	pShr, pShl              func(c *Chip8, x, y uint8)
}

// -----------------------------------------------------------------------------

// function pointers for the quirk switches

type ldMemoryMap map[bool]func(c *Chip8, x uint8)

var ldMemory = ldMemoryMap{
	false: func(c *Chip8, x uint8) {
		for i := uint8(0); i <= x; i++ {
			c.V[i] = c.Memory[c.I+uint16(i)]
		}
	},
	true: func(c *Chip8, x uint8) {
		for i := uint8(0); i <= x; i++ {
			c.V[i] = c.Memory[c.I]
			c.I++
		}
	},
}

var ldSetMemory = ldMemoryMap{
	false: func(c *Chip8, x uint8) {
		for i := uint8(0); i <= x; i++ {
			c.Memory[c.I+uint16(i)] = c.V[i]
		}
	},
	true: func(c *Chip8, x uint8) {
		for i := uint8(0); i <= x; i++ {
			c.Memory[c.I] = c.V[i]
			c.I++
		}
	},
}

type shiftMap map[bool]func(c *Chip8, x, y uint8)

var shl = shiftMap{
	false: func(c *Chip8, x, y uint8) {
		v := c.V[x]
		c.V[x] = v << 1
		c.V[0xF] = v >> 7 // most significant bit
	},
	true: func(c *Chip8, x, y uint8) {
		v := c.V[y]
		c.V[x] = v << 1
		c.V[0xF] = v >> 7
	},
}

var shr = shiftMap{
	false: func(c *Chip8, x, y uint8) {
		v := c.V[x]
		c.V[x] = v >> 1
		c.V[0xF] = v & 0x01 // least significant bit
	},
	true: func(c *Chip8, x, y uint8) {
		v := c.V[y]
		c.V[x] = v >> 1
		c.V[0xF] = v & 0x01
	},
}

// -----------------------------------------------------------------------------

// New initializes a new instance of Chip8 with the given settings. If settings
// is nil, DefaultSettings will be used.
func New(s *Chip8Settings) (*Chip8, error) {
	if s == nil {
		s = DefaultSettings
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c := &Chip8{
		Stack:        make([]uint16, s.StackSize),
		rand:         s.Rand,
		logger:       s.Logger,
		pLdMemory:    ldMemory[s.Quirks.LoadStoreIncrementsI],
		pLdSetMemory: ldSetMemory[s.Quirks.LoadStoreIncrementsI],
		pShr:         shr[s.Quirks.ShiftUsesVY],
		pShl:         shl[s.Quirks.ShiftUsesVY],
	}
	if c.rand == nil {
		c.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.Reset()
	return c, nil
}

// String returns formatted information about the instance of the emulator.
func (c *Chip8) String() string {
	return fmt.Sprintf("Chip8{Memory: %v bytes, Registers: [% 02X] I: %04X, "+
		"Stack: % 04X, SP: %v, PC: %04X, DT: %02X, ST: %02X, "+
		"Keypad: %v, Screen: %v*%v}",
		len(c.Memory), c.V, c.I, c.Stack[:c.SP+1], c.SP, c.PC,
		c.Timers.Delay, c.Timers.Sound, c.Keypad, Width, Height)
}

// Reset puts the machine back in its initial state: everything zeroed, the
// font in memory, the loaded program (if any) copied at 0x200 and PC
// pointing at it.
func (c *Chip8) Reset() {
	c.Memory = [MemorySize]byte{}
	copy(c.Memory[FontAddress:], Fontset[:])
	copy(c.Memory[ProgramStart:], c.rom)

	c.V = [16]uint8{}
	c.I = 0
	for i := range c.Stack {
		c.Stack[i] = 0
	}
	c.SP = -1
	c.PC = ProgramStart
	c.Timers = Timers{}
	c.Keypad = 0
	c.Screen.Clear()
	c.fault = nil
	c.dirty = true
}

// Load opens a CHIP-8 binary file and loads it into memory.
// Returns the size, in bytes, of the program and an error if any.
func (c *Chip8) Load(path string) (size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "Load")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "Load")
	}

	size = fi.Size()
	if size > MaxProgramSize {
		return size, &OutOfMemoryErr{size, MaxProgramSize}
	}

	program := make([]byte, size)
	if _, err = io.ReadFull(f, program); err != nil {
		return size, errors.Wrap(err, "Load")
	}
	if err = c.LoadRaw(program); err != nil {
		return size, err
	}
	c.logger.Info("loaded program", "path", path, "size", size)
	return size, nil
}

// LoadRaw loads a byte array as a CHIP-8 binary into memory and resets the
// machine.
func (c *Chip8) LoadRaw(program []byte) error {
	if len(program) > MaxProgramSize {
		return &OutOfMemoryErr{int64(len(program)), MaxProgramSize}
	}
	c.rom = append([]byte(nil), program...)
	c.Reset()
	return nil
}

// Program returns the bytes of the loaded program.
func (c *Chip8) Program() []byte { return c.rom }

// Faulted returns the fatal error that halted the machine, or nil if it's
// running.
func (c *Chip8) Faulted() error { return c.fault }

// Resume clears a fault so that Step executes instructions again. The
// machine continues from the instruction after the faulting one.
func (c *Chip8) Resume() { c.fault = nil }

// KeyDown marks key k as pressed.
func (c *Chip8) KeyDown(k uint8) error { return c.Keypad.Press(k) }

// KeyUp marks key k as released.
func (c *Chip8) KeyUp(k uint8) error { return c.Keypad.Release(k) }

// TickTimers advances the delay and sound timers by one 60hz frame.
func (c *Chip8) TickTimers() { c.Timers.Tick() }

// SoundActive reports whether the sound timer is non-zero.
func (c *Chip8) SoundActive() bool { return c.Timers.SoundActive() }

// Snapshot returns a copy of the screen.
func (c *Chip8) Snapshot() Snapshot { return c.Screen.Snapshot() }

// ScreenDirty reports whether the screen changed since the last call.
func (c *Chip8) ScreenDirty() bool {
	d := c.dirty
	c.dirty = false
	return d
}

// -----------------------------------------------------------------------------

// Step fetches, decodes and executes one instruction. Returns an error if
// any, in which case the machine halts: none of the instruction's effects
// are applied (PC has still moved past the fetched opcode) and further calls
// return ErrHalted until Resume or Reset is called.
func (c *Chip8) Step() error {
	if c.fault != nil {
		return errors.Wrapf(ErrHalted, "%v", c.fault)
	}

	pc := c.PC
	if int(pc)+1 >= MemorySize {
		addr := int(pc)
		if addr < MemorySize {
			addr++
		}
		return c.halt(&MemoryOutOfBoundsErr{addr, pc})
	}

	opcode := uint16(c.Memory[pc])<<8 | uint16(c.Memory[pc+1])
	c.PC += 2

	in, err := Decode(opcode)
	if err != nil {
		return c.halt(&DecodeErr{opcode, pc})
	}
	if err = c.execute(in, pc); err != nil {
		return c.halt(err)
	}
	return nil
}

// Run steps the machine until an error occurs.
// Timers are not ticked, that is left to the host.
func (c *Chip8) Run() (err error) {
	for err == nil {
		err = c.Step()
	}
	return
}

func (c *Chip8) halt(err error) error {
	c.fault = err
	c.logger.Warn("machine halted", "err", err)
	return err
}

// checkRange makes sure that n bytes starting at start are addressable.
func (c *Chip8) checkRange(start, n int, pc uint16) error {
	if start+n <= MemorySize {
		return nil
	}
	addr := start
	if addr < MemorySize {
		addr = MemorySize
	}
	return &MemoryOutOfBoundsErr{addr, pc}
}

func (c *Chip8) jump(addr int, pc uint16) error {
	if err := c.checkRange(addr, 1, pc); err != nil {
		return err
	}
	c.PC = uint16(addr)
	return nil
}

func (c *Chip8) skipIf(cond bool, pc uint16) error {
	if !cond {
		return nil
	}
	return c.jump(int(c.PC)+2, pc)
}

// execute applies the effects of an instruction. pc is the address it was
// fetched from and c.PC already points at the next one. Every check happens
// before the first write.
func (c *Chip8) execute(in Instruction, pc uint16) error {
	x, y := in.X, in.Y

	switch in.Op {
	case OpCls:
		c.Screen.Clear()
		c.dirty = true
	case OpRet:
		// pop return address
		if c.SP < 0 {
			return &StackUnderflowErr{pc}
		}
		c.PC = c.Stack[c.SP]
		c.SP--
	case OpJp:
		c.PC = in.NNN
	case OpCall:
		if c.SP >= len(c.Stack)-1 {
			return &StackOverflowErr{pc, len(c.Stack)}
		}
		// push return address
		c.SP++
		c.Stack[c.SP] = c.PC
		c.PC = in.NNN
	case OpSeByte:
		return c.skipIf(c.V[x] == in.KK, pc)
	case OpSneByte:
		return c.skipIf(c.V[x] != in.KK, pc)
	case OpSeReg:
		return c.skipIf(c.V[x] == c.V[y], pc)
	case OpSneReg:
		return c.skipIf(c.V[x] != c.V[y], pc)
	case OpLdByte:
		c.V[x] = in.KK
	case OpAddByte:
		c.V[x] += in.KK
	case OpLdReg:
		c.V[x] = c.V[y]
	case OpOr:
		c.V[x] |= c.V[y]
	case OpAnd:
		c.V[x] &= c.V[y]
	case OpXor:
		c.V[x] ^= c.V[y]
	case OpAddReg:
		sum := uint16(c.V[x]) + uint16(c.V[y])
		// only store the 8 least significant bits
		c.V[x] = uint8(sum)
		c.V[0xF] = flag(sum > 0xFF)
	case OpSub:
		vx, vy := c.V[x], c.V[y]
		c.V[x] = vx - vy
		c.V[0xF] = flag(vx >= vy)
	case OpShr:
		c.pShr(c, x, y)
	case OpSubn:
		vx, vy := c.V[x], c.V[y]
		c.V[x] = vy - vx
		c.V[0xF] = flag(vy >= vx)
	case OpShl:
		c.pShl(c, x, y)
	case OpLdI:
		c.I = in.NNN
	case OpJpV0:
		return c.jump(int(in.NNN)+int(c.V[0]), pc)
	case OpRnd:
		c.V[x] = uint8(c.rand.Intn(0x100)) & in.KK
	case OpDrw:
		rows := int(in.N)
		if err := c.checkRange(int(c.I), rows, pc); err != nil {
			return err
		}
		sprite := c.Memory[c.I : int(c.I)+rows]
		collision := c.Screen.Blit(c.V[x], c.V[y], sprite)
		c.V[0xF] = flag(collision)
		c.dirty = true
	case OpSkp:
		return c.skipIf(c.Keypad.Pressed(c.V[x]), pc)
	case OpSknp:
		return c.skipIf(!c.Keypad.Pressed(c.V[x]), pc)
	case OpLdVxDT:
		c.V[x] = c.Timers.Delay
	case OpLdVxK:
		k, ok := c.Keypad.First()
		if !ok {
			// execute this instruction again on the next step
			c.PC = pc
			return nil
		}
		c.V[x] = k
	case OpLdDTVx:
		c.Timers.Delay = c.V[x]
	case OpLdSTVx:
		c.Timers.Sound = c.V[x]
	case OpAddI:
		c.I += uint16(c.V[x])
	case OpLdFont:
		c.I = FontAddress + uint16(c.V[x])*5
	case OpLdBcd:
		if err := c.checkRange(int(c.I), 3, pc); err != nil {
			return err
		}
		value := c.V[x]
		c.Memory[c.I] = value / 100       // hundreds
		c.Memory[c.I+1] = value / 10 % 10 // tens
		c.Memory[c.I+2] = value % 10      // ones
	case OpLdSetMemory:
		if err := c.checkRange(int(c.I), int(x)+1, pc); err != nil {
			return err
		}
		c.pLdSetMemory(c, x)
	case OpLdMemory:
		if err := c.checkRange(int(c.I), int(x)+1, pc); err != nil {
			return err
		}
		c.pLdMemory(c, x)
	default:
		return &DecodeErr{in.Opcode, pc}
	}
	return nil
}
