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
	"fmt"

	"github.com/pkg/errors"
)

// ErrHalted is returned by Step when the machine stopped on a fatal error and
// the host has not called Resume or Reset yet.
var ErrHalted = errors.New("machine halted")

// An OutOfMemoryErr is returned upon attempting to load a program that
// exceeds the memory's capacity.
type OutOfMemoryErr struct {
	ProgramSize int64
	FreeMemory  int
}

func (e *OutOfMemoryErr) Error() string {
	return fmt.Sprintf("not enough memory (program size: %v, free memory: %v)",
		e.ProgramSize, e.FreeMemory)
}

// A DecodeErr is returned when an opcode matches no CHIP-8 instruction.
// PC is the address the opcode was fetched from.
type DecodeErr struct {
	Opcode uint16
	PC     uint16
}

func (e *DecodeErr) Error() string {
	return fmt.Sprintf("unknown opcode %04X at %04X", e.Opcode, e.PC)
}

// A StackOverflowErr is returned when a CALL is executed with a full stack.
type StackOverflowErr struct {
	PC    uint16
	Depth int
}

func (e *StackOverflowErr) Error() string {
	return fmt.Sprintf("stack overflow at %04X (depth %v)", e.PC, e.Depth)
}

// A StackUnderflowErr is returned when a RET is executed with an empty stack.
type StackUnderflowErr struct {
	PC uint16
}

func (e *StackUnderflowErr) Error() string {
	return fmt.Sprintf("stack underflow at %04X", e.PC)
}

// A MemoryOutOfBoundsErr is returned when the program tries to access memory
// outside of the address space, either through the program counter or
// through the index register.
type MemoryOutOfBoundsErr struct {
	Address int
	PC      uint16
}

func (e *MemoryOutOfBoundsErr) Error() string {
	return fmt.Sprintf("memory access out of bounds at %04X (address %04X)",
		e.PC, e.Address)
}

// An InvalidKeyErr is returned by the keypad for key indices above 0xF.
type InvalidKeyErr struct {
	Key uint8
}

func (e *InvalidKeyErr) Error() string {
	return fmt.Sprintf("invalid key %X", e.Key)
}
