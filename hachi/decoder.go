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

import "fmt"

// Op identifies a CHIP-8 instruction independently of its operands.
type Op uint8

// Instructions of the base CHIP-8 set. The comment is the opcode pattern.
const (
	OpInvalid     Op = iota
	OpCls         // 00E0
	OpRet         // 00EE
	OpJp          // 1NNN
	OpCall        // 2NNN
	OpSeByte      // 3XKK
	OpSneByte     // 4XKK
	OpSeReg       // 5XY0
	OpLdByte      // 6XKK
	OpAddByte     // 7XKK
	OpLdReg       // 8XY0
	OpOr          // 8XY1
	OpAnd         // 8XY2
	OpXor         // 8XY3
	OpAddReg      // 8XY4
	OpSub         // 8XY5
	OpShr         // 8XY6
	OpSubn        // 8XY7
	OpShl         // 8XYE
	OpSneReg      // 9XY0
	OpLdI         // ANNN
	OpJpV0        // BNNN
	OpRnd         // CXKK
	OpDrw         // DXYN
	OpSkp         // EX9E
	OpSknp        // EXA1
	OpLdVxDT      // FX07
	OpLdVxK       // FX0A
	OpLdDTVx      // FX15
	OpLdSTVx      // FX18
	OpAddI        // FX1E
	OpLdFont      // FX29
	OpLdBcd       // FX33
	OpLdSetMemory // FX55
	OpLdMemory    // FX65
	opCount
)

// operand layouts, used to format instructions
type operands uint8

const (
	noOperands operands = iota
	addrOperand
	regByteOperands
	regRegOperands
	regOperand
	drawOperands
)

type opInfo struct {
	format      string
	operands    operands
	description string
}

var ops = [opCount]opInfo{
	OpInvalid:     {"DW %04X", noOperands, "Unknown / Raw Data"},
	OpCls:         {"CLS", noOperands, "00E0: Clears the screen."},
	OpRet:         {"RET", noOperands, "00EE: Returns from a subroutine."},
	OpJp:          {"JP %03X", addrOperand, "1NNN: Jumps to address NNN."},
	OpCall:        {"CALL %03X", addrOperand, "2NNN: Calls subroutine at NNN."},
	OpSeByte:      {"SE V%X,%02X", regByteOperands, "3XKK: Skips the next instruction if VX equals KK."},
	OpSneByte:     {"SNE V%X,%02X", regByteOperands, "4XKK: Skips the next instruction if VX doesn't equal KK."},
	OpSeReg:       {"SE V%X,V%X", regRegOperands, "5XY0: Skips the next instruction if VX equals VY."},
	OpLdByte:      {"LD V%X,%02X", regByteOperands, "6XKK: Sets VX to KK."},
	OpAddByte:     {"ADD V%X,%02X", regByteOperands, "7XKK: Adds KK to VX, without carry."},
	OpLdReg:       {"LD V%X,V%X", regRegOperands, "8XY0: Sets VX to the value of VY."},
	OpOr:          {"OR V%X,V%X", regRegOperands, "8XY1: Sets VX to VX | VY (bit-wise OR)."},
	OpAnd:         {"AND V%X,V%X", regRegOperands, "8XY2: Sets VX to VX & VY (bit-wise AND)."},
	OpXor:         {"XOR V%X,V%X", regRegOperands, "8XY3: Sets VX to VX ^ VY (bit-wise XOR)."},
	OpAddReg:      {"ADD V%X,V%X", regRegOperands, "8XY4: Adds VY to VX. VF is set to 1 on carry, 0 otherwise."},
	OpSub:         {"SUB V%X,V%X", regRegOperands, "8XY5: Subtracts VY from VX. VF is set to 0 on borrow, 1 otherwise."},
	OpShr:         {"SHR V%X,V%X", regRegOperands, "8XY6: Shifts VX right by one. VF is set to the bit shifted out."},
	OpSubn:        {"SUBN V%X,V%X", regRegOperands, "8XY7: Sets VX to VY - VX. VF is set to 0 on borrow, 1 otherwise."},
	OpShl:         {"SHL V%X,V%X", regRegOperands, "8XYE: Shifts VX left by one. VF is set to the bit shifted out."},
	OpSneReg:      {"SNE V%X,V%X", regRegOperands, "9XY0: Skips the next instruction if VX doesn't equal VY."},
	OpLdI:         {"LD I,%03X", addrOperand, "ANNN: Sets I to the address NNN."},
	OpJpV0:        {"JP V0,%03X", addrOperand, "BNNN: Jumps to the address NNN plus V0."},
	OpRnd:         {"RND V%X,%02X", regByteOperands, "CXKK: Sets VX to a random number AND KK."},
	OpDrw:         {"DRW V%X,V%X,%X", drawOperands, "DXYN: Draws an 8xN sprite from I at VX,VY. VF is set to 1 on collision."},
	OpSkp:         {"SKP V%X", regOperand, "EX9E: Skips the next instruction if the key stored in VX is pressed."},
	OpSknp:        {"SKNP V%X", regOperand, "EXA1: Skips the next instruction if the key stored in VX isn't pressed."},
	OpLdVxDT:      {"LD V%X,DT", regOperand, "FX07: Sets VX to the value of the delay timer."},
	OpLdVxK:       {"LD V%X,K", regOperand, "FX0A: Waits for a key press and stores it in VX."},
	OpLdDTVx:      {"LD DT,V%X", regOperand, "FX15: Sets the delay timer to VX."},
	OpLdSTVx:      {"LD ST,V%X", regOperand, "FX18: Sets the sound timer to VX."},
	OpAddI:        {"ADD I,V%X", regOperand, "FX1E: Adds VX to I."},
	OpLdFont:      {"LD F,V%X", regOperand, "FX29: Sets I to the location of the font sprite for the digit in VX."},
	OpLdBcd:       {"LD B,V%X", regOperand, "FX33: Stores the BCD representation of VX at I, I+1 and I+2."},
	OpLdSetMemory: {"LD [I],V%X", regOperand, "FX55: Stores V0 to VX in memory starting at address I."},
	OpLdMemory:    {"LD V%X,[I]", regOperand, "FX65: Fills V0 to VX with values from memory starting at address I."},
}

// Instruction is a decoded opcode. All operand fields are extracted for
// every instruction; which of them are meaningful depends on Op.
type Instruction struct {
	Op     Op
	Opcode uint16
	X, Y   uint8  // register nibbles
	N      uint8  // lowest nibble
	KK     uint8  // lowest byte
	NNN    uint16 // lowest 12 bits
}

// Decode maps a raw opcode to an Instruction. It returns a *DecodeErr if the
// opcode isn't part of the CHIP-8 instruction set; the returned error has a
// zero PC since Decode doesn't know where the opcode came from.
func Decode(opcode uint16) (Instruction, error) {
	in := Instruction{
		Opcode: opcode,
		X:      uint8(opcode & 0x0F00 >> 8),
		Y:      uint8(opcode & 0x00F0 >> 4),
		N:      uint8(opcode & 0x000F),
		KK:     uint8(opcode & 0x00FF),
		NNN:    opcode & 0x0FFF,
	}

	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x00E0:
			in.Op = OpCls
		case 0x00EE:
			in.Op = OpRet
		}
	case 0x1000:
		in.Op = OpJp
	case 0x2000:
		in.Op = OpCall
	case 0x3000:
		in.Op = OpSeByte
	case 0x4000:
		in.Op = OpSneByte
	case 0x5000:
		if in.N == 0 {
			in.Op = OpSeReg
		}
	case 0x6000:
		in.Op = OpLdByte
	case 0x7000:
		in.Op = OpAddByte
	case 0x8000:
		switch in.N {
		case 0x0:
			in.Op = OpLdReg
		case 0x1:
			in.Op = OpOr
		case 0x2:
			in.Op = OpAnd
		case 0x3:
			in.Op = OpXor
		case 0x4:
			in.Op = OpAddReg
		case 0x5:
			in.Op = OpSub
		case 0x6:
			in.Op = OpShr
		case 0x7:
			in.Op = OpSubn
		case 0xE:
			in.Op = OpShl
		}
	case 0x9000:
		if in.N == 0 {
			in.Op = OpSneReg
		}
	case 0xA000:
		in.Op = OpLdI
	case 0xB000:
		in.Op = OpJpV0
	case 0xC000:
		in.Op = OpRnd
	case 0xD000:
		in.Op = OpDrw
	case 0xE000:
		switch in.KK {
		case 0x9E:
			in.Op = OpSkp
		case 0xA1:
			in.Op = OpSknp
		}
	case 0xF000:
		switch in.KK {
		case 0x07:
			in.Op = OpLdVxDT
		case 0x0A:
			in.Op = OpLdVxK
		case 0x15:
			in.Op = OpLdDTVx
		case 0x18:
			in.Op = OpLdSTVx
		case 0x1E:
			in.Op = OpAddI
		case 0x29:
			in.Op = OpLdFont
		case 0x33:
			in.Op = OpLdBcd
		case 0x55:
			in.Op = OpLdSetMemory
		case 0x65:
			in.Op = OpLdMemory
		}
	}

	if in.Op == OpInvalid {
		return in, &DecodeErr{Opcode: opcode}
	}
	return in, nil
}

// String returns a pseudo-asm representation of the instruction.
func (in Instruction) String() string {
	info := ops[OpInvalid]
	if in.Op < opCount {
		info = ops[in.Op]
	}

	switch info.operands {
	case addrOperand:
		return fmt.Sprintf(info.format, in.NNN)
	case regByteOperands:
		return fmt.Sprintf(info.format, in.X, in.KK)
	case regRegOperands:
		return fmt.Sprintf(info.format, in.X, in.Y)
	case regOperand:
		return fmt.Sprintf(info.format, in.X)
	case drawOperands:
		return fmt.Sprintf(info.format, in.X, in.Y, in.N)
	}
	if in.Op == OpInvalid || in.Op >= opCount {
		return fmt.Sprintf(ops[OpInvalid].format, in.Opcode)
	}
	return info.format
}

// Description returns a detailed description of what the instruction does.
func (in Instruction) Description() string {
	if in.Op >= opCount {
		return ops[OpInvalid].description
	}
	return ops[in.Op].description
}
