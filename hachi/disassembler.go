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

// A Line is one disassembled instruction or one chunk of raw data.
type Line struct {
	Address uint16
	// Raw bytes, 2 for an instruction, 1 or 2 for raw data.
	Data []byte
	// Instruction is meaningful only when Valid is true.
	Instruction Instruction
	Valid       bool
}

// Size returns the size of the line in bytes.
func (l Line) Size() int { return len(l.Data) }

// Opcode returns the raw data as a 16-bit integer.
func (l Line) Opcode() (res uint16) {
	res = uint16(l.Data[0])
	if len(l.Data) == 2 {
		res <<= 8
		res |= uint16(l.Data[1])
	}
	return
}

// String returns a pseudo-asm representation of the line.
func (l Line) String() string {
	if l.Valid {
		return l.Instruction.String()
	}
	return fmt.Sprintf("DB % 02X", l.Data)
}

// Description returns a detailed description of what the line does.
func (l Line) Description() string {
	if l.Valid {
		return l.Instruction.Description()
	}
	return ops[OpInvalid].description
}

// ASCII returns the ASCII representation of the raw data for this line.
// Returns an empty string if the data is not printable ascii.
func (l Line) ASCII() (res string) {
	if isPrintableASCII(l.Data) {
		res = string(l.Data)
	}
	return
}

// -----------------------------------------------------------------------------

// Disassemble decodes raw program data loaded at base into a listing.
// It's fast but it cannot handle odd-aligned opcodes or recognize raw data
// memory regions: every 2 bytes are decoded as one opcode, words that aren't
// valid opcodes and a trailing odd byte are listed as raw data.
func Disassemble(b []byte, base uint16) []Line {
	res := make([]Line, 0, (len(b)+1)/2)

	for i := 0; i < len(b); i += 2 {
		end := i + 2
		if end > len(b) {
			end = len(b)
		}
		line := Line{Address: base + uint16(i), Data: b[i:end]}

		if len(line.Data) == 2 {
			in, err := Decode(line.Opcode())
			line.Instruction = in
			line.Valid = err == nil
		}
		res = append(res, line)
	}

	return res
}
