// Package chip8 provides the CHIP-8 backend.
//
// # CHIP-8 Architecture Overview
//
// CHIP-8 is an interpreted programming language developed in the 1970s for simple games
// on early microcomputers. Its virtual machine has 4KB of memory:
//   - 0x000-0x1FF: Interpreter area (not used for user programs)
//   - ProgramStart-MaxAddress: User program and data area
//
// # Instruction Set
//
//   - All instructions are 2 bytes (16 bits), stored big endian
//   - Instructions use direct addressing with 12-bit addresses
//   - 16 general-purpose 8-bit registers (V0-VF), VF doubles as carry flag
//   - Special-purpose registers: I (16-bit), DT and ST timers
//
// # Decoding
//
// The opcode tables are generated from the retrogolib CHIP-8 opcode masks.
// The first byte selects a continuation whose table is indexed by the
// second byte. First bytes share a table unless an opcode of their group
// depends on the register nibble, like CLS and RET in group 0.
//
// # Lowering
//
// Skip instructions become conditional branches over the next instruction,
// the carry and borrow results of arithmetic are assignments to VF and
// display, keypad, timer and random number access are intrinsics.
package chip8
