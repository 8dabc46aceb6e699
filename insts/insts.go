// Package insts provides RISC-V SYSTEM instruction definitions and decoding.
//
// This package decodes the instruction words that reach the privileged
// state of a hart. It supports:
//   - CSR access: CSRRW, CSRRS, CSRRC and their immediate forms
//   - Trap return and wait: SRET, MRET, WFI
//   - Address translation fences: SFENCE.VMA, SINVAL.VMA, SFENCE.W.INVAL,
//     SFENCE.INVAL.IR, HFENCE.VVMA, HFENCE.GVMA, HINVAL.VVMA, HINVAL.GVMA
//   - FENCE.I
//   - Hypervisor virtual-machine loads and stores: HLV, HLVX, HSV
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x300110f3) // CSRRW x1, mstatus, x2
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, CSR: %#x\n", inst.Op, inst.Rd, inst.Rs1, inst.CSR)
package insts
