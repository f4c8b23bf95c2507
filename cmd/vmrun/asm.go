package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/compiler"
	"github.com/polyvm/anticheat-vm/opcode"
)

// textEmitter backs the debug assembler: a minimal line-oriented mnemonic
// format good enough to hand-author the small test programs this CLI
// runs. It is not the AST-to-bytecode compiler -- there is no host
// language here, just opcode mnemonics -- but it honours the same
// compiler.Emitter contract a real one would, so the contract is
// exercised by something rather than sitting unused.
type textEmitter struct {
	table   *buildconfig.OpcodeTable
	policy  compiler.AliasPolicy
	buf     []byte
	labels  map[compiler.LabelID]int
	pending []pendingJump
	nextLbl compiler.LabelID
}

type pendingJump struct {
	pos    int
	target compiler.LabelID
}

func newTextEmitter(table *buildconfig.OpcodeTable, policy compiler.AliasPolicy) *textEmitter {
	return &textEmitter{table: table, policy: policy, labels: make(map[compiler.LabelID]int)}
}

func (e *textEmitter) encode(b opcode.Base) (byte, error) {
	primary, ok := e.table.Encode[b]
	if !ok {
		return 0, fmt.Errorf("asm: no encoding for base 0x%02x", byte(b))
	}
	if e.policy == nil {
		return primary, nil
	}
	candidates := append([]byte{primary}, e.table.Aliases[b]...)
	return e.policy.Choose(b, candidates), nil
}

func (e *textEmitter) EmitBase(b opcode.Base) error {
	enc, err := e.encode(b)
	if err != nil {
		return err
	}
	e.buf = append(e.buf, enc)
	return nil
}

func (e *textEmitter) EmitImm8(b opcode.Base, v uint8) error {
	if err := e.EmitBase(b); err != nil {
		return err
	}
	e.buf = append(e.buf, v)
	return nil
}

func (e *textEmitter) EmitImm16(b opcode.Base, v uint16) error {
	if err := e.EmitBase(b); err != nil {
		return err
	}
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
	return nil
}

func (e *textEmitter) EmitImm32(b opcode.Base, v uint32) error {
	if err := e.EmitBase(b); err != nil {
		return err
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
	return nil
}

func (e *textEmitter) EmitImm64(b opcode.Base, v uint64) error {
	if err := e.EmitBase(b); err != nil {
		return err
	}
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
	return nil
}

func (e *textEmitter) Label() compiler.LabelID {
	e.nextLbl++
	return e.nextLbl
}

// EmitJump reserves a two-byte relative displacement, patched in Finish
// once every label is bound.
func (e *textEmitter) EmitJump(b opcode.Base, target compiler.LabelID) error {
	if err := e.EmitBase(b); err != nil {
		return err
	}
	pos := len(e.buf)
	e.buf = append(e.buf, 0, 0)
	e.pending = append(e.pending, pendingJump{pos: pos, target: target})
	return nil
}

func (e *textEmitter) Bind(label compiler.LabelID) error {
	e.labels[label] = len(e.buf)
	return nil
}

func (e *textEmitter) Pos() int { return len(e.buf) }

func (e *textEmitter) Finish() ([]byte, error) {
	for _, pj := range e.pending {
		target, ok := e.labels[pj.target]
		if !ok {
			return nil, fmt.Errorf("asm: label %d referenced but never bound", pj.target)
		}
		rel := int32(target - (pj.pos + 2))
		if rel < -32768 || rel > 32767 {
			return nil, fmt.Errorf("asm: jump displacement %d out of i16 range", rel)
		}
		binary.LittleEndian.PutUint16(e.buf[pj.pos:pj.pos+2], uint16(int16(rel)))
	}
	return e.buf, nil
}

var mnemonicToBase = func() map[string]opcode.Base {
	m := make(map[string]opcode.Base)
	for _, b := range opcode.All() {
		info, _ := opcode.Lookup(b)
		m[info.Name] = b
	}
	return m
}()

var jumpMnemonics = map[string]bool{
	"JMP": true, "JZ": true, "JNZ": true, "JGT": true,
	"JLT": true, "JGE": true, "JLE": true, "CALL": true,
}

// assemble turns a line-oriented mnemonic program into plaintext
// bytecode. Lines are "MNEMONIC [operand]", a bare "label:" to bind a
// jump target, or a blank/"#"-prefixed line to ignore. Jump/call operands
// name a label instead of a numeric offset; every other operand is a
// decimal or 0x-prefixed integer literal.
func assemble(src string, table *buildconfig.OpcodeTable, policy compiler.AliasPolicy) ([]byte, error) {
	em := newTextEmitter(table, policy)
	labels := make(map[string]compiler.LabelID)
	labelOf := func(name string) compiler.LabelID {
		if id, ok := labels[name]; ok {
			return id
		}
		id := em.Label()
		labels[name] = id
		return id
	}

	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ":") {
			if err := em.Bind(labelOf(strings.TrimSuffix(line, ":"))); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		fields := strings.Fields(line)
		mnem := strings.ToUpper(fields[0])
		base, ok := mnemonicToBase[mnem]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown mnemonic %q", lineNo, fields[0])
		}

		var operand string
		if len(fields) > 1 {
			operand = fields[1]
		}

		var err error
		switch {
		case jumpMnemonics[mnem]:
			err = em.EmitJump(base, labelOf(operand))
		case operand == "":
			err = em.EmitBase(base)
		default:
			info, _ := opcode.Lookup(base)
			switch info.OperandBytes {
			case 1, 2, 4, 8:
				n, parseErr := strconv.ParseUint(operand, 0, info.OperandBytes*8)
				if parseErr != nil {
					return nil, fmt.Errorf("line %d: bad operand %q: %w", lineNo, operand, parseErr)
				}
				switch info.OperandBytes {
				case 1:
					err = em.EmitImm8(base, uint8(n))
				case 2:
					err = em.EmitImm16(base, uint16(n))
				case 4:
					err = em.EmitImm32(base, uint32(n))
				case 8:
					err = em.EmitImm64(base, n)
				}
			default:
				return nil, fmt.Errorf("line %d: %s has an operand shape this assembler can't pack from one literal (width %d)", lineNo, mnem, info.OperandBytes)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return em.Finish()
}
