// Package container frames encrypted bytecode with a fixed header: magic,
// format version, container flags, build ID, timestamp, AEAD nonce/tag,
// and payload length. Parsing authenticates before anything downstream
// ever sees plaintext.
package container

import (
	"encoding/binary"

	"github.com/polyvm/anticheat-vm/buildconfig"
	"github.com/polyvm/anticheat-vm/vmcrypto"
	"github.com/polyvm/anticheat-vm/vmerrors"
)

// HeaderSize is the fixed 56-byte framing size.
const HeaderSize = 4 + 2 + 2 + 8 + 8 + vmcrypto.NonceSize + vmcrypto.TagSize + 4

// FormatVersion is the only wire format version this package knows how to
// read.
const FormatVersion = 1

const bytecodeContext = "bytecode-encryption"

// Header is the 56-byte framing record, decoded little-endian.
type Header struct {
	Magic     [4]byte
	Version   uint16
	Flags     buildconfig.Flags
	BuildID   uint64
	Timestamp uint64
	Nonce     [vmcrypto.NonceSize]byte
	Tag       [vmcrypto.TagSize]byte
	CodeLen   uint32
}

// Container is a parsed, authenticated bytecode payload.
type Container struct {
	Header    Header
	Plaintext []byte
	// Watermark is populated only when the build embedded one (customer
	// ID was non-empty at build time); callers match it out of band.
	Watermark    [16]byte
	HasWatermark bool
}

// Emit encrypts plaintext under cfg's bytecode-encryption key, frames it
// with a header, and -- if cfg.CustomerID is set -- appends the 16-byte
// watermark trailer after the ciphertext.
func Emit(cfg *buildconfig.Config, plaintext []byte) ([]byte, error) {
	body := plaintext
	if cfg.Flags.HasIntegrity() {
		footer := make([]byte, 8)
		binary.LittleEndian.PutUint64(footer, cfg.FNV.Fnv1a64(plaintext))
		body = append(append([]byte(nil), plaintext...), footer...)
	}

	ctx := vmcrypto.NewContext(cfg.Seed[:], bytecodeContext)
	ciphertext, tag, nonce, err := ctx.Encrypt(body)
	if err != nil {
		return nil, err
	}

	h := Header{
		Magic:     cfg.Magic,
		Version:   FormatVersion,
		Flags:     cfg.Flags,
		BuildID:   cfg.BuildID,
		Timestamp: cfg.Timestamp,
		Nonce:     nonce,
		CodeLen:   uint32(len(ciphertext)),
	}
	copy(h.Tag[:], tag)

	out := make([]byte, 0, HeaderSize+len(ciphertext)+16)
	out = appendHeader(out, h)
	out = append(out, ciphertext...)

	if cfg.CustomerID != "" {
		out = append(out, cfg.Watermark[:]...)
	}
	return out, nil
}

// Parse validates the header against cfg and authenticates the payload.
// Any structural problem (bad magic, bad version, length mismatch)
// collapses to InvalidBytecode; any AEAD failure collapses to
// DecryptionFailed. No partial plaintext is ever returned on failure.
func Parse(data []byte, cfg *buildconfig.Config) (*Container, error) {
	if len(data) < HeaderSize {
		return nil, vmerrors.InvalidBytecode("input shorter than header")
	}
	h, err := parseHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	if h.Magic != cfg.Magic {
		return nil, vmerrors.InvalidBytecode("magic mismatch")
	}
	if h.Version > FormatVersion {
		return nil, vmerrors.InvalidBytecode("unsupported format version")
	}
	if h.CodeLen == 0 {
		return nil, vmerrors.InvalidBytecode("empty bytecode payload")
	}

	end := HeaderSize + int(h.CodeLen)
	if end > len(data) {
		return nil, vmerrors.InvalidBytecode("code_len exceeds input length")
	}
	ciphertext := data[HeaderSize:end]

	c := &Container{Header: h}
	rest := data[end:]
	if len(rest) == 16 {
		copy(c.Watermark[:], rest)
		c.HasWatermark = true
	} else if len(rest) != 0 {
		return nil, vmerrors.InvalidBytecode("unexpected trailing bytes")
	}

	plaintext, err := vmcrypto.Decrypt(cfg.Seed[:], bytecodeContext, h.Nonce, ciphertext, h.Tag[:])
	if err != nil {
		return nil, err
	}

	if h.Flags.HasIntegrity() {
		if len(plaintext) < 8 {
			return nil, vmerrors.InvalidBytecode("missing integrity footer")
		}
		body, footer := plaintext[:len(plaintext)-8], plaintext[len(plaintext)-8:]
		want := binary.LittleEndian.Uint64(footer)
		if cfg.FNV.Fnv1a64(body) != want {
			return nil, vmerrors.IntegrityFailed("plaintext footer mismatch")
		}
		plaintext = body
	}

	c.Plaintext = plaintext
	return c, nil
}

func appendHeader(buf []byte, h Header) []byte {
	buf = append(buf, h.Magic[:]...)
	buf = appendU16(buf, h.Version)
	buf = appendU16(buf, uint16(h.Flags))
	buf = appendU64(buf, h.BuildID)
	buf = appendU64(buf, h.Timestamp)
	buf = append(buf, h.Nonce[:]...)
	buf = append(buf, h.Tag[:]...)
	buf = appendU32(buf, h.CodeLen)
	return buf
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	copy(h.Magic[:], b[0:4])
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	h.Flags = buildconfig.Flags(binary.LittleEndian.Uint16(b[6:8]))
	h.BuildID = binary.LittleEndian.Uint64(b[8:16])
	h.Timestamp = binary.LittleEndian.Uint64(b[16:24])
	copy(h.Nonce[:], b[24:36])
	copy(h.Tag[:], b[36:52])
	h.CodeLen = binary.LittleEndian.Uint32(b[52:56])
	return h, nil
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
