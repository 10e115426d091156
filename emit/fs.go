package emit

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/afero"

	"github.com/bpfs/txsc/ir"
)

// Target selects emit.WriteToFS's output form.
type Target int

const (
	// TargetASM writes the textual mnemonic form (Text).
	TargetASM Target = iota
	// TargetHex writes the binary consensus encoding (Binary), hex-encoded.
	TargetHex
)

// WriteToFS renders prog per target and writes it to path on fs. Using
// afero rather than the os package directly lets callers substitute an
// in-memory filesystem in tests without touching disk.
func WriteToFS(fs afero.Fs, path string, prog *ir.Program, target Target) error {
	var content []byte
	switch target {
	case TargetASM:
		text, err := Text(prog)
		if err != nil {
			return err
		}
		content = []byte(text + "\n")

	case TargetHex:
		bin, err := Binary(prog)
		if err != nil {
			return err
		}
		content = []byte(hex.EncodeToString(bin) + "\n")

	default:
		return fmt.Errorf("emit: unknown target %d", target)
	}
	return afero.WriteFile(fs, path, content, 0o644)
}
