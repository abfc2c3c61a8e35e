package display

import (
	"fmt"
	"os"

	"github.com/Leiden-Cell-Observatory/wellstitch/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner() {
	if term.Magenta != "" {
		fmt.Fprint(os.Stdout, term.Magenta)
	}
	fmt.Fprint(os.Stdout, `__        __   _ _ ____  _   _ _       _
\ \      / /__| | / ___|| |_(_) |_ ___| |__
 \ \ /\ / / _ \ | \___ \| __| | __/ __| '_ \
  \ V  V /  __/ | |___) | |_| | || (__| | | |
   \_/\_/ \___|_|_|____/ \__|_|\__\___|_| |_|
`)
	if term.Magenta != "" {
		fmt.Fprintln(os.Stdout, term.NC)
	}
}
