package prompt

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed template/system.txt
var systemRaw string

// System returns the fixed system instructions, optionally extended with
// an injected project summary so the model has schedule context without a
// tool round-trip.
func System(projectContext string) string {
	base := strings.TrimSpace(systemRaw)
	ctx := strings.TrimSpace(projectContext)
	if ctx == "" {
		return base
	}
	return fmt.Sprintf("%s\n\nProject context:\n%s", base, ctx)
}
