package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"sarchain/internal/services"
)

// Rule replaces the From suffix of an input base name with To.
type Rule struct {
	From string
	To   string
}

func (r Rule) String() string {
	return r.From + " -> " + r.To
}

const (
	safeExt = ".SAFE"
	dimExt  = ".dim"
)

// Checkpoint rules, keyed by the stage that writes them.
var (
	SplitOrbit       = Rule{From: safeExt, To: "_split_orbit.dim"}
	BackGeocoded     = Rule{From: safeExt, To: "_split_orbit_backgeo.dim"}
	ESD              = Rule{From: safeExt, To: "_esd.dim"}
	Deburst          = Rule{From: safeExt, To: "_deburst.dim"}
	Interferogram    = Rule{From: safeExt, To: "_interferogram.dim"}
	Multilook        = Rule{From: dimExt, To: "_multilook.dim"}
	Goldstein        = Rule{From: dimExt, To: "_goldstein.dim"}
	TerrainCorrected = Rule{From: dimExt, To: "_displacement_terrain_corr.dim"}
)

// Derive returns the checkpoint path for inputPath under outputDir.
// The input base name must end with rule.From.
func Derive(outputDir, inputPath string, rule Rule) (string, error) {
	if rule.From == "" || rule.To == "" {
		return "", services.Wrap(services.ErrConfiguration, "artifact", "derive", fmt.Sprintf("incomplete rule %q", rule), nil)
	}
	base := filepath.Base(strings.TrimRight(inputPath, string(filepath.Separator)))
	stem, ok := strings.CutSuffix(base, rule.From)
	if !ok || stem == "" {
		return "", services.Wrap(services.ErrConfiguration, "artifact", "derive",
			fmt.Sprintf("%s does not end with %s", base, rule.From), nil)
	}
	return filepath.Join(outputDir, stem+rule.To), nil
}

// companionDir returns the DIMAP data directory that accompanies a .dim header.
func companionDir(path string) string {
	stem, ok := strings.CutSuffix(path, dimExt)
	if !ok {
		return ""
	}
	return stem + ".data"
}
