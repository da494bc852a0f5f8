package stages

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sarchain/internal/artifact"
	"sarchain/internal/engine"
)

// Stage names.
const (
	NameSplitOrbit    = "split_orbit"
	NameBackGeocoding = "back_geocoding"
	NameESD           = "esd"
	NameDeburst       = "deburst"
	NameInterferogram = "interferogram"
	NameMultilook     = "multilook"
	NameGoldstein     = "goldstein"
	NameGeocode       = "displacement_terrain_correction"
)

const bilinear = "BILINEAR_INTERPOLATION"

// Stage is one checkpointed unit of work. Steps run in order; each step after
// the first consumes the previous step's product.
type Stage struct {
	Name  string
	Steps []engine.Operation
	Rule  artifact.Rule
}

// Label returns a human-readable stage name.
func (s Stage) Label() string {
	return Label(s.Name)
}

// Label converts a snake_case stage name into title case.
func Label(name string) string {
	if name == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

// OperatorNames lists the engine operators the stage runs.
func (s Stage) OperatorNames() []string {
	names := make([]string, 0, len(s.Steps))
	for _, step := range s.Steps {
		names = append(names, step.Name)
	}
	return names
}

// SplitSettings is the TOPSAR-Split parameter table.
type SplitSettings struct {
	Subswath      string
	Polarisations string
	FirstBurst    int
	LastBurst     int
}

// OrbitSettings is the Apply-Orbit-File parameter table.
type OrbitSettings struct {
	OrbitType  string
	PolyDegree int
}

// SplitOrbit splits the configured sub-swath and applies precise orbits.
func SplitOrbit(split SplitSettings, orbit OrbitSettings) Stage {
	return Stage{
		Name: NameSplitOrbit,
		Steps: []engine.Operation{
			{
				Name: "TOPSAR-Split",
				Params: engine.Params{
					{Key: "subswath", Value: engine.String(split.Subswath)},
					{Key: "selectedPolarisations", Value: engine.String(split.Polarisations)},
					{Key: "firstBurstIndex", Value: engine.Int(split.FirstBurst)},
					{Key: "lastBurstIndex", Value: engine.Int(split.LastBurst)},
				},
			},
			{
				Name: "Apply-Orbit-File",
				Params: engine.Params{
					{Key: "orbitType", Value: engine.String(orbit.OrbitType)},
					{Key: "polyDegree", Value: engine.Int(orbit.PolyDegree)},
				},
			},
		},
		Rule: artifact.SplitOrbit,
	}
}

// BackGeocoding coregisters a slave onto the master geometry using demPath.
func BackGeocoding(demPath string) Stage {
	return Stage{
		Name: NameBackGeocoding,
		Steps: []engine.Operation{{
			Name: "Back-Geocoding",
			Params: engine.Params{
				{Key: "demResamplingMethod", Value: engine.String(bilinear)},
				{Key: "externalDEMFile", Value: engine.String(demPath)},
				{Key: "externalDEMNoDataValue", Value: engine.Double(0.0)},
				{Key: "maskOutAreaWithoutElevation", Value: engine.Bool(false)},
				{Key: "outputRangeAzimuthOffset", Value: engine.Bool(false)},
				{Key: "outputDerampDemodPhase", Value: engine.Bool(false)},
			},
			Inputs: []engine.Role{engine.RoleMaster, engine.RoleSlave},
		}},
		Rule: artifact.BackGeocoded,
	}
}

// ESD refines the coregistration with Enhanced Spectral Diversity.
func ESD() Stage {
	return Stage{
		Name: NameESD,
		Steps: []engine.Operation{{
			Name: "Enhanced-Spectral-Diversity",
			Params: engine.Params{
				{Key: "Registration_Window_Width", Value: engine.Int(512)},
				{Key: "Registration_Window_Height", Value: engine.Int(512)},
				{Key: "Search_Window_Accuracy_in_Azimuth_Direction", Value: engine.Int(16)},
				{Key: "Search_Window_Accuracy_in_Range_Direction", Value: engine.Int(16)},
				{Key: "Window_Oversampling_Factor", Value: engine.Int(128)},
				{Key: "Cross_Correlation_Threshold", Value: engine.Double(0.1)},
				{Key: "Coherence_Threshold_for_Outlier_Removal", Value: engine.Double(0.3)},
				{Key: "Number_of_Windows_Per_Overlap_for_ESD", Value: engine.Int(10)},
				{Key: "ESD_Estimator", Value: engine.String("Periodogram")},
				{Key: "Weight_Function", Value: engine.String("Inv Quadratic")},
				{Key: "Temporal_Baseline_Type", Value: engine.String("Number of images")},
				{Key: "Maximum_Temporal_Baseline", Value: engine.String("Number of images")},
				{Key: "Integration_Method", Value: engine.String("L1 and L2")},
				{Key: "Overall_Range_Shift_in_Pixels", Value: engine.Double(0.0)},
				{Key: "Overall_Azimuth_Shift_in_Pixels", Value: engine.Double(0.0)},
			},
		}},
		Rule: artifact.ESD,
	}
}

// Deburst merges the bursts into a continuous product.
func Deburst() Stage {
	return Stage{
		Name:  NameDeburst,
		Steps: []engine.Operation{{Name: "TOPSAR-Deburst"}},
		Rule:  artifact.Deburst,
	}
}

// Interferogram forms the interferogram and coherence band.
func Interferogram(demPath string) Stage {
	return Stage{
		Name: NameInterferogram,
		Steps: []engine.Operation{{
			Name: "Interferogram",
			Params: engine.Params{
				{Key: "subtractFlatEarthPhase", Value: engine.Bool(true)},
				{Key: "degree", Value: engine.Int(5)},
				{Key: "numPoints", Value: engine.Int(501)},
				{Key: "orbitDegree", Value: engine.Int(3)},
				{Key: "subtractTopographicPhase", Value: engine.Bool(true)},
				{Key: "externalDEMFile", Value: engine.String(demPath)},
				{Key: "externalDEMNoDataValue", Value: engine.Double(0.0)},
				{Key: "tileExtensionPercent", Value: engine.String("100")},
				{Key: "includeCoherence", Value: engine.Bool(true)},
			},
		}},
		Rule: artifact.Interferogram,
	}
}

// Multilook averages range looks into square ground pixels.
func Multilook() Stage {
	return Stage{
		Name: NameMultilook,
		Steps: []engine.Operation{{
			Name: "Multilook",
			Params: engine.Params{
				{Key: "nRgLooks", Value: engine.Int(4)},
				{Key: "nAzLooks", Value: engine.Int(1)},
				{Key: "grSquarePixel", Value: engine.Bool(true)},
				{Key: "outputIntensity", Value: engine.Bool(false)},
			},
		}},
		Rule: artifact.Multilook,
	}
}

// Goldstein applies adaptive phase filtering.
func Goldstein() Stage {
	return Stage{
		Name: NameGoldstein,
		Steps: []engine.Operation{{
			Name: "GoldsteinPhaseFiltering",
			Params: engine.Params{
				{Key: "adaptiveFilterExponent", Value: engine.Double(1.0)},
				{Key: "fftSize", Value: engine.Int(64)},
				{Key: "windowSize", Value: engine.Int(3)},
				{Key: "coherenceThreshold", Value: engine.Double(0.2)},
			},
		}},
		Rule: artifact.Goldstein,
	}
}

// Geocode converts unwrapped phase to displacement and terrain-corrects it.
func Geocode(demPath string) Stage {
	return Stage{
		Name: NameGeocode,
		Steps: []engine.Operation{
			{
				Name: "PhaseToDisplacement",
				Params: engine.Params{
					{Key: "wavelength", Value: engine.Double(0.056)},
					{Key: "referenceDEM", Value: engine.String(demPath)},
					{Key: "demName", Value: engine.String("SRTM 3Sec")},
					{Key: "demResamplingMethod", Value: engine.String(bilinear)},
					{Key: "pixelSpacingInMeter", Value: engine.Double(10)},
					{Key: "outputType", Value: engine.String("Displacement")},
				},
			},
			{
				Name: "Terrain-Correction",
				Params: engine.Params{
					{Key: "demName", Value: engine.String("External DEM")},
					{Key: "externalDEMFile", Value: engine.String(demPath)},
					{Key: "externalDEMNoDataValue", Value: engine.Double(0.0)},
					{Key: "demResamplingMethod", Value: engine.String(bilinear)},
					{Key: "imgResamplingMethod", Value: engine.String(bilinear)},
					{Key: "pixelSpacingInMeter", Value: engine.Double(10)},
					{Key: "mapProjection", Value: engine.String("AUTO:42001")},
					{Key: "maskOutAreaWithoutElevation", Value: engine.Bool(true)},
					{Key: "outputComplex", Value: engine.Bool(false)},
				},
			},
		},
		Rule: artifact.TerrainCorrected,
	}
}

// SlaveChain returns the stages every slave runs after SplitOrbit, in order.
func SlaveChain(demPath string) []Stage {
	return []Stage{
		BackGeocoding(demPath),
		ESD(),
		Deburst(),
		Interferogram(demPath),
	}
}
