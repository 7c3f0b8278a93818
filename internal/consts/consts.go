package consts

const (
	CriticalBand         = 1e-9 // |zeta-1| below this is critical damping
	SteadyPeriods        = 2.0  // drive periods kept by the steady-state window
	PhaseWrapDeg         = 180.0
	HalfPowerDB          = 3.010299956639812 // 10*log10(2)
	DefaultRelTol        = 1e-10
	DefaultAbsTol        = 1e-15
	DefaultMaxSteps      = 5_000_000
	DefaultSubsteps      = 20
	MinStepFactor        = 1e-14 // relative to the current time scale
	MaxStepGrowth        = 5.0
	MinStepShrink        = 0.2
	StepSafetyFactor     = 0.9
	DefaultImplicitOrder = 2
	MaxGearOrder         = 6 // highest tabulated BDF
	MaxTrapezoidalOrder  = 2
)
