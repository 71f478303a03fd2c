package vl53l1x

// Register addresses (16-bit, sent big-endian).
const (
	regVHVConfigTimeoutLoopBound = 0x0008
	regVHVConfigInit             = 0x000b
	regGPIOHVMuxCtrl             = 0x0030
	regGPIOTIOHVStatus           = 0x0031
	regPhasecalTimeoutMacrop     = 0x004b
	regRangeTimeoutAHi           = 0x005e
	regRangeVCSELPeriodA         = 0x0060
	regRangeTimeoutBHi           = 0x0061
	regRangeVCSELPeriodB         = 0x0063
	regRangeValidPhaseHigh       = 0x0069
	regIntermeasurementPeriod    = 0x006c
	regSDConfigWOISD0            = 0x0078
	regSDConfigInitialPhaseSD0   = 0x007a
	regInterruptClear            = 0x0086
	regModeStart                 = 0x0087
	regResultRangeStatus         = 0x0089
	regResultRangeMM             = 0x0096
	regResultOscCalibrateVal     = 0x00de
	regFirmwareSystemStatus      = 0x00e5
)

const (
	modeStartRanging = 0x40
	modeStopRanging  = 0x00

	phasecalShort = 0x14
	phasecalLong  = 0x0a
)

// timeouts holds the A_HI/B_HI macro-period pair for a budget.
type timeouts struct{ a, b uint16 }

var shortTimeouts = map[TimingBudget]timeouts{
	Budget15ms:  {0x001d, 0x0027},
	Budget20ms:  {0x0051, 0x006e},
	Budget33ms:  {0x00d6, 0x006e},
	Budget50ms:  {0x01ae, 0x01e8},
	Budget100ms: {0x02e1, 0x0388},
	Budget200ms: {0x03e1, 0x0496},
	Budget500ms: {0x0591, 0x05c1},
}

// 15 ms is not available in long mode.
var longTimeouts = map[TimingBudget]timeouts{
	Budget20ms:  {0x001e, 0x0022},
	Budget33ms:  {0x0060, 0x006e},
	Budget50ms:  {0x00ad, 0x00c6},
	Budget100ms: {0x01cc, 0x01ea},
	Budget200ms: {0x02d9, 0x02f8},
	Budget500ms: {0x048f, 0x04a4},
}

// distance-mode register sets
type modeRegs struct {
	phasecal, vcselA, vcselB, validPhase uint8
	woi, initialPhase                    uint16
}

var (
	shortModeRegs = modeRegs{phasecalShort, 0x07, 0x05, 0x38, 0x0705, 0x0606}
	longModeRegs  = modeRegs{phasecalLong, 0x0f, 0x0d, 0xb8, 0x0f0d, 0x0e0e}
)
