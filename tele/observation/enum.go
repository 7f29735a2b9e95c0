package observation

import "fmt"

type ReasonForNoCurrent int64

var reasonText = map[ReasonForNoCurrent]string{
	0:   "No reason",
	1:   "Max circuit current too low",
	2:   "Max dynamic circuit current too low",
	3:   "Max dynamic offline fallback circuit current too low",
	4:   "Circuit fuse too low",
	5:   "Waiting in queue",
	6:   "Waiting in fully charged queue",
	7:   "Illegal grid type",
	8:   "Primary unit has not received current request from secondary unit",
	9:   "Master communication lost",
	10:  "No current from equalizer",
	11:  "No current, phase not connected",
	25:  "Current limited by circuit fuse",
	26:  "Current limited by circuit max current",
	27:  "Current limited by dynamic circuit current",
	28:  "Current limited by equalizer",
	29:  "Current limited by circuit load balancing",
	30:  "Current limited by offline settings",
	50:  "Secondary unit not requesting current",
	51:  "Max charger current too low",
	52:  "Max dynamic charger current too low",
	53:  "Charger disabled",
	54:  "Pending scheduled charging",
	55:  "Pending authorization",
	56:  "Charger in error state",
	57:  "Erratic EV",
	75:  "Cable current limited",
	76:  "Max charger current",
	77:  "Max dynamic charger current",
	78:  "Max charger current limited by charger temperature",
	79:  "Current limited by local adjustment",
	80:  "Current limited by charger temperature",
	100: "Error: undefined",
}

func (r ReasonForNoCurrent) String() string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return fmt.Sprintf("Code %d", int64(r))
}

// Known reports whether r has a description.
func (r ReasonForNoCurrent) Known() bool {
	_, ok := reasonText[r]
	return ok
}

// PilotMode is the control pilot state letter.
type PilotMode byte

const (
	PilotDisconnected     PilotMode = 'A'
	PilotConnected        PilotMode = 'B'
	PilotCharging         PilotMode = 'C'
	PilotNeedsVentilation PilotMode = 'D'
	PilotFaultDetected    PilotMode = 'F'
)

func (p PilotMode) String() string {
	switch p {
	case PilotDisconnected:
		return "Disconnected"
	case PilotConnected:
		return "Connected"
	case PilotCharging:
		return "Charging"
	case PilotNeedsVentilation:
		return "NeedsVentilation"
	case PilotFaultDetected:
		return "FaultDetected"
	}
	return fmt.Sprintf("PilotMode(%q)", byte(p))
}

func parsePilotMode(s string) (PilotMode, bool) {
	if len(s) != 1 {
		return 0, false
	}
	switch p := PilotMode(s[0]); p {
	case PilotDisconnected, PilotConnected, PilotCharging, PilotNeedsVentilation, PilotFaultDetected:
		return p, true
	}
	return 0, false
}

type ChargerOpMode uint8

const (
	OpModeUnknown ChargerOpMode = iota
	OpModeDisconnected
	OpModePaused
	OpModeCharging
	OpModeFinished
	OpModeError
	OpModeReady
	OpModeAwaitingAuthentication
	OpModeDeauthenticating
)

var opModeNames = [...]string{
	OpModeUnknown:                "Unknown",
	OpModeDisconnected:           "Disconnected",
	OpModePaused:                 "Paused",
	OpModeCharging:               "Charging",
	OpModeFinished:               "Finished",
	OpModeError:                  "Error",
	OpModeReady:                  "Ready",
	OpModeAwaitingAuthentication: "AwaitingAuthentication",
	OpModeDeauthenticating:       "Deauthenticating",
}

func (m ChargerOpMode) String() string {
	if int(m) < len(opModeNames) {
		return opModeNames[m]
	}
	return fmt.Sprintf("ChargerOpMode(%d)", uint8(m))
}

// opModeFromStream maps stream values 1-6, anything else is OpModeUnknown.
func opModeFromStream(n int64) ChargerOpMode {
	if n >= int64(OpModeDisconnected) && n <= int64(OpModeReady) {
		return ChargerOpMode(n)
	}
	return OpModeUnknown
}

// OutputPhase is the phase wiring of charger output.
type OutputPhase uint8

const (
	OutputPhaseUnknown OutputPhase = 0
	OutputL1ToN        OutputPhase = 10
	OutputL1ToL2       OutputPhase = 11
	OutputL2ToN        OutputPhase = 12
	OutputL3ToL1       OutputPhase = 13
	OutputL3ToN        OutputPhase = 14
	OutputL2ToL3       OutputPhase = 15
	OutputL1L2ToN      OutputPhase = 20
	OutputL2L3ToN      OutputPhase = 21
	OutputL1L3ToL2     OutputPhase = 22
	OutputL1L2L3ToN    OutputPhase = 30
)

var outputPhaseNames = map[OutputPhase]string{
	OutputPhaseUnknown: "Unknown",
	OutputL1ToN:        "L1ToN",
	OutputL1ToL2:       "L1ToL2",
	OutputL2ToN:        "L2ToN",
	OutputL3ToL1:       "L3ToL1",
	OutputL3ToN:        "L3ToN",
	OutputL2ToL3:       "L2ToL3",
	OutputL1L2ToN:      "L1L2ToN",
	OutputL2L3ToN:      "L2L3ToN",
	OutputL1L3ToL2:     "L1L3ToL2",
	OutputL1L2L3ToN:    "L1L2L3ToN",
}

func (p OutputPhase) String() string {
	if s, ok := outputPhaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("OutputPhase(%d)", uint8(p))
}

func outputPhaseFromStream(n int64) OutputPhase {
	if n >= 0 && n <= 255 {
		if _, ok := outputPhaseNames[OutputPhase(n)]; ok {
			return OutputPhase(n)
		}
	}
	return OutputPhaseUnknown
}

// InputPin is input terminal T1..T5.
type InputPin uint8

const (
	PinT1 InputPin = iota + 1
	PinT2
	PinT3
	PinT4
	PinT5
)

func (p InputPin) String() string { return fmt.Sprintf("T%d", uint8(p)) }

// voltagePairs is indexed by code-186.
var voltagePairs = [...][2]InputPin{
	{PinT1, PinT2},
	{PinT1, PinT3},
	{PinT1, PinT4},
	{PinT1, PinT5},
	{PinT2, PinT3},
	{PinT2, PinT4},
	{PinT2, PinT5},
	{PinT3, PinT4},
	{PinT3, PinT5},
	{PinT4, PinT5},
}
