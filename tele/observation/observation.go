package observation

import (
	"encoding/json"
	"fmt"
)

// Observation is one decoded charger attribute change.
// ID returns the feature code it was decoded from.
type Observation interface {
	ID() uint16
}

type (
	SelfTestResult       string
	SelfTestDetails      json.RawMessage
	WifiEvent            int64
	ChargerOfflineReason int64
	CircuitMaxCurrent    struct {
		Phase   uint8 // 1..3
		Amperes int64
	}
	SiteID                string
	LockCablePermanently  bool
	IsEnabled             bool
	Temperature           int64
	TriplePhase           bool
	AuthorizationRequired bool
	MaxChargerCurrent     float64
	DynamicChargerCurrent float64
	SmartCharging         bool
	CableLocked           bool
	CableRating           float64
	UserID                string
	DynamicCircuitCurrent struct {
		Phase   uint8 // 1..3
		Amperes float64
	}
	OutputCurrent  float64
	TotalPower     float64
	SessionEnergy  float64
	EnergyPerHour  float64
	LifetimeEnergy float64
	WifiRSSI       int64
	InputCurrent   struct {
		Pin     InputPin // T2..T5
		Amperes float64
	}
	InputVoltage struct {
		From  InputPin
		To    InputPin
		Volts float64
	}

	// Unknown keeps code and value of anything not in the table.
	Unknown struct {
		Code  uint16
		Value Data
	}
)

const (
	CodeSelfTestResult        uint16 = 1
	CodeSelfTestDetails       uint16 = 2
	CodeWifiEvent             uint16 = 10
	CodeChargerOfflineReason  uint16 = 11
	CodeCircuitMaxCurrentP1   uint16 = 22
	CodeSiteID                uint16 = 26
	CodeLockCablePermanently  uint16 = 30
	CodeIsEnabled             uint16 = 31
	CodeTemperature           uint16 = 32
	CodeTriplePhase           uint16 = 38
	CodeAuthorizationRequired uint16 = 42
	CodeMaxChargerCurrent     uint16 = 47
	CodeDynamicChargerCurrent uint16 = 48
	CodeReasonForNoCurrent    uint16 = 96
	CodePilotMode             uint16 = 100
	CodeSmartCharging         uint16 = 102
	CodeCableLocked           uint16 = 103
	CodeCableRating           uint16 = 104
	CodeUserID                uint16 = 107
	CodeChargerOpMode         uint16 = 109
	CodeOutputPhase           uint16 = 110
	CodeDynamicCircuitP1      uint16 = 111
	CodeOutputCurrent         uint16 = 114
	CodeTotalPower            uint16 = 120
	CodeSessionEnergy         uint16 = 121
	CodeEnergyPerHour         uint16 = 122
	CodeLifetimeEnergy        uint16 = 124
	CodeWifiRSSI              uint16 = 132
	CodeInputCurrentT2        uint16 = 182
	CodeInputVoltageT1T2      uint16 = 186
)

func (SelfTestResult) ID() uint16          { return CodeSelfTestResult }
func (SelfTestDetails) ID() uint16         { return CodeSelfTestDetails }
func (WifiEvent) ID() uint16               { return CodeWifiEvent }
func (ChargerOfflineReason) ID() uint16    { return CodeChargerOfflineReason }
func (o CircuitMaxCurrent) ID() uint16     { return CodeCircuitMaxCurrentP1 + uint16(o.Phase) - 1 }
func (SiteID) ID() uint16                  { return CodeSiteID }
func (LockCablePermanently) ID() uint16    { return CodeLockCablePermanently }
func (IsEnabled) ID() uint16               { return CodeIsEnabled }
func (Temperature) ID() uint16             { return CodeTemperature }
func (TriplePhase) ID() uint16             { return CodeTriplePhase }
func (AuthorizationRequired) ID() uint16   { return CodeAuthorizationRequired }
func (MaxChargerCurrent) ID() uint16       { return CodeMaxChargerCurrent }
func (DynamicChargerCurrent) ID() uint16   { return CodeDynamicChargerCurrent }
func (ReasonForNoCurrent) ID() uint16      { return CodeReasonForNoCurrent }
func (PilotMode) ID() uint16               { return CodePilotMode }
func (SmartCharging) ID() uint16           { return CodeSmartCharging }
func (CableLocked) ID() uint16             { return CodeCableLocked }
func (CableRating) ID() uint16             { return CodeCableRating }
func (UserID) ID() uint16                  { return CodeUserID }
func (ChargerOpMode) ID() uint16           { return CodeChargerOpMode }
func (OutputPhase) ID() uint16             { return CodeOutputPhase }
func (o DynamicCircuitCurrent) ID() uint16 { return CodeDynamicCircuitP1 + uint16(o.Phase) - 1 }
func (OutputCurrent) ID() uint16           { return CodeOutputCurrent }
func (TotalPower) ID() uint16              { return CodeTotalPower }
func (SessionEnergy) ID() uint16           { return CodeSessionEnergy }
func (EnergyPerHour) ID() uint16           { return CodeEnergyPerHour }
func (LifetimeEnergy) ID() uint16          { return CodeLifetimeEnergy }
func (WifiRSSI) ID() uint16                { return CodeWifiRSSI }
func (o InputCurrent) ID() uint16          { return CodeInputCurrentT2 + uint16(o.Pin-PinT2) }
func (o InputVoltage) ID() uint16 {
	for i, pair := range voltagePairs {
		if pair[0] == o.From && pair[1] == o.To {
			return CodeInputVoltageT1T2 + uint16(i)
		}
	}
	return 0
}
func (o Unknown) ID() uint16 { return o.Code }

func (o Unknown) String() string {
	if o.Value == nil {
		return fmt.Sprintf("Unknown(code=%d)", o.Code)
	}
	return fmt.Sprintf("Unknown(code=%d %s=%s)", o.Code, o.Value.DataType(), o.Value)
}

// Classify maps (code, data) to Observation. Total: any pair not in the table,
// including a known code with unexpected data type, is Unknown.
func Classify(code uint16, d Data) Observation {
	switch v := d.(type) {
	case Boolean:
		b := bool(v)
		switch code {
		case CodeLockCablePermanently:
			return LockCablePermanently(b)
		case CodeIsEnabled:
			return IsEnabled(b)
		case CodeAuthorizationRequired:
			return AuthorizationRequired(b)
		case CodeSmartCharging:
			return SmartCharging(b)
		case CodeCableLocked:
			return CableLocked(b)
		}

	case Integer:
		n := int64(v)
		switch code {
		case CodeWifiEvent:
			return WifiEvent(n)
		case CodeChargerOfflineReason:
			return ChargerOfflineReason(n)
		case 22, 23, 24:
			return CircuitMaxCurrent{Phase: uint8(code - CodeCircuitMaxCurrentP1 + 1), Amperes: n}
		case CodeTemperature:
			return Temperature(n)
		case CodeTriplePhase:
			switch n {
			case 1:
				return TriplePhase(false)
			case 3:
				return TriplePhase(true)
			}
		case CodeReasonForNoCurrent:
			return ReasonForNoCurrent(n)
		case CodeChargerOpMode:
			return opModeFromStream(n)
		case CodeOutputPhase:
			return outputPhaseFromStream(n)
		case CodeWifiRSSI:
			return WifiRSSI(n)
		}

	case Double:
		f := float64(v)
		switch code {
		case CodeMaxChargerCurrent:
			return MaxChargerCurrent(f)
		case CodeDynamicChargerCurrent:
			return DynamicChargerCurrent(f)
		case CodeCableRating:
			return CableRating(f)
		case 111, 112, 113:
			return DynamicCircuitCurrent{Phase: uint8(code - CodeDynamicCircuitP1 + 1), Amperes: f}
		case CodeOutputCurrent:
			return OutputCurrent(f)
		case CodeTotalPower:
			return TotalPower(f)
		case CodeSessionEnergy:
			return SessionEnergy(f)
		case CodeEnergyPerHour:
			return EnergyPerHour(f)
		case CodeLifetimeEnergy:
			return LifetimeEnergy(f)
		case 182, 183, 184, 185:
			return InputCurrent{Pin: PinT2 + InputPin(code-CodeInputCurrentT2), Amperes: f}
		case 186, 187, 188, 189, 190, 191, 192, 193, 194, 195:
			pair := voltagePairs[code-CodeInputVoltageT1T2]
			return InputVoltage{From: pair[0], To: pair[1], Volts: f}
		}

	case String:
		s := string(v)
		switch code {
		case CodeSelfTestResult:
			return SelfTestResult(s)
		case CodeSelfTestDetails:
			if json.Valid([]byte(s)) {
				return SelfTestDetails(s)
			}
		case CodeSiteID:
			return SiteID(s)
		case CodePilotMode:
			if p, ok := parsePilotMode(s); ok {
				return p
			}
		case CodeUserID:
			return UserID(reverse(s))
		}
	}
	return Unknown{Code: code, Value: d}
}

func reverse(s string) string {
	rs := []rune(s)
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
	return string(rs)
}
