package observation

import (
	"encoding/json"
	"fmt"
)

// Describe returns stable snake_case name and JSON-friendly value of o.
// Parameterized variants carry phase or pin in the name, e.g. input_current_t3.
func Describe(o Observation) (name string, value interface{}) {
	switch v := o.(type) {
	case SelfTestResult:
		return "self_test_result", string(v)
	case SelfTestDetails:
		return "self_test_details", json.RawMessage(v)
	case WifiEvent:
		return "wifi_event", int64(v)
	case ChargerOfflineReason:
		return "charger_offline_reason", int64(v)
	case CircuitMaxCurrent:
		return fmt.Sprintf("circuit_max_current_p%d", v.Phase), v.Amperes
	case SiteID:
		return "site_id", string(v)
	case LockCablePermanently:
		return "lock_cable_permanently", bool(v)
	case IsEnabled:
		return "is_enabled", bool(v)
	case Temperature:
		return "temperature", int64(v)
	case TriplePhase:
		return "triple_phase", bool(v)
	case AuthorizationRequired:
		return "authorization_required", bool(v)
	case MaxChargerCurrent:
		return "max_charger_current", float64(v)
	case DynamicChargerCurrent:
		return "dynamic_charger_current", float64(v)
	case ReasonForNoCurrent:
		return "reason_for_no_current", v.String()
	case PilotMode:
		return "pilot_mode", v.String()
	case SmartCharging:
		return "smart_charging", bool(v)
	case CableLocked:
		return "cable_locked", bool(v)
	case CableRating:
		return "cable_rating", float64(v)
	case UserID:
		return "user_id", string(v)
	case ChargerOpMode:
		return "charger_op_mode", v.String()
	case OutputPhase:
		return "output_phase", v.String()
	case DynamicCircuitCurrent:
		return fmt.Sprintf("dynamic_circuit_current_p%d", v.Phase), v.Amperes
	case OutputCurrent:
		return "output_current", float64(v)
	case TotalPower:
		return "total_power", float64(v)
	case SessionEnergy:
		return "session_energy", float64(v)
	case EnergyPerHour:
		return "energy_per_hour", float64(v)
	case LifetimeEnergy:
		return "lifetime_energy", float64(v)
	case WifiRSSI:
		return "wifi_rssi", int64(v)
	case InputCurrent:
		return fmt.Sprintf("input_current_t%d", v.Pin), v.Amperes
	case InputVoltage:
		return fmt.Sprintf("input_voltage_t%d_t%d", v.From, v.To), v.Volts
	case Unknown:
		var value interface{}
		switch d := v.Value.(type) {
		case Boolean:
			value = bool(d)
		case Double:
			value = float64(d)
		case Integer:
			value = int64(d)
		case String:
			value = string(d)
		}
		return fmt.Sprintf("unknown_%d", v.Code), value
	}
	return fmt.Sprintf("%T", o), o
}

// KnownCode reports whether code has an entry in Classify table for some data type.
func KnownCode(code uint16) bool {
	switch {
	case code >= 22 && code <= 24,
		code >= 111 && code <= 113,
		code >= 182 && code <= 195:
		return true
	}
	switch code {
	case CodeSelfTestResult, CodeSelfTestDetails, CodeWifiEvent, CodeChargerOfflineReason,
		CodeSiteID, CodeLockCablePermanently, CodeIsEnabled, CodeTemperature,
		CodeTriplePhase, CodeAuthorizationRequired, CodeMaxChargerCurrent, CodeDynamicChargerCurrent,
		CodeReasonForNoCurrent, CodePilotMode, CodeSmartCharging, CodeCableLocked,
		CodeCableRating, CodeUserID, CodeChargerOpMode, CodeOutputPhase,
		CodeOutputCurrent, CodeTotalPower, CodeSessionEnergy, CodeEnergyPerHour,
		CodeLifetimeEnergy, CodeWifiRSSI:
		return true
	}
	return false
}
