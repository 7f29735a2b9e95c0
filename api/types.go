package api

import (
	"strings"
	"time"

	"github.com/evtele/easee/tele/observation"
	"github.com/juju/errors"
)

const naiveTimeLayout = "2006-01-02T15:04:05.999999999"

// NaiveTime is timestamp without zone, as API returns for resource metadata. Read as UTC.
type NaiveTime struct{ time.Time }

func (t *NaiveTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.NotValidf("naive time %s", s)
	}
	s = strings.TrimSuffix(s[1:len(s)-1], "Z")
	tt, err := time.Parse(naiveTimeLayout, s)
	if err != nil {
		return errors.Annotate(err, "naive time")
	}
	t.Time = tt
	return nil
}

type Charger struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ProductCode   uint32    `json:"productCode"`
	Color         *int32    `json:"color"`
	CreatedOn     NaiveTime `json:"createdOn"`
	UpdatedOn     NaiveTime `json:"updatedOn"`
	LevelOfAccess uint32    `json:"levelOfAccess"`
}

type ChargerState struct {
	SmartCharging           bool                           `json:"smartCharging"`
	CableLocked             bool                           `json:"cableLocked"`
	ChargerOpMode           observation.ChargerOpMode      `json:"chargerOpMode"`
	TotalPower              float64                        `json:"totalPower"`
	SessionEnergy           float64                        `json:"sessionEnergy"`
	EnergyPerHour           float64                        `json:"energyPerHour"`
	WifiRSSI                *int32                         `json:"wiFiRSSI"`
	CellRSSI                *int32                         `json:"cellRSSI"`
	LocalRSSI               *int32                         `json:"localRSSI"`
	OutputPhase             observation.OutputPhase        `json:"outputPhase"`
	DynamicCircuitP1        uint32                         `json:"dynamicCircuitCurrentP1"`
	DynamicCircuitP2        uint32                         `json:"dynamicCircuitCurrentP2"`
	DynamicCircuitP3        uint32                         `json:"dynamicCircuitCurrentP3"`
	LatestPulse             time.Time                      `json:"latestPulse"`
	ChargerFirmware         uint32                         `json:"chargerFirmware"`
	Voltage                 float64                        `json:"voltage"`
	ChargerRAT              uint32                         `json:"chargerRAT"`
	LockCablePermanently    bool                           `json:"lockCablePermanently"`
	InCurrentT2             *float64                       `json:"inCurrentT2"`
	InCurrentT3             *float64                       `json:"inCurrentT3"`
	InCurrentT4             *float64                       `json:"inCurrentT4"`
	InCurrentT5             *float64                       `json:"inCurrentT5"`
	OutputCurrent           float64                        `json:"outputCurrent"`
	IsOnline                bool                           `json:"isOnline"`
	InVoltageT1T2           *float64                       `json:"inVoltageT1T2"`
	InVoltageT1T3           *float64                       `json:"inVoltageT1T3"`
	InVoltageT1T4           *float64                       `json:"inVoltageT1T4"`
	InVoltageT1T5           *float64                       `json:"inVoltageT1T5"`
	InVoltageT2T3           *float64                       `json:"inVoltageT2T3"`
	InVoltageT2T4           *float64                       `json:"inVoltageT2T4"`
	InVoltageT2T5           *float64                       `json:"inVoltageT2T5"`
	InVoltageT3T4           *float64                       `json:"inVoltageT3T4"`
	InVoltageT3T5           *float64                       `json:"inVoltageT3T5"`
	InVoltageT4T5           *float64                       `json:"inVoltageT4T5"`
	LedMode                 uint32                         `json:"ledMode"`
	CableRating             float64                        `json:"cableRating"`
	DynamicChargerCurrent   float64                        `json:"dynamicChargerCurrent"`
	CircuitTotalAllocatedL1 float64                        `json:"circuitTotalAllocatedPhaseConductorCurrentL1"`
	CircuitTotalAllocatedL2 float64                        `json:"circuitTotalAllocatedPhaseConductorCurrentL2"`
	CircuitTotalAllocatedL3 float64                        `json:"circuitTotalAllocatedPhaseConductorCurrentL3"`
	CircuitTotalL1          float64                        `json:"circuitTotalPhaseConductorCurrentL1"`
	CircuitTotalL2          float64                        `json:"circuitTotalPhaseConductorCurrentL2"`
	CircuitTotalL3          float64                        `json:"circuitTotalPhaseConductorCurrentL3"`
	ReasonForNoCurrent      observation.ReasonForNoCurrent `json:"reasonForNoCurrent"`
	WifiAPEnabled           bool                           `json:"wiFiAPEnabled"`
	LifetimeEnergy          float64                        `json:"lifetimeEnergy"`
	OfflineMaxCircuitP1     uint32                         `json:"offlineMaxCircuitCurrentP1"`
	OfflineMaxCircuitP2     uint32                         `json:"offlineMaxCircuitCurrentP2"`
	OfflineMaxCircuitP3     uint32                         `json:"offlineMaxCircuitCurrentP3"`
	ErrorCode               uint32                         `json:"errorCode"`
	FatalErrorCode          uint32                         `json:"fatalErrorCode"`
	EqAvailableP1           *float64                       `json:"eqAvailableCurrentP1"`
	EqAvailableP2           *float64                       `json:"eqAvailableCurrentP2"`
	EqAvailableP3           *float64                       `json:"eqAvailableCurrentP3"`
	DeratedCurrent          *float64                       `json:"deratedCurrent"`
	DeratingActive          bool                           `json:"deratingActive"`
	ConnectedToCloud        bool                           `json:"connectedToCloud"`
}

type Site struct {
	UUID           *string `json:"uuid"`
	ID             uint32  `json:"id"`
	SiteKey        *string `json:"siteKey"`
	Name           *string `json:"name"`
	LevelOfAccess  uint32  `json:"levelOfAccess"`
	InstallerAlias *string `json:"installerAlias"`
}

type SiteDetails struct {
	Site
	Circuits []Circuit `json:"circuits"`
}

type Circuit struct {
	ID               uint32    `json:"id"`
	UUID             string    `json:"uuid"`
	SiteID           uint32    `json:"siteId"`
	CircuitPanelID   int64     `json:"circuitPanelId"`
	PanelName        string    `json:"panelName"`
	RatedCurrent     float64   `json:"ratedCurrent"`
	Fuse             float64   `json:"fuse"`
	Chargers         []Charger `json:"chargers"`
	UseDynamicMaster bool      `json:"useDynamicMaster"`
}

type Triphase struct {
	Phase1 float64 `json:"phase1"`
	Phase2 float64 `json:"phase2"`
	Phase3 float64 `json:"phase3"`
}

// MeterReading is lifetime consumed energy of one charger, kWh.
type MeterReading struct {
	ChargerID      string  `json:"chargerId"`
	LifetimeEnergy float64 `json:"lifeTimeEnergy"`
}

type loginResponse struct {
	AccessToken  string    `json:"accessToken"`
	ExpiresIn    uint32    `json:"expiresIn"`
	AccessClaims []*string `json:"accessClaims"`
	TokenType    *string   `json:"tokenType"`
	RefreshToken string    `json:"refreshToken"`
}
