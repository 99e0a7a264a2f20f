package icomm

import (
	"encoding/json"
	"fmt"
)

// Device type tags for the two known water heater generations. The data
// sub-fields are selected by __typename, so unknown tags decode but are
// not considered water heaters.
const (
	DeviceTypeNextGenHeatPump = "NEXT_GEN_HEAT_PUMP"
	DeviceTypeRE3Connected    = "RE3_CONNECTED"
)

// Mode control types as reported in the supported-mode list.
const (
	ControlSelectDays = "SELECT_DAYS"
)

// Hot water status labels for devices that report a tri-state level
// instead of a numeric depletion value.
const (
	HotWaterLow    = "LOW"
	HotWaterMedium = "MEDIUM"
	HotWaterHigh   = "HIGH"
)

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	IdToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginData struct {
	Login struct {
		User struct {
			Tokens Tokens `json:"tokens"`
		} `json:"user"`
	} `json:"login"`
}

type devicesData struct {
	Devices []Device `json:"devices"`
}

type Device struct {
	JunctionID string `json:"junctionId"`
	Brand      string `json:"brand"`
	Name       string `json:"name"`
	DeviceType string `json:"deviceType"`
	DSN        string `json:"dsn"`
	Model      string `json:"model"`
	Serial     string `json:"serial"`
	Install    struct {
		Location string `json:"location"`
	} `json:"install"`
	Data DeviceData `json:"data"`
}

// DeviceData carries the __typename-discriminated sub-fields. The two known
// variants share an identical field set, so a single struct with the tag kept
// around covers both while staying open for future variants.
type DeviceData struct {
	Typename                   string         `json:"__typename"`
	TemperatureSetpoint        int            `json:"temperatureSetpoint"`
	TemperatureSetpointPending bool           `json:"temperatureSetpointPending"`
	TemperatureSetpointMaximum int            `json:"temperatureSetpointMaximum"`
	IsOnline                   bool           `json:"isOnline"`
	FirmwareVersion            string         `json:"firmwareVersion"`
	HotWaterStatus             HotWaterStatus `json:"hotWaterStatus"`
	Mode                       string         `json:"mode"`
	ModePending                bool           `json:"modePending"`
	Modes                      []ModeSpec     `json:"modes"`
}

type ModeSpec struct {
	Mode     string `json:"mode"`
	Controls string `json:"controls"`
}

// HotWaterStatus is either a tri-state label or a numeric depletion value
// that grows as hot water runs out.
type HotWaterStatus struct {
	Label   string
	Numeric *int
}

func (s *HotWaterStatus) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		s.Label = label
		s.Numeric = nil
		return nil
	}
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		s.Label = ""
		s.Numeric = &num
		return nil
	}
	// null or an unknown shape: leave zero value, the projection defaults it
	s.Label = ""
	s.Numeric = nil
	return nil
}

func (s HotWaterStatus) MarshalJSON() ([]byte, error) {
	if s.Numeric != nil {
		return json.Marshal(*s.Numeric)
	}
	if s.Label != "" {
		return json.Marshal(s.Label)
	}
	return []byte("null"), nil
}

// ModeInput is the updateMode mutation payload.
type ModeInput struct {
	Mode string `json:"mode"`
	Days *int   `json:"days,omitempty"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

type GraphQLError struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

func (e GraphQLError) ErrorCode() string {
	if e.Extensions.Code != "" {
		return e.Extensions.Code
	}
	return e.Code
}

func (e GraphQLError) Error() string {
	return fmt.Sprintf("graphql error %s: %s", e.ErrorCode(), e.Message)
}
