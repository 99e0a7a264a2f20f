package icomm

import (
	"context"
	"sync"
)

// TestService is a scriptable in-memory Service for actor tests. Error
// queues are consumed one entry per call; once drained, calls succeed with
// the configured fixtures.
type TestService struct {
	mu sync.Mutex

	Tokens  Tokens
	Devices []Device

	LoginErrs    []error
	DeviceErrs   []error
	ModeErrs     []error
	SetpointErrs []error

	ModeConfirmed     bool
	SetpointConfirmed bool

	LoginCalls    int
	DeviceCalls   int
	ModeCalls     int
	SetpointCalls int

	LastMode     ModeInput
	LastSetpoint int
}

func NewTestService() *TestService {
	return &TestService{
		Tokens: Tokens{
			AccessToken:  "test-access-token",
			IdToken:      "test-id-token",
			RefreshToken: "test-refresh-token",
		},
		Devices:           []Device{TestWaterHeater("test-junction-1", "Test Heater")},
		ModeConfirmed:     true,
		SetpointConfirmed: true,
	}
}

func TestWaterHeater(junctionID, name string) Device {
	dev := Device{
		JunctionID: junctionID,
		Brand:      "aosmith",
		Name:       name,
		DeviceType: DeviceTypeNextGenHeatPump,
		DSN:        "AC00000000000000",
		Model:      "HPTS-50",
		Serial:     "2217100000000",
	}
	dev.Install.Location = "Basement"
	dev.Data = DeviceData{
		Typename:                   "NextGenHeatPump",
		TemperatureSetpoint:        120,
		TemperatureSetpointMaximum: 140,
		IsOnline:                   true,
		FirmwareVersion:            "2.14",
		HotWaterStatus:             HotWaterStatus{Label: HotWaterHigh},
		Mode:                       "HEAT_PUMP",
		Modes: []ModeSpec{
			{Mode: "HYBRID"},
			{Mode: "HEAT_PUMP"},
			{Mode: "ELECTRIC"},
			{Mode: "VACATION", Controls: ControlSelectDays},
		},
	}
	return dev
}

func (s *TestService) Login(_ context.Context, _, _ string) (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoginCalls++
	if err := pop(&s.LoginErrs); err != nil {
		return nil, err
	}
	tokens := s.Tokens
	return &tokens, nil
}

func (s *TestService) GetDevices(_ context.Context, _ string, _ bool, _ []string) ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeviceCalls++
	if err := pop(&s.DeviceErrs); err != nil {
		return nil, err
	}
	devices := make([]Device, len(s.Devices))
	copy(devices, s.Devices)
	return devices, nil
}

func (s *TestService) UpdateMode(_ context.Context, _, _ string, mode ModeInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ModeCalls++
	s.LastMode = mode
	if err := pop(&s.ModeErrs); err != nil {
		return false, err
	}
	return s.ModeConfirmed, nil
}

func (s *TestService) UpdateSetpoint(_ context.Context, _, _ string, value int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetpointCalls++
	s.LastSetpoint = value
	if err := pop(&s.SetpointErrs); err != nil {
		return false, err
	}
	return s.SetpointConfirmed, nil
}

// SetDevices swaps the device fixtures between polls.
func (s *TestService) SetDevices(devices ...Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Devices = devices
}

func (s *TestService) Counts() (login, devices, mode, setpoint int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LoginCalls, s.DeviceCalls, s.ModeCalls, s.SetpointCalls
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}
