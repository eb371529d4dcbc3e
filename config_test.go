package serial

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	want := Config{
		BaudRate:    9600,
		ByteSize:    EightBits,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
		FlowControl: FlowControlNone,
		DTRControl:  DTREnable,
		Timeout:     Timeout{InterByte: TimeoutMax},
	}
	if diff := cmp.Diff(want, DefaultConfig()); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()
	opts := []Option{
		WithBaudRate(115200),
		WithByteSize(SevenBits),
		WithParity(ParityEven),
		WithStopBits(StopBitsTwo),
		WithFlowControl(FlowControlHardware),
		WithDTRControl(DTRHandshake),
		WithTimeout(SimpleTimeout(250)),
	}
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			t.Fatalf("option failed: %v", err)
		}
	}

	want := Config{
		BaudRate:    115200,
		ByteSize:    SevenBits,
		Parity:      ParityEven,
		StopBits:    StopBitsTwo,
		FlowControl: FlowControlHardware,
		DTRControl:  DTRHandshake,
		Timeout:     Timeout{InterByte: TimeoutMax, ReadConstant: 250, WriteConstant: 250},
	}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsRejectOutOfDomain(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"baud -1", WithBaudRate(-1), ErrInvalidBaudRate},
		{"baud 0", WithBaudRate(0), ErrInvalidBaudRate},
		{"byte size 4", WithByteSize(4), ErrInvalidConfig},
		{"byte size 9", WithByteSize(9), ErrInvalidConfig},
		{"parity -1", WithParity(-1), ErrInvalidConfig},
		{"parity 5", WithParity(5), ErrInvalidConfig},
		{"stop bits 0", WithStopBits(0), ErrInvalidConfig},
		{"stop bits 4", WithStopBits(4), ErrInvalidConfig},
		{"flow control 3", WithFlowControl(3), ErrInvalidConfig},
		{"dtr control 3", WithDTRControl(3), ErrInvalidConfig},
		{"config with bad parity", WithConfig(Config{BaudRate: 9600, ByteSize: 8, Parity: 9, StopBits: 1}), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			before := config
			err := tt.opt(&config)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if diff := cmp.Diff(before, config); diff != "" {
				t.Errorf("config changed on error (-before +after):\n%s", diff)
			}
		})
	}
}

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{4000000, false},
		{250000, false},
		{31250, false},
		{0, true},
		{-9600, true},
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if !errors.Is(err, ErrInvalidBaudRate) {
				t.Errorf("getBaudRate(%d) error = %v, want ErrInvalidBaudRate", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
		}
		if result == 0 {
			t.Errorf("Got zero result for valid baud rate %d", test.input)
		}
	}
}

func TestConfigString(t *testing.T) {
	tests := []struct {
		config Config
		want   string
	}{
		{DefaultConfig(), "9600 8N1"},
		{Config{BaudRate: 115200, ByteSize: 7, Parity: ParityEven, StopBits: StopBitsTwo}, "115200 7E2"},
		{Config{BaudRate: 300, ByteSize: 5, Parity: ParityMark, StopBits: StopBitsOnePointFive}, "300 5M1.5"},
		{Config{BaudRate: 1200, ByteSize: 8, Parity: ParitySpace, StopBits: StopBitsOne}, "1200 8S1"},
	}

	for _, tt := range tests {
		if got := tt.config.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEnumCodes(t *testing.T) {
	// Codes are part of the public surface and must not drift.
	got := []int{
		int(FiveBits), int(SixBits), int(SevenBits), int(EightBits),
		int(ParityNone), int(ParityOdd), int(ParityEven), int(ParityMark), int(ParitySpace),
		int(StopBitsOne), int(StopBitsTwo), int(StopBitsOnePointFive),
		int(FlowControlNone), int(FlowControlSoftware), int(FlowControlHardware),
		int(DTRDisable), int(DTREnable), int(DTRHandshake),
	}
	want := []int{
		5, 6, 7, 8,
		0, 1, 2, 3, 4,
		1, 2, 3,
		0, 1, 2,
		0, 1, 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("enum codes mismatch (-want +got):\n%s", diff)
	}
}
