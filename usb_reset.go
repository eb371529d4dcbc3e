package serial

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/allbin/go-serialport/internal/monitoring"
)

// reenumerateDelay is how long a reset device usually takes to come back.
var reenumerateDelay = 2 * time.Second

// ResetUSBDevice performs a USB-level reset of the adapter behind portPath.
// This can recover hardware that is in a hung/unresponsive state. Any Port
// open on the device must be closed first and reopened afterwards.
//
// Requirements:
// - usbreset utility must be installed (from usbutils package)
// - Requires appropriate permissions (typically root/sudo)
//
// Returns:
// - nil if reset successful
// - ErrUSBResetNotAvailable if usbreset utility not found
// - ErrUSBInfoNotAvailable if device is not USB or metadata unavailable
// - error if reset fails
func ResetUSBDevice(portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	if info.BusNumber == "" || info.DeviceNumber == "" {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	usbPath, err := usbDevicePath(info.BusNumber, info.DeviceNumber)
	if err != nil {
		return err
	}

	monitoring.Logf("serial: resetting USB device %s (%s)", usbPath, portPath)
	cmd := exec.Command("usbreset", usbPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	time.Sleep(reenumerateDelay)
	return nil
}

// usbDevicePath formats bus and device numbers as the zero-padded BBB/DDD
// form usbreset expects.
func usbDevicePath(bus, device string) (string, error) {
	var b, d int
	if _, err := fmt.Sscanf(bus, "%d", &b); err != nil {
		return "", fmt.Errorf("%w: bus number %q", ErrUSBInfoNotAvailable, bus)
	}
	if _, err := fmt.Sscanf(device, "%d", &d); err != nil {
		return "", fmt.Errorf("%w: device number %q", ErrUSBInfoNotAvailable, device)
	}
	return fmt.Sprintf("%03d/%03d", b, d), nil
}

// ResetUSBDeviceBySerial resets a USB device by its serial number
// Useful when device paths change after reboot or when multiple devices are connected
func ResetUSBDeviceBySerial(serialNumber string) error {
	infos, err := ListPortInfo()
	if err != nil {
		return err
	}

	for _, info := range infos {
		if info.SerialNumber == serialNumber {
			return ResetUSBDevice(info.Path)
		}
	}

	return fmt.Errorf("device with serial %s not found", serialNumber)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}
