// Package serial is a Linux serial port client with timeout-controlled
// blocking I/O and a small, structured error taxonomy.
//
// # Basic Usage
//
// Open a serial port with default configuration (9600 8N1, no flow control,
// DTR asserted, non-blocking reads):
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(115200),
//	    serial.WithTimeout(serial.SimpleTimeout(1000)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("AT\r\n"))
//	line, err := port.ReadLine(0, "\r\n")
//
// A port created with an empty name starts closed. Its configuration can be
// staged and the device opened later:
//
//	port, _ := serial.New("", serial.WithParity(serial.ParityEven))
//	_ = port.SetPort("/dev/ttyS0")
//	err := port.Open()
//
// # Timeouts
//
// Timeout carries five millisecond values. A read of n bytes may take at most
// ReadConstant + ReadMultiplier*n; with InterByte set to anything other than
// TimeoutMax the read also returns once the line has been quiet for InterByte
// after the first byte. Writes use WriteConstant and WriteMultiplier the same
// way. Running out of time is not an error: Read and Write return the number
// of bytes transferred and the caller compares it with what was asked for.
//
// # Errors
//
// Every failure is a *Error whose Kind is one of KindPortNotOpened, KindIO or
// KindSerial. Match the kind or the cause with errors.Is:
//
//	if errors.Is(err, serial.ErrPortNotOpened) { ... }
//	if errors.Is(err, serial.ErrDeviceNotFound) { ... }
//	if errors.Is(err, unix.EACCES) { ... }
//
// # Modem Signals
//
//	signals, err := port.GetModemSignals()
//	err = port.SetRTS(true)
//	err = port.WaitForChange() // blocks until CTS, DSR, RI or CD toggles
//
// # Port Discovery
//
//	infos, err := serial.ListPortInfo()
//	for _, info := range infos {
//	    fmt.Printf("%s: %s (VID=%s PID=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID)
//	}
//
// # Concurrency
//
// A Port is safe to share, but a blocking Read or Write holds the port until
// its timeout expires and Close waits for it. The library starts no
// goroutines.
package serial
