package sensor

import (
	"codeberg.org/mutker/radmon/internal/errors"
	"go.bug.st/serial"
)

const (
	resetBaud = 9600
	dataBaud  = 115200

	resetChar = 0xF0
	writeOne  = 0xFF
	writeZero = 0x00
)

// UARTBus implements the 1-wire signaling overlay on a UART: the line is
// wired so that each UART character clocks one bus time slot. A reset is
// one 0xF0 character at 9600 baud; at 115200 baud a 0xFF character is a
// read/write-1 slot and 0x00 a write-0 slot. The echo of each character
// carries the sampled bus level.
type UARTBus struct {
	port serial.Port
}

func OpenUARTBus(name string) (*UARTBus, error) {
	errFactory := errors.New()

	port, err := serial.Open(name, &serial.Mode{BaudRate: dataBaud})
	if err != nil {
		return nil, errFactory.Wrap(ErrBusFault, err)
	}

	return &UARTBus{port: port}, nil
}

func (u *UARTBus) Reset() (bool, error) {
	if err := u.port.SetMode(&serial.Mode{BaudRate: resetBaud}); err != nil {
		return false, err
	}

	echo, err := u.exchange(resetChar)
	if err != nil {
		return false, err
	}

	if err := u.port.SetMode(&serial.Mode{BaudRate: dataBaud}); err != nil {
		return false, err
	}

	// A device pulling the line low during the presence window distorts
	// the echoed character.
	return echo != resetChar, nil
}

func (u *UARTBus) WriteByte(b byte) error {
	for i := 0; i < 8; i++ {
		slot := byte(writeZero)
		if b&(1<<i) != 0 {
			slot = writeOne
		}
		if _, err := u.exchange(slot); err != nil {
			return err
		}
	}

	return nil
}

func (u *UARTBus) ReadByte() (byte, error) {
	var b byte
	for i := 0; i < 8; i++ {
		echo, err := u.exchange(writeOne)
		if err != nil {
			return 0, err
		}
		if echo == writeOne {
			b |= 1 << i
		}
	}

	return b, nil
}

func (u *UARTBus) Close() error {
	return u.port.Close()
}

// exchange transmits one slot character and reads back its echo.
func (u *UARTBus) exchange(b byte) (byte, error) {
	if _, err := u.port.Write([]byte{b}); err != nil {
		return 0, err
	}

	echo := make([]byte, 1)
	for {
		n, err := u.port.Read(echo)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return echo[0], nil
		}
	}
}
