// Package sensor reads the two temperature channels: an external 1-wire
// case probe and the SoC's on-die sensor. Probe failures are never fatal;
// the last good value is retained for the current sampling window.
package sensor

import (
	"time"

	"codeberg.org/mutker/radmon/internal/errors"
)

// 1-wire ROM and function commands used by the DS18x20 transaction.
const (
	cmdReadROM        = 0x33
	cmdSkipROM        = 0xCC
	cmdConvertT       = 0x44
	cmdReadScratchpad = 0xBE

	familyDS18S20 = 0x10
	familyDS18B20 = 0x28

	romLen        = 8
	scratchpadLen = 9

	// Worst-case conversion time at full resolution.
	convertDelay = 750 * time.Millisecond
)

// Bus is one 1-wire segment with a single device on it. Implementations
// carry the electrical details (UART overlay, GPIO bit-banging); the probe
// only sequences transactions on top.
type Bus interface {
	// Reset issues a bus reset and reports whether a device answered the
	// presence pulse.
	Reset() (bool, error)
	WriteByte(b byte) error
	ReadByte() (byte, error)
}

// Probe drives a DS18x20 temperature device. Not safe for concurrent use;
// the main loop is the only caller.
type Probe struct {
	bus    Bus
	family byte
	last   float64
	delay  time.Duration
}

func NewProbe(bus Bus) *Probe {
	return &Probe{bus: bus, delay: convertDelay}
}

// Read runs one full temperature transaction. On any failure the previous
// value is returned together with the error so the caller can log and carry
// on with a stale reading (zero before the first success).
func (p *Probe) Read() (float64, error) {
	errFactory := errors.New()

	if err := p.identify(); err != nil {
		return p.last, err
	}

	if err := p.bus.WriteByte(cmdConvertT); err != nil {
		return p.last, errFactory.Wrap(ErrBusFault, err)
	}
	time.Sleep(p.delay)

	if err := p.presence(); err != nil {
		return p.last, err
	}
	if err := p.bus.WriteByte(cmdSkipROM); err != nil {
		return p.last, errFactory.Wrap(ErrBusFault, err)
	}
	if err := p.bus.WriteByte(cmdReadScratchpad); err != nil {
		return p.last, errFactory.Wrap(ErrBusFault, err)
	}

	pad := make([]byte, scratchpadLen)
	for i := range pad {
		b, err := p.bus.ReadByte()
		if err != nil {
			return p.last, errFactory.Wrap(ErrBusFault, err)
		}
		pad[i] = b
	}

	if crc8(pad[:scratchpadLen-1]) != pad[scratchpadLen-1] {
		return p.last, errFactory.New(ErrCRCMismatch)
	}

	p.last = p.convert(pad)

	return p.last, nil
}

// Last returns the most recent successfully read temperature.
func (p *Probe) Last() float64 {
	return p.last
}

// identify resets the bus and matches the device by family code, caching
// the code for scratchpad conversion.
func (p *Probe) identify() error {
	errFactory := errors.New()

	if err := p.presence(); err != nil {
		return err
	}
	if err := p.bus.WriteByte(cmdReadROM); err != nil {
		return errFactory.Wrap(ErrBusFault, err)
	}

	rom := make([]byte, romLen)
	for i := range rom {
		b, err := p.bus.ReadByte()
		if err != nil {
			return errFactory.Wrap(ErrBusFault, err)
		}
		rom[i] = b
	}

	if crc8(rom[:romLen-1]) != rom[romLen-1] {
		return errFactory.New(ErrCRCMismatch)
	}

	switch rom[0] {
	case familyDS18S20, familyDS18B20:
		p.family = rom[0]
	default:
		return errFactory.WithData(ErrBadFamilyCode, rom[0])
	}

	return nil
}

func (p *Probe) presence() error {
	errFactory := errors.New()

	present, err := p.bus.Reset()
	if err != nil {
		return errFactory.Wrap(ErrBusFault, err)
	}
	if !present {
		return errFactory.New(ErrNoPresence)
	}

	return nil
}

func (p *Probe) convert(pad []byte) float64 {
	raw := int16(uint16(pad[1])<<8 | uint16(pad[0]))

	if p.family == familyDS18S20 {
		// 9-bit device, half-degree steps.
		return float64(raw) / 2.0
	}

	return float64(raw) / 16.0
}

// crc8 computes the Dallas/Maxim CRC over the given bytes (poly 0x31,
// reflected).
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		for i := 0; i < 8; i++ {
			mix := (crc ^ b) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8C
			}
			b >>= 1
		}
	}

	return crc
}
