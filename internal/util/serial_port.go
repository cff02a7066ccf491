// Package util содержит вспомогательные утилиты, не являющиеся частью публичного API.
package util

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Идентификаторы USB, под которыми прошивка NanoVNA регистрируется в системе.
const (
	NanoVNAVendorID  = "0483"
	NanoVNAProductID = "5740"
)

// ErrDeviceNotFound возвращается, когда ни один последовательный порт
// не соответствует USB-идентификаторам NanoVNA.
var ErrDeviceNotFound = errors.New("устройство NanoVNA не найдено ни на одном порту")

// SerialPortInterface определяет интерфейс для работы с последовательным портом.
// Это позволяет нам использовать реальный порт в production и мок-объект в тестах.
type SerialPortInterface interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// realPort - это обертка над реальной реализацией последовательного порта.
type realPort struct {
	port serial.Port
}

func (r *realPort) Read(p []byte) (n int, err error)     { return r.port.Read(p) }
func (r *realPort) Write(p []byte) (n int, err error)    { return r.port.Write(p) }
func (r *realPort) Close() error                         { return r.port.Close() }
func (r *realPort) SetReadTimeout(t time.Duration) error { return r.port.SetReadTimeout(t) }

// OpenPort открывает реальный последовательный порт.
func OpenPort(path string, mode *serial.Mode) (SerialPortInterface, error) {
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return &realPort{port: p}, nil
}

// DefaultMode возвращает режим порта, с которым работает прошивка NanoVNA.
func DefaultMode() *serial.Mode {
	return &serial.Mode{BaudRate: 115200}
}

// FindPort перечисляет последовательные порты и возвращает путь первого
// устройства с USB-идентификаторами NanoVNA (VID 0x0483, PID 0x5740).
func FindPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("ошибка перечисления портов: %w", err)
	}
	for _, p := range ports {
		if MatchesNanoVNA(p) {
			return p.Name, nil
		}
	}
	return "", ErrDeviceNotFound
}

// MatchesNanoVNA проверяет, соответствует ли порт USB-идентификаторам NanoVNA.
func MatchesNanoVNA(p *enumerator.PortDetails) bool {
	if p == nil || !p.IsUSB {
		return false
	}
	return strings.EqualFold(p.VID, NanoVNAVendorID) && strings.EqualFold(p.PID, NanoVNAProductID)
}
