package util

import (
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestMatchesNanoVNA(t *testing.T) {
	cases := []struct {
		name string
		port *enumerator.PortDetails
		want bool
	}{
		{
			name: "совпадение идентификаторов",
			port: &enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "0483", PID: "5740"},
			want: true,
		},
		{
			name: "чужой PID",
			port: &enumerator.PortDetails{Name: "COM3", IsUSB: true, VID: "0483", PID: "374b"},
			want: false,
		},
		{
			name: "чужой VID",
			port: &enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523"},
			want: false,
		},
		{
			name: "не USB-порт",
			port: &enumerator.PortDetails{Name: "/dev/ttyS0", IsUSB: false, VID: "0483", PID: "5740"},
			want: false,
		},
		{
			name: "nil",
			port: nil,
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchesNanoVNA(tc.port); got != tc.want {
				t.Errorf("MatchesNanoVNA() = %v, ожидалось %v", got, tc.want)
			}
		})
	}
}

func TestDefaultMode(t *testing.T) {
	mode := DefaultMode()
	if mode.BaudRate != 115200 {
		t.Errorf("скорость порта %d, ожидалось 115200", mode.BaudRate)
	}
}
