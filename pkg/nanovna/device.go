package nanovna

import (
	"encoding/binary"
	"fmt"
	"image"
	"math/cmplx"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/nanovna/internal/util"
)

// Device - типизированная обертка над текстовыми командами прошивки.
// Каждый метод отправляет одну отформатированную команду; аргументы со
// значением "не задано" (см. комментарии к методам) пропускаются, сохраняя
// текущее состояние устройства.
type Device struct {
	tr *Transport
}

// NewDevice создает устройство поверх готового транспорта.
func NewDevice(tr *Transport) *Device {
	return &Device{tr: tr}
}

// Open открывает устройство на указанном порту.
func Open(path string) (*Device, error) {
	d := NewDevice(NewTransport(path))
	if err := d.tr.Open(); err != nil {
		return nil, err
	}
	return d, nil
}

// Discover находит NanoVNA по USB-идентификаторам и открывает его.
func Discover() (*Device, error) {
	path, err := util.FindPort()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Close закрывает соединение с устройством.
func (d *Device) Close() error { return d.tr.Close() }

// SetSweep задает диапазон свипа. Неположительные значения пропускаются,
// соответствующая граница на устройстве не меняется.
func (d *Device) SetSweep(startHz, stopHz float64) error {
	if startHz > 0 {
		if err := d.tr.SendCommand(fmt.Sprintf("sweep start %d", int64(startHz))); err != nil {
			return err
		}
	}
	if stopHz > 0 {
		if err := d.tr.SendCommand(fmt.Sprintf("sweep stop %d", int64(stopHz))); err != nil {
			return err
		}
	}
	return nil
}

// SetFrequency устанавливает одиночную частоту. Неположительное значение
// пропускается.
func (d *Device) SetFrequency(hz float64) error {
	if hz <= 0 {
		return nil
	}
	return d.tr.SendCommand(fmt.Sprintf("freq %d", int64(hz)))
}

// SetPort выбирает измерительный порт (0 или 1). Отрицательное значение
// пропускается.
func (d *Device) SetPort(port int) error {
	if port < 0 {
		return nil
	}
	return d.tr.SendCommand(fmt.Sprintf("port %d", port))
}

// SetGain задает усиление обоих каналов. Отрицательное значение пропускается.
func (d *Device) SetGain(gain int) error {
	if gain < 0 {
		return nil
	}
	return d.tr.SendCommand(fmt.Sprintf("gain %d %d", gain, gain))
}

// SetOffset задает смещение уровня. Отрицательное значение пропускается.
func (d *Device) SetOffset(offset int) error {
	if offset < 0 {
		return nil
	}
	return d.tr.SendCommand(fmt.Sprintf("offset %d", offset))
}

// SetPower задает выходную мощность. Отрицательное значение пропускается.
func (d *Device) SetPower(power int) error {
	if power < 0 {
		return nil
	}
	return d.tr.SendCommand(fmt.Sprintf("power %d", power))
}

// Resume возвращает устройство в режим свободного сканирования.
func (d *Device) Resume() error { return d.tr.SendCommand("resume") }

// Pause останавливает обновление данных на устройстве.
func (d *Device) Pause() error { return d.tr.SendCommand("pause") }

// SendScan передает команду scan для диапазона. Неположительное число точек
// пропускается, устройство использует текущую сетку.
func (d *Device) SendScan(startHz, stopHz float64, points int) error {
	if points > 0 {
		return d.tr.SendCommand(fmt.Sprintf("scan %d %d %d", int64(startHz), int64(stopHz), points))
	}
	return d.tr.SendCommand(fmt.Sprintf("scan %d %d", int64(startHz), int64(stopHz)))
}

// FetchBuffer выгружает сырой буфер АЦП (16-битные знаковые отсчеты).
// Ответ - шестнадцатеричные токены, разделенные пробелами, построчно.
func (d *Device) FetchBuffer(buffer int) ([]int16, error) {
	if err := d.tr.SendCommand(fmt.Sprintf("dump %d", buffer)); err != nil {
		return nil, err
	}
	data, err := d.tr.ReadUntilPrompt()
	if err != nil {
		return nil, err
	}
	var out []int16
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, tok := range strings.Fields(line) {
			v, err := strconv.ParseUint(tok, 16, 16)
			if err != nil {
				return nil, fmt.Errorf("%w: токен dump %q: %v", ErrProtocol, tok, err)
			}
			out = append(out, int16(v))
		}
	}
	return out, nil
}

// FetchRawWave выгружает сырые осциллограммы опорного и измерительного
// каналов (чередующиеся отсчеты буфера 0). Положительная частота
// предварительно устанавливается на устройстве.
func (d *Device) FetchRawWave(freqHz float64) (ref, samp []int16, err error) {
	if freqHz > 0 {
		if err := d.SetFrequency(freqHz); err != nil {
			return nil, nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
	raw, err := d.FetchBuffer(0)
	if err != nil {
		return nil, nil, err
	}
	ref = make([]int16, 0, (len(raw)+1)/2)
	samp = make([]int16, 0, len(raw)/2)
	for i, v := range raw {
		if i%2 == 0 {
			ref = append(ref, v)
		} else {
			samp = append(samp, v)
		}
	}
	return ref, samp, nil
}

// FetchArray выгружает комплексный массив канала sel (0 - S11, 1 - S21).
// Каждая строка ответа содержит два вещественных токена: re im.
func (d *Device) FetchArray(sel int) ([]complex128, error) {
	if err := d.tr.SendCommand(fmt.Sprintf("data %d", sel)); err != nil {
		return nil, err
	}
	data, err := d.tr.ReadUntilPrompt()
	if err != nil {
		return nil, err
	}
	var out []complex128
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: строка data %q содержит %d токенов, ожидалось 2", ErrProtocol, line, len(parts))
		}
		re, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: действительная часть %q: %v", ErrProtocol, parts[0], err)
		}
		im, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: мнимая часть %q: %v", ErrProtocol, parts[1], err)
		}
		out = append(out, complex(re, im))
	}
	return out, nil
}

// FetchGamma запрашивает одиночный коэффициент отражения командой gamma.
// Ответ - два целых числа, нормализуемых опорным уровнем 512. Положительная
// частота предварительно устанавливается на устройстве.
func (d *Device) FetchGamma(freqHz float64) (complex128, error) {
	if freqHz > 0 {
		if err := d.SetFrequency(freqHz); err != nil {
			return 0, err
		}
	}
	if err := d.tr.SendCommand("gamma"); err != nil {
		return 0, err
	}
	line, err := d.tr.ReadLine()
	if err != nil {
		return 0, err
	}
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: ответ gamma %q содержит %d токенов, ожидалось 2", ErrProtocol, line, len(parts))
	}
	re, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: ответ gamma %q: %v", ErrProtocol, line, err)
	}
	im, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: ответ gamma %q: %v", ErrProtocol, line, err)
	}
	return complex(float64(re)/refLevel, float64(im)/refLevel), nil
}

// ReflectCoeffFromRawWave оценивает коэффициент отражения по сырым
// осциллограммам через аналитический сигнал опорного канала (преобразование
// Гильберта). Метод намеренно отделен от FetchGamma: прямой запрос и оценка
// по осциллограммам дают разные измерения одной величины.
func (d *Device) ReflectCoeffFromRawWave(freqHz float64) (complex128, error) {
	ref, samp, err := d.FetchRawWave(freqHz)
	if err != nil {
		return 0, err
	}
	n := len(ref)
	if n == 0 || len(samp) < n {
		return 0, fmt.Errorf("%w: пустые осциллограммы", ErrProtocol)
	}
	refFloat := make([]float64, n)
	for i, v := range ref {
		refFloat[i] = float64(v)
	}
	analytic := hilbert(refFloat)
	var sum complex128
	for i := 0; i < n; i++ {
		mag := cmplx.Abs(analytic[i])
		if mag == 0 {
			continue
		}
		sum += analytic[i] * complex(float64(samp[i])/(mag*refLevel), 0)
	}
	return sum / complex(float64(n), 0), nil
}

// FetchFrequencies запрашивает у устройства его текущую частотную сетку.
func (d *Device) FetchFrequencies() ([]float64, error) {
	if err := d.tr.SendCommand("frequencies"); err != nil {
		return nil, err
	}
	data, err := d.tr.ReadUntilPrompt()
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: строка frequencies %q: %v", ErrProtocol, line, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Capture снимает экран устройства: ровно 320x240 пикселей RGB565
// (big-endian, 153600 байт без текстового обрамления), развернутых в RGBA.
// Неполный кадр не восстанавливается и возвращается как ErrCapture.
func (d *Device) Capture() (*image.RGBA, error) {
	if err := d.tr.SendCommand("capture"); err != nil {
		return nil, err
	}
	raw := make([]byte, screenWidth*screenHeight*2)
	if err := d.tr.ReadFull(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight))
	for i := 0; i < screenWidth*screenHeight; i++ {
		v := binary.BigEndian.Uint16(raw[2*i:])
		img.Pix[4*i+0] = uint8((v & 0xF800) >> 8)
		img.Pix[4*i+1] = uint8((v & 0x07E0) >> 3)
		img.Pix[4*i+2] = uint8((v & 0x001F) << 3)
		img.Pix[4*i+3] = 0xFF
	}
	return img, nil
}
