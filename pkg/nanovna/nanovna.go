// Package nanovna предоставляет API для сбора и обработки данных NanoVNA:
// транспорт текстового протокола прошивки, посегментное сканирование,
// передискретизацию, TDR-анализ и расчет производных величин (VSWR, импеданс).
package nanovna

import (
	"errors"
	"log"
)

// Предельные значения и константы прошивки.
const (
	// maxSegmentPoints - максимальное число точек в одной команде scan.
	maxSegmentPoints = 101

	// refLevel - опорный уровень для нормализации коэффициента отражения (1 << 9).
	refLevel = 512

	// Размер экрана устройства для команды capture.
	screenWidth  = 320
	screenHeight = 240

	// speedOfLight - скорость света в вакууме, м/с.
	speedOfLight = 299792458.0

	// DefaultReferenceImpedance - опорный импеданс измерительного тракта, Ом.
	DefaultReferenceImpedance = 50.0
)

// Ошибки уровня транспорта и протокола. Низкоуровневые ошибки оборачиваются
// через %w, поэтому вызывающий код проверяет их с помощью errors.Is.
var (
	// ErrTransport - ошибка ввода-вывода на последовательном канале.
	ErrTransport = errors.New("ошибка обмена с устройством")

	// ErrProtocol - неожиданный или некорректный ответ прошивки.
	ErrProtocol = errors.New("некорректный ответ устройства")

	// ErrCapture - неполный кадр при чтении снимка экрана.
	ErrCapture = errors.New("неполные данные снимка экрана")

	// ErrInsufficientData - данных недостаточно для интерполяции или преобразования.
	ErrInsufficientData = errors.New("недостаточно точек данных")
)

// Logf - диагностический логгер пакета. По умолчанию log.Printf; тесты и
// встраивающий код могут заменить его через SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger заменяет логгер пакета. nil отключает логирование.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
