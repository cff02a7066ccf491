package nanovna

import (
	"math"
	"math/cmplx"
)

// epsMagnitude защищает логарифм от нулевого модуля.
const epsMagnitude = 1e-15

// reactanceThreshold - порог, ниже которого реактивное сопротивление
// считается нулевым и эквивалентный элемент не определяется.
const reactanceThreshold = 1e-9

// MagnitudeDB возвращает модуль S-параметра в децибелах: 20*log10(|s|+eps).
func MagnitudeDB(s complex128) float64 {
	return 20 * math.Log10(cmplx.Abs(s)+epsMagnitude)
}

// PhaseDegrees возвращает фазу S-параметра в градусах.
func PhaseDegrees(s complex128) float64 {
	return cmplx.Phase(s) * 180 / math.Pi
}

// VSWR возвращает коэффициент стоячей волны (1+|s|)/(1-|s|). При |s| >= 1
// (активная цепь или измерительная погрешность) возвращается +Inf, а не
// ошибка: слой отображения показывает значение без особых случаев.
func VSWR(s complex128) float64 {
	mag := cmplx.Abs(s)
	if mag >= 1 {
		return math.Inf(1)
	}
	return (1 + mag) / (1 - mag)
}

// Impedance возвращает комплексный импеданс z0*(1+s)/(1-s). Деление на ноль
// при s == 1 дает бесконечный импеданс, а не панику.
func Impedance(s complex128, z0 float64) complex128 {
	if s == 1 {
		return complex(math.Inf(1), 0)
	}
	return complex(z0, 0) * (1 + s) / (1 - s)
}

// ComponentKind - тип эквивалентного реактивного элемента.
type ComponentKind int

const (
	ComponentNone ComponentKind = iota
	ComponentInductor
	ComponentCapacitor
)

// EquivalentComponent переводит реактивное сопротивление на частоте freqHz
// в эквивалентный элемент: индуктивность X/(2*pi*f) при X > 0, емкость
// -1/(2*pi*f*X) при X < 0. При |X| ниже порога или неположительной частоте
// элемент не определяется.
func EquivalentComponent(reactance, freqHz float64) (ComponentKind, float64) {
	if math.Abs(reactance) < reactanceThreshold || freqHz <= 0 {
		return ComponentNone, 0
	}
	omega := 2 * math.Pi * freqHz
	if reactance > 0 {
		return ComponentInductor, reactance / omega
	}
	return ComponentCapacitor, -1 / (omega * reactance)
}

// NearestSampleIndex возвращает индекс частоты, ближайшей к targetHz.
// Используется для маркеров и курсора. На пустом массиве поведение не
// определено: вызывающий код обязан проверить длину.
func NearestSampleIndex(freqs []float64, targetHz float64) int {
	idx := 0
	best := math.Abs(freqs[0] - targetHz)
	for i := 1; i < len(freqs); i++ {
		if d := math.Abs(freqs[i] - targetHz); d < best {
			best = d
			idx = i
		}
	}
	return idx
}

// DerivedPoint - вычисляемое представление одного комплексного отсчета:
// все производные величины маркера в одной структуре. Чистая функция отсчета
// и опорного импеданса 50 Ом.
type DerivedPoint struct {
	Frequency      float64
	MagnitudeDB    float64
	PhaseDegrees   float64
	VSWR           float64
	Impedance      complex128
	Component      ComponentKind
	ComponentValue float64
}

// Derive вычисляет производные величины одного отсчета S11 на частоте freqHz
// с опорным импедансом 50 Ом.
func Derive(freqHz float64, s complex128) DerivedPoint {
	z := Impedance(s, DefaultReferenceImpedance)
	kind, value := EquivalentComponent(imag(z), freqHz)
	return DerivedPoint{
		Frequency:      freqHz,
		MagnitudeDB:    MagnitudeDB(s),
		PhaseDegrees:   PhaseDegrees(s),
		VSWR:           VSWR(s),
		Impedance:      z,
		Component:      kind,
		ComponentValue: value,
	}
}
