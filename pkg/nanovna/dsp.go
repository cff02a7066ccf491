package nanovna

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// linspace возвращает n точек, равномерно распределенных на [start, stop].
func linspace(start, stop float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}
	dst := make([]float64, n)
	return floats.Span(dst, start, stop)
}

// cubicInterpComplex выполняет кубическую сплайн-интерполяцию комплексного
// ряда независимо по действительной и мнимой частям. Узлы xs должны строго
// возрастать; за пределами исходного диапазона сплайн экстраполируется
// своими крайними сегментами, артефакты у краев остаются на совести
// вызывающего кода.
func cubicInterpComplex(xs []float64, ys []complex128, xNew []float64) ([]complex128, error) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: для сплайна требуется минимум 2 узла", ErrInsufficientData)
	}
	re := make([]float64, len(ys))
	im := make([]float64, len(ys))
	for i, v := range ys {
		re[i] = real(v)
		im[i] = imag(v)
	}
	var splineRe, splineIm interp.NaturalCubic
	if err := splineRe.Fit(xs, re); err != nil {
		return nil, fmt.Errorf("сплайн действительной части: %w", err)
	}
	if err := splineIm.Fit(xs, im); err != nil {
		return nil, fmt.Errorf("сплайн мнимой части: %w", err)
	}
	out := make([]complex128, len(xNew))
	for i, x := range xNew {
		out[i] = complex(splineRe.Predict(x), splineIm.Predict(x))
	}
	return out, nil
}

// ifft выполняет обратное дискретное преобразование Фурье с нормализацией
// 1/N (соглашение numpy.fft.ifft). Sequence у gonum не нормализован.
func ifft(x []complex128) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	fft := fourier.NewCmplxFFT(n)
	seq := fft.Sequence(nil, x)
	scale := complex(float64(n), 0)
	for i := range seq {
		seq[i] /= scale
	}
	return seq
}

// fftFreq возвращает частоты бинов ДПФ для длины n и шага отсчетов d
// в порядке numpy.fft.fftfreq: неотрицательные бины, затем отрицательные.
func fftFreq(n int, d float64) []float64 {
	out := make([]float64, n)
	step := 1.0 / (float64(n) * d)
	half := (n - 1) / 2
	for i := 0; i <= half; i++ {
		out[i] = float64(i) * step
	}
	for i := half + 1; i < n; i++ {
		out[i] = float64(i-n) * step
	}
	return out
}

// hilbert строит аналитический сигнал вещественного ряда: ДПФ, удвоение
// положительных частот, обнуление отрицательных, обратное преобразование.
func hilbert(x []float64) []complex128 {
	n := len(x)
	if n == 0 {
		return nil
	}
	c := make([]complex128, n)
	for i, v := range x {
		c[i] = complex(v, 0)
	}
	fft := fourier.NewCmplxFFT(n)
	coeff := fft.Coefficients(nil, c)
	// Бин 0 и бин Найквиста (для четного n) остаются без изменений.
	upper := n / 2
	if n%2 != 0 {
		upper = (n + 1) / 2
	}
	for i := 1; i < upper; i++ {
		coeff[i] *= 2
	}
	for i := n/2 + 1; i < n; i++ {
		coeff[i] = 0
	}
	return ifft(coeff)
}

// kaiserWindow возвращает окно Кайзера длины n с параметром формы beta.
// В gonum/dsp/window окно Кайзера отсутствует, поэтому оно вычисляется
// напрямую через модифицированную функцию Бесселя I0.
func kaiserWindow(n int, beta float64) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	denom := besselI0(beta)
	alpha := float64(n-1) / 2
	for i := range w {
		x := (float64(i) - alpha) / alpha
		w[i] = besselI0(beta*math.Sqrt(1-x*x)) / denom
	}
	return w
}

// besselI0 - модифицированная функция Бесселя первого рода нулевого порядка,
// ряд Тейлора с остановкой по машинной точности.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	for k := 1; k < 64; k++ {
		h := x / (2 * float64(k))
		term *= h * h
		sum += term
		if term < sum*1e-16 {
			break
		}
	}
	return sum
}
