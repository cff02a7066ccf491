package nanovna

import (
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// kaiserBeta - параметр формы окна Кайзера для подавления боковых лепестков
// спектральной утечки в TDR-отклике.
const kaiserBeta = 5.0

// TDRResult - результат рефлектометрии во временной области. Пересчитывается
// по требованию из свипа и нигде не сохраняется.
type TDRResult struct {
	// Time - ось времени в секундах, индекс 0 соответствует "сейчас",
	// дальнейшие индексы - задержке кругового прохода.
	Time []float64
	// Response - комплексный отклик той же длины.
	Response []complex128
	// CableLength - оценка длины кабеля в метрах по доминирующему пику
	// (заполняется AnalyzeTDR).
	CableLength float64
}

// ComputeTDR строит TDR-отклик по S11: кубическая интерполяция на numPoints
// равномерных частот между наблюдаемыми минимумом и максимумом, обратное ДПФ
// и поэлементное умножение на окно Кайзера (beta=5). Меньше двух точек -
// вырожденный одноэлементный нулевой результат без ошибки, чтобы слой
// отображения мог показать пустой график.
//
// Ось времени намеренно воспроизводит формулу исходной реализации
// dt = 1/df при df = (fmax-fmin)/(numPoints-1), которая отличается от
// стандартного шага 1/(N*df); оценки длины кабеля откалиброваны именно
// под нее.
func ComputeTDR(freqs []float64, s11 []complex128, numPoints int) TDRResult {
	degenerate := TDRResult{Time: []float64{0}, Response: []complex128{0}}
	if len(freqs) < 2 || numPoints < 2 {
		return degenerate
	}
	fmin := floats.Min(freqs)
	fmax := floats.Max(freqs)

	dense := linspace(fmin, fmax, numPoints)
	interp, err := cubicInterpComplex(freqs, s11, dense)
	if err != nil {
		return degenerate
	}

	timeDomain := ifft(interp)
	win := kaiserWindow(numPoints, kaiserBeta)
	resp := make([]complex128, numPoints)
	for i := range timeDomain {
		resp[i] = timeDomain[i] * complex(win[i], 0)
	}

	df := (fmax - fmin) / float64(numPoints-1)
	dt := 0.0
	if df > 0 {
		dt = 1.0 / df
	}
	timeAxis := make([]float64, numPoints)
	for k := range timeAxis {
		timeAxis[k] = float64(k) * dt
	}
	return TDRResult{Time: timeAxis, Response: resp}
}

// EstimateCableLength оценивает длину кабеля по сырому (неуплотненному и
// неоконному) S11: обратное ДПФ, отбор неотрицательных временных бинов по
// разметке fftFreq и поиск пика модуля. Возвращает
// speedOfLight * velocityFactor * t_пика / 2 (деление на два - круговой
// проход). Путь оценки длины намеренно отделен от ComputeTDR: для точного
// положения пика окно не применяется.
func EstimateCableLength(freqs []float64, s11 []complex128, velocityFactor float64) float64 {
	if len(freqs) == 0 || len(s11) == 0 {
		return 0
	}
	timeDomain := ifft(s11)

	df := 1.0
	if len(freqs) > 1 {
		df = freqs[1] - freqs[0]
	}
	timeVals := fftFreq(len(freqs), df)

	peakTime := 0.0
	peakMag := -1.0
	for i, t := range timeVals {
		if t < 0 || i >= len(timeDomain) {
			continue
		}
		if mag := cmplx.Abs(timeDomain[i]); mag > peakMag {
			peakMag = mag
			peakTime = t
		}
	}
	return speedOfLight * velocityFactor * peakTime / 2.0
}

// AnalyzeTDR объединяет оба пути: плотный оконный отклик для графика и
// оценку длины кабеля по сырым данным.
func AnalyzeTDR(freqs []float64, s11 []complex128, numPoints int, velocityFactor float64) TDRResult {
	res := ComputeTDR(freqs, s11, numPoints)
	res.CableLength = EstimateCableLength(freqs, s11, velocityFactor)
	return res
}
