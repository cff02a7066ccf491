package nanovna

// Resample интерполирует свип на points точек кубическим сплайном
// (независимо по действительной и мнимой частям S11 и S21) на равномерной
// сетке между первой и последней частотой свипа. Если points не превышает
// текущего числа точек, свип возвращается без изменений: прореживание не
// выполняется, поэтому повторный вызов с тем же points - тождественная
// операция.
func Resample(s Sweep, points int) (Sweep, error) {
	if points <= len(s.Frequencies) {
		return s, nil
	}
	freqNew := linspace(s.Frequencies[0], s.Frequencies[len(s.Frequencies)-1], points)
	s11, err := cubicInterpComplex(s.Frequencies, s.S11, freqNew)
	if err != nil {
		return Sweep{}, err
	}
	s21, err := cubicInterpComplex(s.Frequencies, s.S21, freqNew)
	if err != nil {
		return Sweep{}, err
	}
	return Sweep{Frequencies: freqNew, S11: s11, S21: s21}, nil
}

// SmoothComplex применяет центрированное скользящее среднее окна window
// независимо к действительной и мнимой частям. Длина результата равна длине
// входа; крайние окна усекаются границами ряда (без заворота). Окно не
// больше 1 - тождественная операция. Сглаживание предполагает плотную
// равномерную сетку, поэтому сначала Resample, затем SmoothComplex.
func SmoothComplex(samples []complex128, window int) []complex128 {
	if window <= 1 || len(samples) == 0 {
		return samples
	}
	n := len(samples)
	out := make([]complex128, n)
	// Границы окна повторяют numpy.convolve(..., mode="same"):
	// для окна w точка i усредняет индексы [i-w+1+(w-1)/2, i+(w-1)/2].
	half := (window - 1) / 2
	for i := 0; i < n; i++ {
		lo := i + half - window + 1
		hi := i + half
		var sumRe, sumIm float64
		for j := lo; j <= hi; j++ {
			if j < 0 || j >= n {
				continue
			}
			sumRe += real(samples[j])
			sumIm += imag(samples[j])
		}
		out[i] = complex(sumRe/float64(window), sumIm/float64(window))
	}
	return out
}

// SmoothSweep сглаживает оба канала свипа одним окном.
func SmoothSweep(s Sweep, window int) Sweep {
	if window <= 1 {
		return s
	}
	return Sweep{
		Frequencies: s.Frequencies,
		S11:         SmoothComplex(s.S11, window),
		S21:         SmoothComplex(s.S21, window),
	}
}
