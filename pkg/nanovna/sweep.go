package nanovna

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SweepConfig описывает запрашиваемый частотный диапазон сканирования.
type SweepConfig struct {
	Start, Stop float64
	Points      int
}

// Validate проверяет параметры диапазона перед отправкой на устройство.
func (c SweepConfig) Validate() error {
	if c.Start >= c.Stop || c.Points <= 0 {
		return errors.New("некорректные параметры сканирования")
	}
	if c.Start <= 0 {
		return errors.New("начальная частота должна быть положительной")
	}
	return nil
}

// Sweep - результат одного логического сканирования: частотная сетка и
// комплексные S-параметры обоих каналов. Все три среза одинаковой длины,
// частоты строго возрастают.
type Sweep struct {
	Frequencies []float64
	S11, S21    []complex128
}

// Validate проверяет инварианты свипа: равенство длин и строгое
// возрастание частот.
func (s Sweep) Validate() error {
	if len(s.Frequencies) == 0 {
		return errors.New("свип не содержит точек")
	}
	if len(s.S11) != len(s.Frequencies) || len(s.S21) != len(s.Frequencies) {
		return fmt.Errorf("длины массивов не совпадают: freq=%d s11=%d s21=%d",
			len(s.Frequencies), len(s.S11), len(s.S21))
	}
	for i := 1; i < len(s.Frequencies); i++ {
		if s.Frequencies[i] <= s.Frequencies[i-1] {
			return fmt.Errorf("частоты не возрастают на индексе %d", i)
		}
	}
	return nil
}

// Clone возвращает глубокую копию свипа. Вызывающий код делает снимок,
// если ему нужна история: ядро хранит только последний результат.
func (s Sweep) Clone() Sweep {
	return Sweep{
		Frequencies: cloneFloat64Slice(s.Frequencies),
		S11:         cloneComplexSlice(s.S11),
		S21:         cloneComplexSlice(s.S21),
	}
}

// ToTouchstone сериализует свип в формат Touchstone (.s2p, RI, 50 Ом).
func (s Sweep) ToTouchstone() string {
	var sb strings.Builder
	sb.WriteString("! NanoVNA Data Export\n")
	sb.WriteString("! Date: " + time.Now().Format(time.RFC3339) + "\n")
	sb.WriteString("# Hz S RI R 50\n")
	for i := range s.Frequencies {
		sb.WriteString(fmt.Sprintf("%d %.6f %.6f %.6f %.6f\n",
			int(s.Frequencies[i]), real(s.S11[i]), imag(s.S11[i]),
			real(s.S21[i]), imag(s.S21[i])))
	}
	return sb.String()
}

func cloneFloat64Slice(src []float64) []float64 {
	if src == nil {
		return nil
	}
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}

func cloneComplexSlice(src []complex128) []complex128 {
	if src == nil {
		return nil
	}
	dst := make([]complex128, len(src))
	copy(dst, src)
	return dst
}
