package nanovna

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

type CalibrationMethod string

const (
	CalibrationMethodSOL CalibrationMethod = "SOL"
)

type CalibrationStandard string

const (
	CalibrationStandardOpen  CalibrationStandard = "open"
	CalibrationStandardShort CalibrationStandard = "short"
	CalibrationStandardLoad  CalibrationStandard = "load"
)

// CalibrationPlan описывает последовательность эталонов, которые оператор
// подключает по очереди.
type CalibrationPlan struct {
	Name      string
	Sweep     SweepConfig
	Standards []CalibrationStandard
}

// CalibrationPrompt вызывается перед измерением каждого эталона, чтобы
// оператор успел подключить его. Возврат ошибки прерывает калибровку.
type CalibrationPrompt func(ctx context.Context, standard CalibrationStandard) error

// CalibrationErrorTerms - коэффициенты однопортовой модели ошибок.
type CalibrationErrorTerms struct {
	Directivity        []complex128
	SourceMatch        []complex128
	ReflectionTracking []complex128
}

// CalibrationProfile - рассчитанный профиль коррекции для конкретной
// частотной сетки.
type CalibrationProfile struct {
	Name        string
	Method      CalibrationMethod
	CreatedAt   time.Time
	Sweep       SweepConfig
	Frequencies []float64
	Standards   map[CalibrationStandard]Sweep
	ErrorTerms  CalibrationErrorTerms
}

// AcquireCalibration последовательно сканирует эталоны open/short/load,
// рассчитывает коэффициенты ошибок и устанавливает профиль активным.
func (v *VNA) AcquireCalibration(ctx context.Context, plan CalibrationPlan, prompt CalibrationPrompt) (*CalibrationProfile, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(plan.Standards) == 0 {
		return nil, errors.New("план калибровки не содержит эталонов")
	}
	if err := plan.Sweep.Validate(); err != nil {
		return nil, fmt.Errorf("некорректные параметры сканирования в плане калибровки: %w", err)
	}

	profile := &CalibrationProfile{
		Name:      plan.Name,
		Method:    CalibrationMethodSOL,
		CreatedAt: time.Now(),
		Sweep:     plan.Sweep,
		Standards: make(map[CalibrationStandard]Sweep),
	}

	for _, standard := range plan.Standards {
		if prompt != nil {
			if err := prompt(ctx, standard); err != nil {
				return nil, err
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		v.mu.Lock()
		sweep, err := v.dev.Scan(plan.Sweep)
		v.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("ошибка получения данных для эталона %s: %w", standard, err)
		}
		profile.Standards[standard] = sweep.Clone()
	}

	if err := profile.computeErrorTerms(); err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.calibration = profile
	v.mu.Unlock()

	return profile, nil
}

// SetCalibration устанавливает (или сбрасывает при nil) активный профиль.
func (v *VNA) SetCalibration(p *CalibrationProfile) error {
	if p != nil {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	v.mu.Lock()
	v.calibration = p
	v.mu.Unlock()
	return nil
}

func (p *CalibrationProfile) computeErrorTerms() error {
	openMeas, okOpen := p.Standards[CalibrationStandardOpen]
	shortMeas, okShort := p.Standards[CalibrationStandardShort]
	loadMeas, okLoad := p.Standards[CalibrationStandardLoad]

	if !(okOpen && okShort && okLoad) {
		return errors.New("для расчета коэффициентов SOL требуется набор open/short/load")
	}
	if len(loadMeas.S11) == 0 {
		return errors.New("получены пустые данные калибровки")
	}
	if !frequenciesMatch(loadMeas.Frequencies, openMeas.Frequencies) || !frequenciesMatch(loadMeas.Frequencies, shortMeas.Frequencies) {
		return errors.New("частотные сетки эталонов не совпадают")
	}

	count := len(loadMeas.S11)
	directivity := make([]complex128, count)
	sourceMatch := make([]complex128, count)
	tracking := make([]complex128, count)

	for i := 0; i < count; i++ {
		e00 := loadMeas.S11[i]
		lo := openMeas.S11[i] - e00
		ls := shortMeas.S11[i] - e00
		denom := lo - ls
		if denom == 0 {
			return fmt.Errorf("деление на ноль при расчете коэффициентов на частоте %.3f Гц", loadMeas.Frequencies[i])
		}

		e10e32 := (lo + ls) / denom
		e11 := -ls * (1 + e10e32)

		directivity[i] = e00
		sourceMatch[i] = e11
		tracking[i] = e10e32
	}

	p.Frequencies = cloneFloat64Slice(loadMeas.Frequencies)
	p.ErrorTerms = CalibrationErrorTerms{
		Directivity:        directivity,
		SourceMatch:        sourceMatch,
		ReflectionTracking: tracking,
	}
	return nil
}

// Validate проверяет целостность профиля.
func (p *CalibrationProfile) Validate() error {
	if p == nil {
		return errors.New("калибровочный профиль не задан")
	}
	if len(p.Frequencies) == 0 {
		return errors.New("калибровочный профиль не содержит частот")
	}
	if len(p.ErrorTerms.Directivity) != len(p.Frequencies) ||
		len(p.ErrorTerms.SourceMatch) != len(p.Frequencies) ||
		len(p.ErrorTerms.ReflectionTracking) != len(p.Frequencies) {
		return errors.New("коэффициенты калибровки не совпадают по размеру с частотной сеткой")
	}

	if p.Method == CalibrationMethodSOL {
		for _, standard := range []CalibrationStandard{CalibrationStandardOpen, CalibrationStandardShort, CalibrationStandardLoad} {
			if _, ok := p.Standards[standard]; !ok {
				return fmt.Errorf("отсутствуют измерения эталона %s", standard)
			}
		}
	}
	return nil
}

// Apply применяет коррекцию ошибок к S11 свипа. Частотная сетка данных
// обязана совпадать с сеткой профиля.
func (p *CalibrationProfile) Apply(s Sweep) (Sweep, error) {
	if len(s.Frequencies) != len(p.Frequencies) {
		return Sweep{}, errors.New("размер частотной сетки данных не совпадает с калибровкой")
	}
	for i := range s.Frequencies {
		if math.Abs(s.Frequencies[i]-p.Frequencies[i]) > 1e-3 {
			return Sweep{}, errors.New("частоты данных не совпадают с калибровкой")
		}
	}

	calibrated := Sweep{
		Frequencies: cloneFloat64Slice(s.Frequencies),
		S11:         make([]complex128, len(s.S11)),
		S21:         cloneComplexSlice(s.S21),
	}

	for i, measurement := range s.S11 {
		e00 := p.ErrorTerms.Directivity[i]
		e11 := p.ErrorTerms.SourceMatch[i]
		tracking := p.ErrorTerms.ReflectionTracking[i]

		numerator := measurement - e00
		denominator := e11 + tracking*(measurement-e00)
		if denominator == 0 {
			return Sweep{}, fmt.Errorf("деление на ноль при применении калибровки на частоте %.3f Гц", s.Frequencies[i])
		}
		calibrated.S11[i] = numerator / denominator
	}
	return calibrated, nil
}

func frequenciesMatch(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-3 {
			return false
		}
	}
	return true
}
