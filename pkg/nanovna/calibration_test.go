package nanovna

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// measureThrough моделирует однопортовую модель ошибок в прямом направлении:
// измеренное значение для истинного коэффициента gamma.
func measureThrough(gamma, e00, e11, tracking complex128) complex128 {
	return e00 + gamma*e11/(1-gamma*tracking)
}

// syntheticStandards строит измерения эталонов open/short/load через
// заданные коэффициенты ошибок.
func syntheticStandards(freqs []float64, e00, e11, tracking complex128) map[CalibrationStandard]Sweep {
	n := len(freqs)
	mk := func(gamma complex128) Sweep {
		s11 := make([]complex128, n)
		for i := range s11 {
			s11[i] = measureThrough(gamma, e00, e11, tracking)
		}
		return Sweep{Frequencies: cloneFloat64Slice(freqs), S11: s11, S21: make([]complex128, n)}
	}
	return map[CalibrationStandard]Sweep{
		CalibrationStandardOpen:  mk(1),
		CalibrationStandardShort: mk(-1),
		CalibrationStandardLoad:  mk(0),
	}
}

func TestComputeErrorTermsRecoversModel(t *testing.T) {
	freqs := linspace(1e6, 10e6, 5)
	e00 := complex(0.1, 0.05)
	e11 := complex(0.9, 0)
	tracking := complex(0.02, 0)

	p := &CalibrationProfile{
		Method:    CalibrationMethodSOL,
		Standards: syntheticStandards(freqs, e00, e11, tracking),
	}
	require.NoError(t, p.computeErrorTerms())
	require.NoError(t, p.Validate())

	for i := range freqs {
		assert.InDelta(t, real(e00), real(p.ErrorTerms.Directivity[i]), 1e-12)
		assert.InDelta(t, imag(e00), imag(p.ErrorTerms.Directivity[i]), 1e-12)
		assert.InDelta(t, real(e11), real(p.ErrorTerms.SourceMatch[i]), 1e-9)
		assert.InDelta(t, real(tracking), real(p.ErrorTerms.ReflectionTracking[i]), 1e-9)
	}
}

func TestApplyRecoversTrueReflection(t *testing.T) {
	freqs := linspace(1e6, 10e6, 5)
	e00 := complex(0.08, -0.03)
	e11 := complex(0.85, 0.1)
	tracking := complex(0.05, -0.01)

	p := &CalibrationProfile{
		Method:    CalibrationMethodSOL,
		Standards: syntheticStandards(freqs, e00, e11, tracking),
	}
	require.NoError(t, p.computeErrorTerms())

	// Произвольная нагрузка, измеренная через ту же модель ошибок.
	gamma := complex(0.3, -0.4)
	raw := Sweep{
		Frequencies: cloneFloat64Slice(freqs),
		S11:         make([]complex128, len(freqs)),
		S21:         make([]complex128, len(freqs)),
	}
	for i := range raw.S11 {
		raw.S11[i] = measureThrough(gamma, e00, e11, tracking)
	}

	calibrated, err := p.Apply(raw)
	require.NoError(t, err)
	for i := range calibrated.S11 {
		assert.InDelta(t, real(gamma), real(calibrated.S11[i]), 1e-9, "точка %d", i)
		assert.InDelta(t, imag(gamma), imag(calibrated.S11[i]), 1e-9, "точка %d", i)
	}
}

func TestApplyIdealStandardsIdentity(t *testing.T) {
	// С идеальными эталонами (e00=0, e11=1, tracking=0) коррекция
	// тождественна.
	freqs := linspace(1e6, 10e6, 3)
	p := &CalibrationProfile{
		Method:    CalibrationMethodSOL,
		Standards: syntheticStandards(freqs, 0, 1, 0),
	}
	require.NoError(t, p.computeErrorTerms())

	s := Sweep{
		Frequencies: cloneFloat64Slice(freqs),
		S11:         []complex128{complex(0.2, 0.1), complex(-0.5, 0), complex(0, 0.7)},
		S21:         make([]complex128, 3),
	}
	got, err := p.Apply(s)
	require.NoError(t, err)
	for i := range s.S11 {
		assert.InDelta(t, real(s.S11[i]), real(got.S11[i]), 1e-12)
		assert.InDelta(t, imag(s.S11[i]), imag(got.S11[i]), 1e-12)
	}
}

func TestComputeErrorTermsMissingStandard(t *testing.T) {
	freqs := linspace(1e6, 10e6, 3)
	standards := syntheticStandards(freqs, 0, 1, 0)
	delete(standards, CalibrationStandardLoad)

	p := &CalibrationProfile{Method: CalibrationMethodSOL, Standards: standards}
	assert.Error(t, p.computeErrorTerms())
}

func TestComputeErrorTermsGridMismatch(t *testing.T) {
	standards := syntheticStandards(linspace(1e6, 10e6, 3), 0, 1, 0)
	shifted := syntheticStandards(linspace(2e6, 20e6, 3), 0, 1, 0)
	standards[CalibrationStandardOpen] = shifted[CalibrationStandardOpen]

	p := &CalibrationProfile{Method: CalibrationMethodSOL, Standards: standards}
	assert.Error(t, p.computeErrorTerms())
}

func TestApplyGridMismatch(t *testing.T) {
	freqs := linspace(1e6, 10e6, 3)
	p := &CalibrationProfile{
		Method:    CalibrationMethodSOL,
		Standards: syntheticStandards(freqs, 0, 1, 0),
	}
	require.NoError(t, p.computeErrorTerms())

	wrongLen := Sweep{Frequencies: linspace(1e6, 10e6, 5)}
	_, err := p.Apply(wrongLen)
	assert.Error(t, err)

	shifted := Sweep{
		Frequencies: linspace(2e6, 20e6, 3),
		S11:         make([]complex128, 3),
		S21:         make([]complex128, 3),
	}
	_, err = p.Apply(shifted)
	assert.Error(t, err)
}

func TestAcquireCalibrationWithMockDevice(t *testing.T) {
	dev, mp := newMockDevice(t)
	vna := NewVNA(dev)
	cfg := SweepConfig{Start: 1e6, Stop: 10e6, Points: 5}
	freqs := linspace(cfg.Start, cfg.Stop, cfg.Points)

	e00 := complex(0.1, 0)
	e11 := complex(0.9, 0)
	tracking := complex(0.02, 0)
	standards := syntheticStandards(freqs, e00, e11, tracking)

	plan := CalibrationPlan{
		Name:  "настольная калибровка",
		Sweep: cfg,
		Standards: []CalibrationStandard{
			CalibrationStandardOpen, CalibrationStandardShort, CalibrationStandardLoad,
		},
	}
	var prompted []CalibrationStandard
	prompt := func(ctx context.Context, standard CalibrationStandard) error {
		prompted = append(prompted, standard)
		// Сценарий очередного эталона подкладывается в момент запроса.
		std := standards[standard]
		mp.queueScan(cfg, std.S11, std.S21)
		return nil
	}

	profile, err := vna.AcquireCalibration(context.Background(), plan, prompt)
	require.NoError(t, err)
	assert.Equal(t, plan.Standards, prompted)
	assert.Equal(t, "настольная калибровка", profile.Name)
	assert.Equal(t, CalibrationMethodSOL, profile.Method)
	require.Len(t, profile.ErrorTerms.Directivity, cfg.Points)
	// Мок пишет значения с точностью до шести знаков.
	assert.InDelta(t, real(e00), real(profile.ErrorTerms.Directivity[0]), 1e-5)
	assert.InDelta(t, real(e11), real(profile.ErrorTerms.SourceMatch[0]), 1e-4)
}

func TestAcquireCalibrationCancelled(t *testing.T) {
	dev, _ := newMockDevice(t)
	vna := NewVNA(dev)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := CalibrationPlan{
		Sweep:     SweepConfig{Start: 1e6, Stop: 10e6, Points: 5},
		Standards: []CalibrationStandard{CalibrationStandardOpen},
	}
	_, err := vna.AcquireCalibration(ctx, plan, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireCalibrationPromptAbort(t *testing.T) {
	dev, _ := newMockDevice(t)
	vna := NewVNA(dev)
	abort := errors.New("оператор отменил калибровку")

	plan := CalibrationPlan{
		Sweep:     SweepConfig{Start: 1e6, Stop: 10e6, Points: 5},
		Standards: []CalibrationStandard{CalibrationStandardOpen},
	}
	_, err := vna.AcquireCalibration(context.Background(), plan,
		func(context.Context, CalibrationStandard) error { return abort })
	assert.ErrorIs(t, err, abort)
}

func TestSetCalibrationRejectsInvalid(t *testing.T) {
	dev, _ := newMockDevice(t)
	vna := NewVNA(dev)

	assert.Error(t, vna.SetCalibration(&CalibrationProfile{}))
	assert.NoError(t, vna.SetCalibration(nil))
}
