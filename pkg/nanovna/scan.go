package nanovna

import (
	"context"
	"fmt"
)

// Scan выполняет посегментное сканирование диапазона и собирает один
// логически непрерывный свип. Диапазон разбивается на куски не более чем по
// maxSegmentPoints точек; для каждого куска отправляется команда scan и
// выгружаются массивы обоих каналов. Ошибка любого сегмента прерывает все
// сканирование: частичные свипы наружу не отдаются. По завершении устройство
// возвращается в режим свободного сканирования командой resume.
func (d *Device) Scan(cfg SweepConfig) (Sweep, error) {
	if err := cfg.Validate(); err != nil {
		return Sweep{}, err
	}

	freqs := linspace(cfg.Start, cfg.Stop, cfg.Points)
	s11 := make([]complex128, 0, cfg.Points)
	s21 := make([]complex128, 0, cfg.Points)

	// Каждая итерация потребляет минимум одну точку, поэтому цикл
	// ограничен ⌈Points/maxSegmentPoints⌉ итерациями.
	for offset := 0; offset < len(freqs); offset += maxSegmentPoints {
		end := offset + maxSegmentPoints
		if end > len(freqs) {
			end = len(freqs)
		}
		seg := freqs[offset:end]

		if err := d.SendScan(seg[0], seg[len(seg)-1], len(seg)); err != nil {
			return Sweep{}, err
		}
		a0, err := d.FetchArray(0)
		if err != nil {
			return Sweep{}, err
		}
		if len(a0) != len(seg) {
			return Sweep{}, fmt.Errorf("%w: сегмент вернул %d точек S11, ожидалось %d", ErrProtocol, len(a0), len(seg))
		}
		a1, err := d.FetchArray(1)
		if err != nil {
			return Sweep{}, err
		}
		if len(a1) != len(seg) {
			return Sweep{}, fmt.Errorf("%w: сегмент вернул %d точек S21, ожидалось %d", ErrProtocol, len(a1), len(seg))
		}
		s11 = append(s11, a0...)
		s21 = append(s21, a1...)
		Logf("сегмент %d..%d Гц: %d точек", int64(seg[0]), int64(seg[len(seg)-1]), len(seg))
	}

	if err := d.Resume(); err != nil {
		return Sweep{}, err
	}

	sweep := Sweep{Frequencies: freqs, S11: s11, S21: s21}
	if err := sweep.Validate(); err != nil {
		return Sweep{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return sweep, nil
}

// Stream повторяет Scan в цикле и публикует каждый завершенный свип в out.
// Отмена кооперативная: контекст проверяется раз в итерацию, текущий свип
// досканируется до конца. Канал out принадлежит вызывающему коду и им же
// закрывается.
func (d *Device) Stream(ctx context.Context, cfg SweepConfig, out chan<- Sweep) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sweep, err := d.Scan(cfg)
		if err != nil {
			return err
		}

		select {
		case out <- sweep:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
