package nanovna

import (
	"fmt"
	"sync"
)

// VNA - потокобезопасная обертка над устройством. Последовательный порт -
// единоличный ресурс: в один момент времени допустимо только одно логическое
// сканирование, поэтому все операции сериализуются мьютексом.
type VNA struct {
	dev         *Device
	mu          sync.Mutex
	config      SweepConfig
	calibration *CalibrationProfile
}

// NewVNA создает обертку над готовым устройством.
func NewVNA(dev *Device) *VNA {
	return &VNA{dev: dev}
}

// SetSweep проверяет и запоминает диапазон сканирования, а также передает
// границы на устройство для режима свободного сканирования.
func (v *VNA) SetSweep(cfg SweepConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.config = cfg
	return v.dev.SetSweep(cfg.Start, cfg.Stop)
}

// Acquire выполняет посегментное сканирование текущего диапазона. Если
// загружен калибровочный профиль, к S11 применяется коррекция ошибок.
func (v *VNA) Acquire() (Sweep, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sweep, err := v.dev.Scan(v.config)
	if err != nil {
		return Sweep{}, err
	}
	if v.calibration != nil {
		return v.calibration.Apply(sweep)
	}
	return sweep, nil
}

// Device возвращает нижележащее устройство для операций, не требующих
// сериализации через фасад (например, снимка экрана из одного владельца).
func (v *VNA) Device() *Device { return v.dev }

// Close закрывает соединение с устройством.
func (v *VNA) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dev.Close()
}

// Pool управляет набором открытых устройств по путям портов. Соединение -
// явный ресурс с областью видимости: пустой путь означает автопоиск по
// USB-идентификаторам, глобального синглтона устройства нет.
type Pool struct {
	devices map[string]*VNA
	mu      sync.RWMutex
}

// NewPool создает пустой пул устройств.
func NewPool() *Pool { return &Pool{devices: make(map[string]*VNA)} }

// Get возвращает устройство для пути порта, открывая его при первом
// обращении. Пустой путь запускает автопоиск.
func (p *Pool) Get(portPath string) (*VNA, error) {
	p.mu.RLock()
	if vna, exists := p.devices[portPath]; exists {
		p.mu.RUnlock()
		return vna, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if vna, exists := p.devices[portPath]; exists {
		return vna, nil
	}

	var dev *Device
	var err error
	if portPath == "" {
		dev, err = Discover()
	} else {
		dev, err = Open(portPath)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия устройства %q: %w", portPath, err)
	}

	vna := NewVNA(dev)
	p.devices[portPath] = vna
	return vna, nil
}

// CloseAll закрывает все устройства пула.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, vna := range p.devices {
		vna.Close()
	}
}
