// Package main - HTTP-сервер сбора данных с NanoVNA: сканирование с экспортом
// Touchstone, TDR-анализ и снимок экрана устройства.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/nanovna/pkg/nanovna"
)

var (
	listen   = flag.String("listen", ":8080", "адрес HTTP-сервера")
	portPath = flag.String("port", "", "путь последовательного порта (пусто - автопоиск по USB VID/PID)")
)

var (
	scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nanovna_scan_duration_seconds",
			Help: "Duration of VNA scan operations",
		},
		[]string{"port"},
	)
	sweepPoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nanovna_sweep_points_total",
			Help: "Total number of sweep points acquired",
		},
		[]string{"port"},
	)
)

func init() {
	prometheus.MustRegister(scanDuration, sweepPoints)
}

func main() {
	flag.Parse()

	pool := nanovna.NewPool()
	defer pool.CloseAll()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/scan", scanHandler(pool))
	mux.HandleFunc("/api/v1/tdr", tdrHandler(pool))
	mux.HandleFunc("/api/v1/capture", captureHandler(pool))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: *listen, Handler: mux}

	go func() {
		log.Printf("Сервер запущен на %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка HTTP сервера: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Сервер останавливается...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Ошибка при корректном завершении сервера: %v", err)
	}
	log.Println("Сервер успешно остановлен.")
}

// sweepParams разбирает параметры диапазона из запроса. Значения по
// умолчанию повторяют стартовый экран прошивки: 1 МГц - 900 МГц, 101 точка.
func sweepParams(r *http.Request) (nanovna.SweepConfig, error) {
	cfg := nanovna.SweepConfig{Start: 1e6, Stop: 900e6, Points: 101}
	var err error
	if s := r.URL.Query().Get("start"); s != "" {
		if cfg.Start, err = strconv.ParseFloat(s, 64); err != nil {
			return cfg, fmt.Errorf("параметр start: %w", err)
		}
	}
	if s := r.URL.Query().Get("stop"); s != "" {
		if cfg.Stop, err = strconv.ParseFloat(s, 64); err != nil {
			return cfg, fmt.Errorf("параметр stop: %w", err)
		}
	}
	if s := r.URL.Query().Get("points"); s != "" {
		if cfg.Points, err = strconv.Atoi(s); err != nil {
			return cfg, fmt.Errorf("параметр points: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

func intParam(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

func acquire(pool *nanovna.Pool, r *http.Request) (nanovna.Sweep, error) {
	cfg, err := sweepParams(r)
	if err != nil {
		return nanovna.Sweep{}, err
	}

	vna, err := pool.Get(*portPath)
	if err != nil {
		return nanovna.Sweep{}, err
	}
	if err := vna.SetSweep(cfg); err != nil {
		return nanovna.Sweep{}, err
	}

	start := time.Now()
	sweep, err := vna.Acquire()
	if err != nil {
		return nanovna.Sweep{}, err
	}
	scanDuration.WithLabelValues(*portPath).Observe(time.Since(start).Seconds())
	sweepPoints.WithLabelValues(*portPath).Add(float64(len(sweep.Frequencies)))

	// Конвейер отображения: сначала передискретизация на плотную сетку,
	// затем сглаживание.
	if interpPoints := intParam(r, "interp", 0); interpPoints > 0 {
		if sweep, err = nanovna.Resample(sweep, interpPoints); err != nil {
			return nanovna.Sweep{}, err
		}
	}
	if window := intParam(r, "smooth", 0); window > 1 {
		sweep = nanovna.SmoothSweep(sweep, window)
	}
	return sweep, nil
}

func scanHandler(pool *nanovna.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sweep, err := acquire(pool, r)
		if err != nil {
			http.Error(w, fmt.Sprintf("Ошибка сканирования: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(sweep.ToTouchstone()))
	}
}

func tdrHandler(pool *nanovna.Pool) http.HandlerFunc {
	type tdrResponse struct {
		CableLengthMeters float64   `json:"cable_length_meters"`
		TimeSeconds       []float64 `json:"time_seconds"`
		Magnitude         []float64 `json:"magnitude"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		vf := 0.66
		if s := r.URL.Query().Get("vf"); s != "" {
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil || parsed <= 0 || parsed > 1 {
				http.Error(w, "Параметр vf должен быть в диапазоне (0, 1]", http.StatusBadRequest)
				return
			}
			vf = parsed
		}

		sweep, err := acquire(pool, r)
		if err != nil {
			http.Error(w, fmt.Sprintf("Ошибка сканирования: %v", err), http.StatusInternalServerError)
			return
		}

		res := nanovna.AnalyzeTDR(sweep.Frequencies, sweep.S11, intParam(r, "tdr_points", 1024), vf)
		resp := tdrResponse{
			CableLengthMeters: res.CableLength,
			TimeSeconds:       res.Time,
			Magnitude:         make([]float64, len(res.Response)),
		}
		for i, v := range res.Response {
			resp.Magnitude[i] = nanovna.MagnitudeDB(v)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("ошибка сериализации TDR-ответа: %v", err)
		}
	}
}

func captureHandler(pool *nanovna.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vna, err := pool.Get(*portPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Ошибка устройства: %v", err), http.StatusInternalServerError)
			return
		}
		img, err := vna.Device().Capture()
		if err != nil {
			http.Error(w, fmt.Sprintf("Ошибка снимка экрана: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, img); err != nil {
			log.Printf("ошибка кодирования PNG: %v", err)
		}
	}
}
