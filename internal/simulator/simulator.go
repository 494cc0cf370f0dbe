// Package simulator models a room, its heater and a thermostat controlling
// it, producing the samples a real thermostat server would publish.
package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"codeberg.org/mutker/thermochart/internal/errors"
	"codeberg.org/mutker/thermochart/internal/logger"
	"codeberg.org/mutker/thermochart/internal/sample"
)

const (
	temperatureWindowSize = 5
	sensorResolution      = 0.1

	heatRate = 0.004  // °C per second with the heater on
	lossRate = 0.0002 // fraction of the indoor/outdoor difference lost per second

	MinSetpoint = 5.0
	MaxSetpoint = 30.0

	defaultOutsideInterval = 10 * time.Minute
)

// Publisher receives every sample worth publishing
type Publisher interface {
	Publish(s sample.Sample)
}

type Config struct {
	Desired float64
	// Initial indoor temperature
	Initial float64
	// OutsideInterval is how often the outdoor reading is refreshed
	OutsideInterval time.Duration
	Seed            uint64
}

func DefaultConfig() Config {
	return Config{
		Desired:         20,
		Initial:         18,
		OutsideInterval: defaultOutsideInterval,
		Seed:            uint64(time.Now().UnixNano()),
	}
}

// Thermostat is safe for concurrent use
type Thermostat struct {
	mu     sync.Mutex
	cfg    Config
	rng    *rand.Rand
	logger logger.Logger

	room               float64
	temperatureHistory []float64
	previousReading    float64
	hasReading         bool
	desired            float64
	desiredChanged     bool
	heaterIsOn         bool
	outside            float64
	outsideAt          time.Time
	lastStep           time.Time
}

func New(cfg Config) (*Thermostat, error) {
	if err := validSetpoint(cfg.Desired); err != nil {
		return nil, err
	}
	if cfg.OutsideInterval <= 0 {
		cfg.OutsideInterval = defaultOutsideInterval
	}

	return &Thermostat{
		cfg:            cfg,
		rng:            rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger:         logger.With("simulator"),
		room:           cfg.Initial,
		desired:        cfg.Desired,
		desiredChanged: true,
	}, nil
}

// SetDesired changes the setpoint; the next Step publishes it
func (t *Thermostat) SetDesired(temperature float64) error {
	if err := validSetpoint(temperature); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.desired = temperature
	t.desiredChanged = true
	t.logger.Info().Float64("desired", temperature).Msg("Setpoint changed")

	return nil
}

func (t *Thermostat) Desired() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desired
}

// Step advances the model to now and reports whether the result differs
// from the last published state in reading, heater state or setpoint
func (t *Thermostat) Step(now time.Time) (sample.Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outsideAt.IsZero() || now.Sub(t.outsideAt) >= t.cfg.OutsideInterval {
		t.outside = t.outdoorTemperature(now)
		t.outsideAt = now
	}

	if !t.lastStep.IsZero() {
		dt := now.Sub(t.lastStep).Seconds()
		if t.heaterIsOn {
			t.room += heatRate * dt
		}
		t.room += (t.outside - t.room) * math.Min(lossRate*dt, 1)
	}
	t.lastStep = now

	reading := t.updateTemperatureHistory(t.room + t.rng.NormFloat64()*0.03)

	heaterShouldBeOn := t.desired-reading > 0
	heaterStateChanging := heaterShouldBeOn != t.heaterIsOn
	if heaterStateChanging {
		t.heaterIsOn = heaterShouldBeOn
		t.logger.Debug().
			Bool("heater_is_on", heaterShouldBeOn).
			Float64("degrees_needed", t.desired-reading).
			Msg("Heater state changed")
	}

	changed := !t.hasReading || reading != t.previousReading || heaterStateChanging || t.desiredChanged
	t.previousReading = reading
	t.hasReading = true
	t.desiredChanged = false

	return t.sample(now, reading), changed
}

// Run steps the model every interval and publishes changed samples until
// ctx is cancelled
func (t *Thermostat) Run(ctx context.Context, interval time.Duration, publisher Publisher) error {
	if interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, interval.String())
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	step := func(now time.Time) {
		if s, changed := t.Step(now); changed {
			publisher.Publish(s)
		}
	}

	step(time.Now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			step(now)
		}
	}
}

func (t *Thermostat) sample(now time.Time, reading float64) sample.Sample {
	s := sample.Sample{
		Time:                      now.Unix(),
		CurrentTemp:               reading,
		DesiredTemp:               t.desired,
		OutsideTemp:               math.Round(t.outside*100) / 100,
		OutsideTempCollectionTime: t.outsideAt.Unix(),
		HeaterIsOn:                t.heaterIsOn,
		Humidity:                  math.Round(clamp(55-(reading-18)*3, 20, 80)),
		OutsideHumidity:           math.Round(clamp(85-(t.outside-5)*2, 30, 100)),
		Pressure:                  1013,
		WindSpeed:                 math.Round(4 + 3*math.Sin(float64(now.Unix())/3600)),
		WindDir:                   270,
	}

	switch {
	case t.outside < 0:
		s.MainWeather = []sample.Weather{{Icon: "13d", Description: "light snow"}}
	case t.outside < 8:
		s.MainWeather = []sample.Weather{{Icon: "04d", Description: "overcast clouds"}}
	default:
		s.MainWeather = []sample.Weather{{Icon: "01d", Description: "clear sky"}}
	}

	return s
}

// outdoorTemperature follows a daily cycle peaking mid afternoon
func (t *Thermostat) outdoorTemperature(now time.Time) float64 {
	hour := float64(now.Hour()) + float64(now.Minute())/60
	return 5 + 6*math.Sin(2*math.Pi*(hour-9)/24) + t.rng.NormFloat64()*0.3
}

// updateTemperatureHistory smooths raw sensor values over a short window and
// quantizes the result to the sensor resolution
func (t *Thermostat) updateTemperatureHistory(raw float64) float64 {
	t.temperatureHistory = append(t.temperatureHistory, raw)
	if len(t.temperatureHistory) > temperatureWindowSize {
		t.temperatureHistory = t.temperatureHistory[1:]
	}

	sum := 0.0
	for _, temp := range t.temperatureHistory {
		sum += temp
	}

	avg := sum / float64(len(t.temperatureHistory))
	return math.Round(avg/sensorResolution) * sensorResolution
}

func validSetpoint(temperature float64) error {
	if math.IsNaN(temperature) || temperature < MinSetpoint || temperature > MaxSetpoint {
		return errors.New().WithData(ErrInvalidSetpoint, struct {
			Desired  float64
			Min, Max float64
		}{temperature, MinSetpoint, MaxSetpoint})
	}
	return nil
}

func clamp(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
