package sample

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"codeberg.org/mutker/thermochart/internal/errors"
)

// MaxAbsTemp bounds every temperature field in degrees. Readings beyond it
// are rejected as malformed.
const MaxAbsTemp = 1000

// Sample is one thermostat state reading. The outdoor temperature carries its
// own collection time because it is sourced on a different cadence.
type Sample struct {
	Time                      int64   `json:"time"`
	CurrentTemp               float64 `json:"current_temp"`
	DesiredTemp               float64 `json:"desired_temp"`
	OutsideTemp               float64 `json:"outside_temp"`
	OutsideTempCollectionTime int64   `json:"outside_temp_collection_time"`
	HeaterIsOn                bool    `json:"heater_is_on"`

	// Display-only fields, never charted.
	WindDir         float64   `json:"wind_dir,omitempty"`
	WindSpeed       float64   `json:"wind_speed,omitempty"`
	Gust            float64   `json:"gust,omitempty"`
	Pressure        float64   `json:"pressure,omitempty"`
	Humidity        float64   `json:"humidity,omitempty"`
	OutsideHumidity float64   `json:"outside_humidity,omitempty"`
	MainWeather     []Weather `json:"main_weather,omitempty"`
}

// Weather is a short weather condition as reported by the outdoor source
type Weather struct {
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// wire mirrors Sample with pointers so missing fields can be told apart from zero values
type wire struct {
	Time                      *int64   `json:"time"`
	CurrentTemp               *float64 `json:"current_temp"`
	DesiredTemp               *float64 `json:"desired_temp"`
	OutsideTemp               *float64 `json:"outside_temp"`
	OutsideTempCollectionTime *int64   `json:"outside_temp_collection_time"`
	HeaterIsOn                bool     `json:"heater_is_on"`

	WindDir         float64   `json:"wind_dir"`
	WindSpeed       float64   `json:"wind_speed"`
	Gust            float64   `json:"gust"`
	Pressure        float64   `json:"pressure"`
	Humidity        float64   `json:"humidity"`
	OutsideHumidity float64   `json:"outside_humidity"`
	MainWeather     []Weather `json:"main_weather"`
}

func (w *wire) sample() (Sample, error) {
	var missing []string
	if w.Time == nil {
		missing = append(missing, "time")
	}
	if w.CurrentTemp == nil {
		missing = append(missing, "current_temp")
	}
	if w.DesiredTemp == nil {
		missing = append(missing, "desired_temp")
	}
	if w.OutsideTemp == nil {
		missing = append(missing, "outside_temp")
	}
	if w.OutsideTempCollectionTime == nil {
		missing = append(missing, "outside_temp_collection_time")
	}
	if len(missing) > 0 {
		return Sample{}, errors.New().WithData(ErrMalformed, "missing "+strings.Join(missing, ", "))
	}

	for _, f := range []struct {
		name string
		temp float64
	}{
		{"current_temp", *w.CurrentTemp},
		{"desired_temp", *w.DesiredTemp},
		{"outside_temp", *w.OutsideTemp},
	} {
		if math.Abs(f.temp) > MaxAbsTemp {
			return Sample{}, errors.New().WithData(ErrMalformed, fmt.Sprintf("%s out of range: %g", f.name, f.temp))
		}
	}

	return Sample{
		Time:                      *w.Time,
		CurrentTemp:               *w.CurrentTemp,
		DesiredTemp:               *w.DesiredTemp,
		OutsideTemp:               *w.OutsideTemp,
		OutsideTempCollectionTime: *w.OutsideTempCollectionTime,
		HeaterIsOn:                w.HeaterIsOn,
		WindDir:                   w.WindDir,
		WindSpeed:                 w.WindSpeed,
		Gust:                      w.Gust,
		Pressure:                  w.Pressure,
		Humidity:                  w.Humidity,
		OutsideHumidity:           w.OutsideHumidity,
		MainWeather:               w.MainWeather,
	}, nil
}

// Decode parses one JSON object into a Sample. Errors carry ErrMalformed.
func Decode(data []byte) (Sample, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Sample{}, errors.New().Wrap(ErrMalformed, err)
	}
	return w.sample()
}

// DecodeAll parses a JSON array of samples. Entries that fail to decode are
// skipped and counted; a body that is not an array fails as a whole.
func DecodeAll(data []byte) ([]Sample, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, errors.New().Wrap(ErrDecode, err)
	}

	samples := make([]Sample, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		s, err := Decode(r)
		if err != nil {
			dropped++
			continue
		}
		samples = append(samples, s)
	}

	return samples, dropped, nil
}

// Summary is a one-line rendition of the display-only fields
func (s Sample) Summary() string {
	var conditions []string
	for _, w := range s.MainWeather {
		conditions = append(conditions, w.Description)
	}

	gust := ""
	if s.Gust != 0 {
		gust = fmt.Sprintf(" (g. %.0f)", s.Gust)
	}

	return fmt.Sprintf("inside %.1f° want %.1f° humidity %.0f%% | outside %.2f° humidity %.0f%% wind %.0f@%.0f%s pressure %.0f %s",
		s.CurrentTemp, s.DesiredTemp, s.Humidity,
		s.OutsideTemp, s.OutsideHumidity, s.WindSpeed, s.WindDir, gust, s.Pressure,
		strings.Join(conditions, ", "))
}
