package weather

import (
	"fmt"
	"math"
	"time"
)

// MaxForecastDays caps the number of daily entries kept from a forecast feed.
const MaxForecastDays = 7

const dayKeyLayout = "2006-01-02"

// DailyFromSamples buckets a 3-hour forecast feed into calendar days of loc
// (time.Local when nil). Days keep the order in which the feed first mentions
// them and at most MaxForecastDays are returned.
func DailyFromSamples(samples []ForecastSample, loc *time.Location) []DailyForecastEntry {
	if loc == nil {
		loc = time.Local
	}

	type dayKey string

	index := make(map[dayKey]int)
	days := make([]DailyForecastEntry, 0, MaxForecastDays)

	for _, s := range samples {
		k := dayKey(time.Unix(s.Dt, 0).In(loc).Format(dayKeyLayout))

		if i, ok := index[k]; ok {
			d := &days[i]
			d.Temp.Max = math.Max(d.Temp.Max, s.Main.TempMax)
			d.Temp.Min = math.Min(d.Temp.Min, s.Main.TempMin)
			continue
		}

		index[k] = len(days)
		days = append(days, seedDailyEntry(string(k), s))
	}

	if len(days) > MaxForecastDays {
		days = days[:MaxForecastDays]
	}
	return days
}

// seedDailyEntry builds a day from its first sample.
func seedDailyEntry(date string, s ForecastSample) DailyForecastEntry {
	rain := 0.0
	if s.Rain != nil {
		rain = s.Rain.ThreeHours
	}

	return DailyForecastEntry{
		Dt:   s.Dt,
		Date: date,
		Temp: DailyTemperature{
			Day:   s.Main.Temp,
			Min:   s.Main.TempMin,
			Max:   s.Main.TempMax,
			Night: s.Main.Temp,
			Eve:   s.Main.Temp,
			Morn:  s.Main.Temp,
		},
		FeelsLike: DailyFeelsLike{
			Day:   s.Main.FeelsLike,
			Night: s.Main.FeelsLike,
			Eve:   s.Main.FeelsLike,
			Morn:  s.Main.FeelsLike,
		},
		Pressure:  s.Main.Pressure,
		Humidity:  s.Main.Humidity,
		WindSpeed: s.Wind.Speed,
		WindDeg:   s.Wind.Deg,
		Weather:   s.Weather,
		Clouds:    s.Clouds.All,
		Pop:       s.Pop,
		Rain:      rain,
	}
}

// timezoneLabel renders a UTC offset in seconds as e.g. "UTC+08:00".
func timezoneLabel(offset int) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, offset/3600, (offset%3600)/60)
}
