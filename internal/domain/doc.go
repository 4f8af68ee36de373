// Package domain models escape-risk scoring for aquaculture net-pen sites.
//
// # Data Source
//
// Telemetry is stored per site in the variables_ambientales table as one row
// per (site, variable, timestamp). Rows originate from Copernicus marine
// products and OpenWeather imports. When that store cannot answer, the
// service substitutes readings generated by [Synthesizer] and marks every
// response that used them as synthetic.
//
// # Variables
//
//	wave_height    significant wave height, metres
//	current_speed  surface current speed, m/s
//	uo, vo         eastward / northward current components, m/s
//	temperature    sea surface temperature, °C
//	salinity       practical salinity, ppt
//	depth          effective depth under the pen, metres
//
// Current speed is derived from uo/vo with [CurrentMagnitude] when only the
// components are stored. Aliases from older imports ("temperatura",
// "altura_olas", "corrientes") are accepted by [ParseVariable].
//
// # Factor Curves
//
// Each raw quantity is mapped to a 0–10 contribution by a continuous,
// non-decreasing piecewise-linear curve:
//
//	Wave height:   <1.5 m → 0–3 | <3.0 m → 3–6 | ≥3.0 m → 6 + 2/m, saturates at 5.0 m
//	Current speed: <0.3 m/s → 0–3 | <0.8 m/s → 3–7 | ≥0.8 m/s → 7 + 5/(m/s), saturates at 1.4 m/s
//
// # Risk Index
//
// The index is the weighted mean of three contributions: current-day wave
// (0.3), previous-day wave (0.7) and current speed (0.2), divided by the
// weight sum. The index is clamped to [0,10] before classification:
//
//	low: index < 3.5 | medium: 3.5 ≤ index < 7 | high: index ≥ 7
//
// Escape probability is index/10 and the percentage is round(index×10),
// capped at 100.
//
// # Forecasts
//
// [Projector] applies a storm pulse to a seed reading: flat for days 0–2,
// rising 0.4 per day to 2.2 on day 5, then decaying 0.3 per day back to 1.0.
// Each day's previous-day wave is the prior day's projected wave, so the
// index lags the swell by one day.
package domain
