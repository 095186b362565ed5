package weather

import (
	"fmt"
	"strings"
)

// DefaultClickURL is opened when the user taps the weather display and has
// not chosen another target.
const DefaultClickURL = "https://www.google.com/search?q=weather"

const noValue = "--"

// rainCodes are the Yahoo Weather condition codes for rain, drizzle, showers
// and thunderstorms, including the mixed rain/snow, sleet and hail codes.
var rainCodes = map[int]struct{}{
	1: {}, 2: {}, 3: {}, 4: {}, 5: {}, 6: {}, 8: {}, 9: {}, 10: {}, 11: {}, 12: {},
	35: {}, 37: {}, 38: {}, 39: {}, 40: {}, 45: {}, 47: {},
}

// IsRain reports whether code is a precipitation condition.
func IsRain(code *int) bool {
	if code == nil {
		return false
	}
	_, ok := rainCodes[*code]
	return ok
}

// Summary is what a display shows for one refresh.
type Summary struct {
	Status        string `json:"status"`
	ExpandedTitle string `json:"expanded_title"`
	ExpandedBody  string `json:"expanded_body"`
	Raining       bool   `json:"raining"`
	ClickURL      string `json:"click_url"`
}

// Summarize renders rec. A nil record renders the no-data placeholder.
func Summarize(rec *WeatherRecord, units Units, clickURL string) Summary {
	if clickURL == "" {
		clickURL = DefaultClickURL
	}
	if rec == nil {
		return Summary{
			Status:       noValue,
			ExpandedBody: "No weather data found.",
			ClickURL:     clickURL,
		}
	}

	temperature := noValue
	if rec.Temperature != nil {
		temperature = fmt.Sprintf("%d°", *rec.Temperature)
	}

	condition := ""
	if rec.ConditionText != nil {
		condition = *rec.ConditionText
	}

	raining := IsRain(rec.ConditionCode)
	var body strings.Builder
	if IsRain(rec.ForecastCode) {
		raining = true
		forecast := ""
		if rec.ForecastText != nil {
			forecast = *rec.ForecastText
		}
		body.WriteString("Later: " + forecast)
	}
	if body.Len() > 0 {
		body.WriteString("\n")
	}
	body.WriteString(rec.Location)

	return Summary{
		Status:        temperature,
		ExpandedTitle: fmt.Sprintf("%s%s - %s", temperature, strings.ToUpper(string(units.OrDefault())), condition),
		ExpandedBody:  body.String(),
		Raining:       raining,
		ClickURL:      clickURL,
	}
}
