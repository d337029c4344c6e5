package providers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/i474232898/rainfield/internal/rainfield"
)

// NamedSampler is a rainfield.Sampler that can identify itself in logs.
type NamedSampler interface {
	rainfield.Sampler
	Name() string
}

// Settings selects and configures a provider.
type Settings struct {
	Provider          string
	ForecastURL       string
	WeatherAPIKey     string
	OpenWeatherAPIKey string
	MaxRetries        int
}

// New builds the provider named by settings.Provider.
func New(client *http.Client, settings Settings) (NamedSampler, error) {
	httpCfg := NewHTTPClientConfig(client, settings.MaxRetries)

	switch strings.ToLower(strings.TrimSpace(settings.Provider)) {
	case "", "openmeteo":
		return NewOpenMeteoProvider(httpCfg, settings.ForecastURL), nil
	case "weatherapi":
		if settings.WeatherAPIKey == "" {
			return nil, fmt.Errorf("weatherapi: %w", errNoAPIKey)
		}
		return NewWeatherAPIProvider(httpCfg, settings.WeatherAPIKey), nil
	case "openweather", "openweathermap":
		if settings.OpenWeatherAPIKey == "" {
			return nil, fmt.Errorf("openweather: %w", errNoAPIKey)
		}
		return NewOpenWeatherProvider(httpCfg, settings.OpenWeatherAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown rain provider %q", settings.Provider)
	}
}
