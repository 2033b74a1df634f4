package core

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"farmsense-backend-go/internal/models"
)

// WeatherPoint is one day of the weather forecast.
type WeatherPoint struct {
	Date         string  `json:"date"`
	TemperatureC float64 `json:"temperatureC"`
	RainfallMM   float64 `json:"rainfallMm"`
	Humidity     float64 `json:"humidity"`
}

// SoilReading is the latest soil sensor snapshot.
type SoilReading struct {
	Moisture   float64 `json:"moisture"`
	PH         float64 `json:"ph"`
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
}

// PestAlert is a detected pest pressure on one field.
type PestAlert struct {
	Pest     string `json:"pest"`
	Field    string `json:"field"`
	Severity string `json:"severity"`
}

// YieldPoint compares actual and forecast yield for a month.
type YieldPoint struct {
	Month    string  `json:"month"`
	Actual   float64 `json:"actual"`
	Forecast float64 `json:"forecast"`
}

// DashboardMetrics is the sample data rendered on the dashboard.
type DashboardMetrics struct {
	UserID      string         `json:"userId"`
	FarmName    string         `json:"farmName,omitempty"`
	Weather     []WeatherPoint `json:"weather"`
	Soil        SoilReading    `json:"soil"`
	Pests       []PestAlert    `json:"pests"`
	Yield       []YieldPoint   `json:"yield"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

var (
	pestNames  = []string{"aphids", "corn borer", "armyworm", "spider mites", "whitefly"}
	fieldNames = []string{"North field", "South field", "East orchard", "Greenhouse 2"}
	severities = []string{"low", "medium", "high"}
)

type dashboardService struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewDashboardService returns a DashboardService drawing from rng; nil
// seeds a fresh generator.
func NewDashboardService(rng *rand.Rand) DashboardService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &dashboardService{rng: rng, now: func() time.Time { return time.Now().UTC() }}
}

func (s *dashboardService) Metrics(user *models.User) *DashboardMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	m := &DashboardMetrics{
		Weather:     make([]WeatherPoint, 0, 7),
		Pests:       []PestAlert{},
		Yield:       make([]YieldPoint, 0, 6),
		GeneratedAt: now,
	}
	if user != nil {
		m.UserID = user.ID
		if user.Profile != nil {
			m.FarmName = user.Profile.FarmName
		}
	}

	for i := 0; i < 7; i++ {
		m.Weather = append(m.Weather, WeatherPoint{
			Date:         now.AddDate(0, 0, i).Format("2006-01-02"),
			TemperatureC: s.between(12, 32),
			RainfallMM:   s.between(0, 20),
			Humidity:     s.between(35, 90),
		})
	}

	m.Soil = SoilReading{
		Moisture:   s.between(15, 45),
		PH:         s.between(5.5, 7.5),
		Nitrogen:   s.between(20, 60),
		Phosphorus: s.between(10, 40),
		Potassium:  s.between(100, 250),
	}

	for i, n := 0, s.rng.IntN(4); i < n; i++ {
		m.Pests = append(m.Pests, PestAlert{
			Pest:     pestNames[s.rng.IntN(len(pestNames))],
			Field:    fieldNames[s.rng.IntN(len(fieldNames))],
			Severity: severities[s.rng.IntN(len(severities))],
		})
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)
	for i := 0; i < 6; i++ {
		forecast := s.between(3, 6)
		m.Yield = append(m.Yield, YieldPoint{
			Month:    start.AddDate(0, i, 0).Format("Jan"),
			Forecast: forecast,
			Actual:   round(forecast * s.between(0.8, 1.15)),
		})
	}
	return m
}

func (s *dashboardService) between(lo, hi float64) float64 {
	return round(lo + s.rng.Float64()*(hi-lo))
}

func round(v float64) float64 {
	return math.Round(v*10) / 10
}
