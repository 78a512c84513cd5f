package domain

import (
	"time"
)

// Run is one stored simulation run.
type Run struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Days        int       `json:"days"`
	Towns       int       `json:"towns"`
	CreatedAt   time.Time `json:"created_at"`
}

// Town is a settlement tracked by a run.
type Town struct {
	ID       int      `json:"id"`
	RunID    string   `json:"run_id"`
	Name     string   `json:"name"`
	Size     int      `json:"size"` // inhabitants
	Location GeoPoint `json:"location"`
}

// DayCount is the number of infected inhabitants of a town on one day.
type DayCount struct {
	RunID    string `json:"run_id"`
	Day      int    `json:"day"`
	TownID   int    `json:"town_id"`
	Infected int    `json:"infected"`
}

// TownPeak is the highest infected count a town reached during a run.
type TownPeak struct {
	TownID   int `json:"town_id"`
	Day      int `json:"day"`
	Infected int `json:"infected"`
}

// TownColour is one town's entry in a heat frame.
type TownColour struct {
	TownID   int      `json:"town_id"`
	Name     string   `json:"name"`
	Infected int      `json:"infected"`
	Size     int      `json:"size"`
	Fraction float64  `json:"fraction"`
	Colour   Colour   `json:"colour"`
	Hex      string   `json:"hex"`
	Location GeoPoint `json:"location"`
	// X and Y are the projected pixel position, nil unless the frame was
	// computed for a map. A town on the viewport's top or left edge sits at 0.
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Visible bool     `json:"visible"`
}

// HeatFrame colours every town of a run for one day.
type HeatFrame struct {
	RunID    string       `json:"run_id"`
	Day      int          `json:"day"`
	Gradient string       `json:"gradient"`
	Scale    float64      `json:"scale"`
	Map      string       `json:"map,omitempty"`
	Crop     *CropResult  `json:"crop,omitempty"`
	Towns    []TownColour `json:"towns"`
	Total    int          `json:"total_infected"`
}
