package main

// Obstacle kinds. Collision treats all kinds as solid rectangles; the kind
// only affects client-side rendering.
const (
	KindWall    = "wall"
	KindBarrier = "barrier"
	KindCover   = "cover"
)

// Obstacle is a static solid rectangle, immutable once a map is loaded.
type Obstacle struct {
	ID       string   `json:"id" msgpack:"id"`
	Position Position `json:"position" msgpack:"position"`
	Width    float64  `json:"width" msgpack:"width"`
	Height   float64  `json:"height" msgpack:"height"`
	Kind     string   `json:"type" msgpack:"type"`
}

// arenaWalls is the 20-unit border shared by every map.
var arenaWalls = []Obstacle{
	{ID: "wall-top", Position: Position{X: 0, Y: 0}, Width: 800, Height: 20, Kind: KindWall},
	{ID: "wall-right", Position: Position{X: 780, Y: 0}, Width: 20, Height: 600, Kind: KindWall},
	{ID: "wall-bottom", Position: Position{X: 0, Y: 580}, Width: 800, Height: 20, Kind: KindWall},
	{ID: "wall-left", Position: Position{X: 0, Y: 0}, Width: 20, Height: 600, Kind: KindWall},
}

var mapCatalog = map[string][]Obstacle{
	"default": append(arenaWalls[:len(arenaWalls):len(arenaWalls)],
		Obstacle{ID: "barrier-1", Position: Position{X: 200, Y: 150}, Width: 50, Height: 200, Kind: KindBarrier},
		Obstacle{ID: "barrier-2", Position: Position{X: 550, Y: 250}, Width: 50, Height: 200, Kind: KindBarrier},
		Obstacle{ID: "cover-1", Position: Position{X: 350, Y: 100}, Width: 100, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-2", Position: Position{X: 350, Y: 450}, Width: 100, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-3", Position: Position{X: 150, Y: 300}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-4", Position: Position{X: 600, Y: 300}, Width: 50, Height: 50, Kind: KindCover},
	),
	"map2": append(arenaWalls[:len(arenaWalls):len(arenaWalls)],
		Obstacle{ID: "center-1", Position: Position{X: 350, Y: 250}, Width: 100, Height: 100, Kind: KindBarrier},
		Obstacle{ID: "cover-1", Position: Position{X: 100, Y: 100}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-2", Position: Position{X: 650, Y: 100}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-3", Position: Position{X: 100, Y: 450}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-4", Position: Position{X: 650, Y: 450}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "barrier-1", Position: Position{X: 200, Y: 200}, Width: 50, Height: 200, Kind: KindBarrier},
		Obstacle{ID: "barrier-2", Position: Position{X: 550, Y: 200}, Width: 50, Height: 200, Kind: KindBarrier},
	),
	"map3": append(arenaWalls[:len(arenaWalls):len(arenaWalls)],
		Obstacle{ID: "cover-1", Position: Position{X: 200, Y: 200}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-2", Position: Position{X: 550, Y: 200}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-3", Position: Position{X: 200, Y: 350}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-4", Position: Position{X: 550, Y: 350}, Width: 50, Height: 50, Kind: KindCover},
		Obstacle{ID: "cover-5", Position: Position{X: 375, Y: 275}, Width: 50, Height: 50, Kind: KindCover},
	),
}

// ObstaclesFor returns the obstacle layout for a map id. "map1" is an alias
// kept for old lobby records; unknown ids fall back to the default layout.
func ObstaclesFor(mapID string) []Obstacle {
	if mapID == "map1" {
		mapID = "default"
	}
	if layout, ok := mapCatalog[mapID]; ok {
		return layout
	}
	return mapCatalog["default"]
}
