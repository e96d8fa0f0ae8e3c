package datastore

// Camera is a named imaging device class, e.g. "sony".
type Camera struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:64;not null;uniqueIndex"`
}

// TableName pins the table name independent of gorm naming strategy.
func (Camera) TableName() string { return "cameras" }

// Flight is one capture session of a study site on a date.
// Path is the flight folder relative to the data root, forward-slash separated.
type Flight struct {
	ID        int64  `gorm:"primaryKey"`
	StudySite string `gorm:"size:255;not null;uniqueIndex:idx_flights_site_date,priority:1"`
	Date      string `gorm:"size:64;not null;uniqueIndex:idx_flights_site_date,priority:2"`
	Path      string `gorm:"size:1024;not null"`
}

func (Flight) TableName() string { return "flights" }

// Image is one captured frame, unique per flight by label.
// Paths are relative to the data root. Nil fields are NULL in the catalog.
type Image struct {
	ID       int64    `gorm:"primaryKey"`
	FlightID int64    `gorm:"not null;uniqueIndex:idx_images_flight_label,priority:1"`
	CameraID int64    `gorm:"not null;index"`
	Label    string   `gorm:"size:255;not null;uniqueIndex:idx_images_flight_label,priority:2"`
	RawPath  *string  `gorm:"size:1024"`
	JpgPath  *string  `gorm:"size:1024"`
	Easting  *float64 `gorm:"column:epsg3812_easting"`
	Northing *float64 `gorm:"column:epsg3812_northing"`
	Altitude *float64
	Yaw      *float64

	Flight Flight `gorm:"foreignKey:FlightID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Camera Camera `gorm:"foreignKey:CameraID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Image) TableName() string { return "images" }

// PathKind selects which image path column a file sighting updates.
type PathKind string

const (
	PathRaw PathKind = "raw"
	PathJPG PathKind = "jpg"
)

// Column returns the images column holding paths of this kind.
func (k PathKind) Column() string {
	if k == PathRaw {
		return "raw_path"
	}
	return "jpg_path"
}

// ImagePath is one file sighting registered by ingestion.
type ImagePath struct {
	FlightID int64
	CameraID int64
	Label    string
	Path     string // relative to the data root
}

// Position is one row of a camera position file.
type Position struct {
	Label    string
	Easting  float64
	Northing float64
	Altitude float64
	Yaw      float64
}

// ImageCoordinate is the per-image row shown on the flight map.
type ImageCoordinate struct {
	Easting  *float64 `json:"easting"`
	Northing *float64 `json:"northing"`
	Yaw      *float64 `json:"yaw"`
	Label    string   `json:"label"`
	ID       int64    `json:"id"`
}

// catalogModels lists the models in dependency order
func catalogModels() []any {
	return []any{&Camera{}, &Flight{}, &Image{}}
}
