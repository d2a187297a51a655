// Package proj projects WGS84 lon/lat coordinates into the planar CRSs the
// analysis runs in. Only the two projections the pipeline needs are
// implemented: California Albers (EPSG:3310) and Web Mercator (EPSG:3857).
package proj

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// CRS identifies a coordinate reference system by EPSG code.
type CRS string

const (
	// WGS84 is geographic lon/lat, the CRS of the raw input datasets.
	WGS84 CRS = "EPSG:4326"
	// CAAlbers is the California (Teale) Albers equal-area projection,
	// NAD83 / GRS80, in meters.
	CAAlbers CRS = "EPSG:3310"
	// WebMercator is spherical pseudo-Mercator, in meters.
	WebMercator CRS = "EPSG:3857"
)

// GRS80 ellipsoid.
const (
	semiMajor  = 6378137.0
	flattening = 1.0 / 298.257222101
)

// EPSG:3310 parameters.
const (
	albersLat1   = 34.0   // first standard parallel
	albersLat2   = 40.5   // second standard parallel
	albersLat0   = 0.0    // latitude of origin
	albersLon0   = -120.0 // central meridian
	albersFalseY = -4000000.0
	albersFalseX = 0.0
)

// Forward projects a WGS84 lon/lat coordinate into the target CRS.
// Projecting to WGS84 is the identity.
func Forward(to CRS, lon, lat float64) (x, y float64, err error) {
	switch to {
	case WGS84:
		return lon, lat, nil
	case WebMercator:
		return webMercator(lon, lat)
	case CAAlbers:
		return caAlbers(lon, lat)
	default:
		return 0, 0, eris.Errorf("proj: unsupported CRS %q", to)
	}
}

// ForwardGeom projects every coordinate of a WGS84 geometry into the target
// CRS, mutating the geometry's flat coordinates in place.
func ForwardGeom(g geom.T, to CRS) error {
	if to == WGS84 {
		return nil
	}
	flat := g.FlatCoords()
	stride := g.Layout().Stride()
	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := Forward(to, flat[i], flat[i+1])
		if err != nil {
			return err
		}
		flat[i], flat[i+1] = x, y
	}
	return nil
}

func webMercator(lon, lat float64) (x, y float64, err error) {
	if lat <= -90 || lat >= 90 {
		return 0, 0, eris.Errorf("proj: latitude %v out of range for EPSG:3857", lat)
	}
	x = semiMajor * rad(lon)
	y = semiMajor * math.Log(math.Tan(math.Pi/4+rad(lat)/2))
	return x, y, nil
}

// caAlbers implements the ellipsoidal Albers equal-area conic (Snyder 1987,
// eqs. 14-12..14-15) with the EPSG:3310 defining parameters.
func caAlbers(lon, lat float64) (x, y float64, err error) {
	if lat < -90 || lat > 90 {
		return 0, 0, eris.Errorf("proj: latitude %v out of range for EPSG:3310", lat)
	}
	e2 := flattening * (2 - flattening)
	e := math.Sqrt(e2)

	phi1 := rad(albersLat1)
	phi2 := rad(albersLat2)
	phi0 := rad(albersLat0)
	lam0 := rad(albersLon0)

	m1 := albersM(phi1, e2)
	m2 := albersM(phi2, e2)
	q0 := albersQ(phi0, e, e2)
	q1 := albersQ(phi1, e, e2)
	q2 := albersQ(phi2, e, e2)

	n := (m1*m1 - m2*m2) / (q2 - q1)
	c := m1*m1 + n*q1
	rho0 := semiMajor * math.Sqrt(c-n*q0) / n

	q := albersQ(rad(lat), e, e2)
	rho := semiMajor * math.Sqrt(c-n*q) / n
	theta := n * (rad(lon) - lam0)

	x = albersFalseX + rho*math.Sin(theta)
	y = albersFalseY + rho0 - rho*math.Cos(theta)
	return x, y, nil
}

func albersM(phi, e2 float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e2*s*s)
}

func albersQ(phi, e, e2 float64) float64 {
	s := math.Sin(phi)
	return (1 - e2) * (s/(1-e2*s*s) - (1/(2*e))*math.Log((1-e*s)/(1+e*s)))
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
