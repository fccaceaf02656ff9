package export

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/sicko7947/walkflow"
)

// RouteName is the track name written into every export
const RouteName = "WalkCity Route"

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name    string     `xml:"name"`
	Desc    string     `xml:"desc,omitempty"`
	Segment gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type kmlDoc struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name      string       `xml:"name"`
	Placemark kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string        `xml:"name"`
	Description string        `xml:"description,omitempty"`
	LineString  kmlLineString `xml:"LineString"`
}

type kmlLineString struct {
	Coordinates string `xml:"coordinates"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   lineString        `json:"geometry"`
	Properties map[string]string `json:"properties"`
}

type lineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Encode renders points in the requested format
func Encode(req walkflow.ExportRequest) ([]byte, error) {
	switch req.Format {
	case walkflow.ExportFormatGPX:
		return encodeGPX(req)
	case walkflow.ExportFormatKML:
		return encodeKML(req)
	case walkflow.ExportFormatGeoJSON:
		return encodeGeoJSON(req)
	default:
		return nil, fmt.Errorf("unsupported export format %q", req.Format)
	}
}

func encodeGPX(req walkflow.ExportRequest) ([]byte, error) {
	doc := gpxDoc{
		Version: "1.1",
		Creator: "WalkCity",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Track: gpxTrack{
			Name: RouteName,
			Desc: req.Description,
		},
	}
	for _, p := range req.Points {
		doc.Track.Segment.Points = append(doc.Track.Segment.Points, gpxPoint{Lat: p.Lat, Lon: p.Lon})
	}
	return marshalXML(doc)
}

func encodeKML(req walkflow.ExportRequest) ([]byte, error) {
	coords := make([]string, 0, len(req.Points))
	for _, p := range req.Points {
		// KML orders coordinates lon,lat,alt
		coords = append(coords, formatFloat(p.Lon)+","+formatFloat(p.Lat)+",0")
	}

	doc := kmlDoc{
		Xmlns: "http://www.opengis.net/kml/2.2",
		Document: kmlDocument{
			Name: RouteName,
			Placemark: kmlPlacemark{
				Name:        RouteName,
				Description: req.Description,
				LineString:  kmlLineString{Coordinates: strings.Join(coords, " ")},
			},
		},
	}
	return marshalXML(doc)
}

func encodeGeoJSON(req walkflow.ExportRequest) ([]byte, error) {
	coords := make([][2]float64, 0, len(req.Points))
	for _, p := range req.Points {
		coords = append(coords, [2]float64{p.Lon, p.Lat})
	}

	fc := featureCollection{
		Type: "FeatureCollection",
		Features: []feature{{
			Type:     "Feature",
			Geometry: lineString{Type: "LineString", Coordinates: coords},
			Properties: map[string]string{
				"name":        RouteName,
				"description": req.Description,
			},
		}},
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	return data, nil
}

func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode xml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
