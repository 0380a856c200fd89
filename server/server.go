package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/kevinburke/handlers"
	"github.com/kevinburke/quartiere"
	"github.com/kevinburke/quartiere/server/assets"
	"github.com/kevinburke/quartiere/tiles"
	"github.com/kevinburke/rest"
	"github.com/paulmach/orb/geojson"
)

var Logger log.Logger
var digests map[string][sha256.Size]byte

func b64(digest []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(digest), "=")
}

// hashurl returns a hash of the resource with the given key
func hashurl(key string) template.URL {
	d, ok := digests[strings.TrimPrefix(key, "/")]
	if !ok {
		return ""
	}
	// we don't actually need the whole hash.
	return template.URL("s=" + b64(d[:12]))
}

func init() {
	var err error
	digests, err = assets.Digests()
	if err != nil {
		panic(err)
	}
	homepageHTML := assets.MustAssetString("templates/index.html")
	homepageTpl = template.Must(
		template.New("homepage").Option("missingkey=error").Funcs(template.FuncMap{
			"hashurl": hashurl,
		}).Parse(homepageHTML),
	)
	Logger = handlers.Logger
}

// A HTTP server for static files. All assets are embedded in the assets
// package.
type static struct {
	modTime time.Time
}

var expires = time.Date(2050, time.January, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC1123)

func (s *static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		r.URL.Path = "/static/favicon.svg"
	}
	bits, err := assets.Asset(strings.TrimPrefix(r.URL.Path, "/"))
	if err != nil {
		rest.NotFound(w, r)
		return
	}
	// with the hashurl implementation below, we can set a super-long content
	// expiry and ensure content is never stale.
	if query := r.URL.Query(); query.Get("s") != "" {
		w.Header().Set("Expires", expires)
	}
	http.ServeContent(w, r, r.URL.Path, s.modTime, bytes.NewReader(bits))
}

// Render a template, or a server error.
func render(w http.ResponseWriter, r *http.Request, tpl *template.Template, name string, data interface{}) {
	buf := new(bytes.Buffer)
	if err := tpl.ExecuteTemplate(buf, name, data); err != nil {
		rest.ServerError(w, r, err)
		return
	}
	w.Write(buf.Bytes())
}

var homepageTpl *template.Template

const Title = "Quartieranalyse"

// BasemapStyle is the MapLibre style drawn below the neighbourhoods.
const BasemapStyle = "https://basemaps.cartocdn.com/gl/positron-gl-style/style.json"

type legendItem struct {
	Label string
	Color template.CSS
}

type homepageData struct {
	Title  string
	Legend []legendItem
	Config template.JS
}

// appConfig is handed to the zh-app element as JSON.
type appConfig struct {
	Layer        string                             `json:"layer"`
	TileURL      string                             `json:"tileURL"`
	DataURL      string                             `json:"dataURL"`
	MaxZoom      int                                `json:"maxZoom"`
	Style        string                             `json:"style"`
	Center       [2]float64                         `json:"center"`
	Zoom         float64                            `json:"zoom"`
	ZoneKey      string                             `json:"zoneKey"`
	Colors       map[quartiere.Zone]quartiere.Color `json:"colors"`
	DefaultColor quartiere.Color                    `json:"defaultColor"`
	InfoKeys     [][2]string                        `json:"infoKeys"`
}

// infoKeys are the attributes shown in the hover panel, with their labels.
var infoKeys = [][2]string{
	{quartiere.PropRegion, "Region"},
	{quartiere.PropMunicipality, "Gemeinde"},
	{quartiere.PropPopulation, "Einwohner"},
	{quartiere.PropArea, "Fläche"},
}

type zoneJSON struct {
	Zone  quartiere.Zone  `json:"zone"`
	Label string          `json:"label"`
	Color quartiere.Color `json:"color"`
}

type neighbourhoodJSON struct {
	Region       string             `json:"region"`
	Municipality string             `json:"municipality"`
	Population   float64            `json:"population"`
	Area         float64            `json:"area"`
	Zone         quartiere.Zone     `json:"zone"`
	ZoneLabel    string             `json:"zone_label"`
	Properties   geojson.Properties `json:"properties"`
}

// Data is everything the server needs to answer requests.
type Data struct {
	Collection *geojson.FeatureCollection
	Index      *tiles.Index
	Lookup     *quartiere.Lookup

	raw     []byte
	modTime time.Time
}

// NewData indexes fc for serving.
func NewData(fc *geojson.FeatureCollection, opts tiles.Options) (*Data, error) {
	raw, err := json.Marshal(fc)
	if err != nil {
		return nil, err
	}
	lookup, err := quartiere.NewLookup(fc)
	if err != nil {
		return nil, err
	}
	return &Data{
		Collection: fc,
		Index:      tiles.NewIndex(fc, opts),
		Lookup:     lookup,
		raw:        raw,
		modTime:    time.Now().UTC(),
	}, nil
}

// LoadData reads the merged data file at path and indexes it.
func LoadData(path string, opts tiles.Options) (*Data, error) {
	fc, err := quartiere.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewData(fc, opts)
}

var tileRoute = regexp.MustCompile(`^/tiles/(\d+)/(\d+)/(\d+)\.pbf$`)

func parseTile(path string) (z, x, y uint32, ok bool) {
	m := tileRoute.FindStringSubmatch(path)
	if m == nil {
		return 0, 0, 0, false
	}
	var vals [3]uint32
	for i := range vals {
		v, err := strconv.ParseUint(m[i+1], 10, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = uint32(v)
	}
	return vals[0], vals[1], vals[2], true
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		rest.ServerError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(data)
}

func parseCoordinate(r *http.Request, name string, limit float64) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, errors.New("missing " + name + " parameter")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, errors.New("invalid " + name + " parameter: " + s)
	}
	if f < -limit || f > limit {
		return 0, errors.New(name + " out of range: " + s)
	}
	return f, nil
}

// NewServeMux returns a HTTP handler that covers all routes known to the
// server.
func NewServeMux(data *Data) http.Handler {
	staticServer := &static{
		modTime: time.Now().UTC(),
	}
	opts := data.Index.Options()

	legend := make([]legendItem, len(quartiere.Zones))
	zones := make([]zoneJSON, len(quartiere.Zones))
	colors := make(map[quartiere.Zone]quartiere.Color, len(quartiere.Zones))
	for i, z := range quartiere.Zones {
		legend[i] = legendItem{Label: z.Label(), Color: template.CSS(z.Color().CSS())}
		zones[i] = zoneJSON{Zone: z, Label: z.Label(), Color: z.Color()}
		colors[z] = z.Color()
	}
	cfg, err := json.Marshal(&appConfig{
		Layer:        opts.Layer,
		TileURL:      "/tiles/{z}/{x}/{y}.pbf",
		DataURL:      "./data.json",
		MaxZoom:      opts.MaxZoom,
		Style:        BasemapStyle,
		Center:       [2]float64{8.75, 47.4},
		Zoom:         10,
		ZoneKey:      quartiere.PropZone,
		Colors:       colors,
		DefaultColor: quartiere.DefaultColor,
		InfoKeys:     infoKeys,
	})
	if err != nil {
		panic(err)
	}
	homepage := &homepageData{
		Title:  Title,
		Legend: legend,
		Config: template.JS(cfg),
	}

	r := new(handlers.Regexp)
	r.Handle(regexp.MustCompile(`(^/static|^/favicon.ico$)`), []string{"GET"}, handlers.GZip(staticServer))
	r.HandleFunc(regexp.MustCompile(`^/$`), []string{"GET"}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		render(w, r, homepageTpl, "homepage", homepage)
	})
	r.Handle(tileRoute, []string{"GET"}, handlers.GZip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		z, x, y, ok := parseTile(r.URL.Path)
		if !ok {
			rest.NotFound(w, r)
			return
		}
		tile, err := data.Index.Tile(z, x, y)
		if err == tiles.ErrInvalidTile {
			rest.NotFound(w, r)
			return
		}
		if err != nil {
			rest.ServerError(w, r, err)
			return
		}
		if tile == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(tile)
	})))
	r.Handle(regexp.MustCompile(`^/data\.json$`), []string{"GET"}, handlers.GZip(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		http.ServeContent(w, r, "data.json", data.modTime, bytes.NewReader(data.raw))
	})))
	r.HandleFunc(regexp.MustCompile(`^/api/zones$`), []string{"GET"}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, zones)
	})
	r.HandleFunc(regexp.MustCompile(`^/api/neighbourhood$`), []string{"GET"}, func(w http.ResponseWriter, r *http.Request) {
		lat, err := parseCoordinate(r, "lat", 90)
		if err != nil {
			rest.BadRequest(w, r, &rest.Error{Title: err.Error(), ID: "invalid_parameter"})
			return
		}
		lon, err := parseCoordinate(r, "lon", 180)
		if err != nil {
			rest.BadRequest(w, r, &rest.Error{Title: err.Error(), ID: "invalid_parameter"})
			return
		}
		n := data.Lookup.Find(lat, lon)
		if n == nil {
			rest.NotFound(w, r)
			return
		}
		writeJSON(w, r, &neighbourhoodJSON{
			Region:       n.Region,
			Municipality: n.Municipality,
			Population:   n.Population,
			Area:         n.Area,
			Zone:         n.Zone,
			ZoneLabel:    n.Zone.Label(),
			Properties:   n.Properties,
		})
	})
	// Routes not matched will get a 404 error page.
	return r
}
