// quartiere-server loads configuration from a file and starts a HTTP server
// that renders the neighbourhood map and serves vector tiles cut from the
// merged data file.
//
// See config.yml for an explanation of the configuration options for the
// server.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/kevinburke/handlers"
	"github.com/kevinburke/quartiere"
	"github.com/kevinburke/quartiere/server"
	"github.com/kevinburke/quartiere/tiles"
	yaml "gopkg.in/yaml.v2"
)

// DefaultPort is the listening port if no other port is specified.
var DefaultPort = 7065

var logger log.Logger = handlers.Logger

// FileConfig represents the data in a config file.
type FileConfig struct {
	// Port to listen on. Set to 0 to choose a port at random. If unspecified,
	// the PORT environment variable is used, then 7065.
	Port *int `yaml:"port"`

	// Set to true to listen for HTTP traffic (instead of TLS traffic).
	HTTPOnly bool `yaml:"http_only"`

	// For TLS configuration.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// Merged GeoJSON written by quartiere-merge. Defaults to
	// public/data.json.
	DataFile string `yaml:"data_file"`

	// Tile options; zero values use the defaults from the tiles package
	// (max zoom 23, buffer 64, extent 4096, tolerance 10).
	MaxZoom       int     `yaml:"max_zoom"`
	Buffer        int     `yaml:"buffer"`
	Extent        uint32  `yaml:"extent"`
	Tolerance     float64 `yaml:"tolerance"`
	TileCacheSize int     `yaml:"tile_cache_size"`
}

func (c *FileConfig) tileOptions() tiles.Options {
	return tiles.Options{
		MaxZoom:   c.MaxZoom,
		Buffer:    c.Buffer,
		Extent:    c.Extent,
		Tolerance: c.Tolerance,
		CacheSize: c.TileCacheSize,
	}
}

var cfg = flag.String("config", "config.yml", "Path to a config file")
var version = flag.Bool("version", false, "Print the version string and exit")

func main() {
	start := time.Now()
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "quartiere-server version %s\n", quartiere.Version)
		os.Exit(0)
	}
	data, err := os.ReadFile(*cfg)
	c := new(FileConfig)
	if err == nil {
		if err := yaml.Unmarshal(data, c); err != nil {
			logger.Error("Couldn't parse config file", "err", err)
			os.Exit(2)
		}
	} else {
		logger.Error("Couldn't find config file", "err", err)
		os.Exit(2)
	}

	if c.Port == nil {
		port, ok := os.LookupEnv("PORT")
		if ok {
			iPort, err := strconv.Atoi(port)
			if err != nil {
				logger.Error("Invalid port", "err", err, "port", port)
				os.Exit(2)
			}
			c.Port = &iPort
		} else {
			c.Port = &DefaultPort
		}
	}
	if c.DataFile == "" {
		c.DataFile = "public/data.json"
	}
	d, err := server.LoadData(c.DataFile, c.tileOptions())
	if err != nil {
		logger.Error("Couldn't load data file", "file", c.DataFile, "err", err)
		os.Exit(2)
	}
	logger.Info("Loaded neighbourhoods", "file", c.DataFile, "features", d.Index.Len(),
		"max_zoom", d.Index.Options().MaxZoom)

	mux := server.NewServeMux(d)
	mux = handlers.UUID(mux)                                   // add UUID header
	mux = handlers.Server(mux, "quartiere/"+quartiere.Version) // add Server header
	mux = handlers.Log(mux)                                    // log requests/responses
	mux = handlers.Duration(mux)                               // add Duration header
	addr := ":" + strconv.Itoa(*c.Port)
	if c.HTTPOnly {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Error listening", "addr", addr, "err", err)
			os.Exit(2)
		}
		logger.Info("Started server", "time", time.Since(start).Round(100*time.Microsecond),
			"protocol", "http", "port", *c.Port)
		listenErr := http.Serve(ln, mux)
		logger.Error("server shut down", "err", listenErr)
	} else {
		mux = handlers.STS(mux) // set Strict-Transport-Security header
		if c.CertFile == "" {
			c.CertFile = "certs/leaf.pem"
		}
		if _, err := os.Stat(c.CertFile); os.IsNotExist(err) {
			logger.Error("Could not find a cert file", "file", c.CertFile)
			os.Exit(2)
		}
		if c.KeyFile == "" {
			c.KeyFile = "certs/leaf.key"
		}
		if _, err := os.Stat(c.KeyFile); os.IsNotExist(err) {
			logger.Error("Could not find a key file", "file", c.KeyFile)
			os.Exit(2)
		}
		logger.Info("Starting server", "time", time.Since(start).Round(100*time.Microsecond), "protocol", "https", "port", *c.Port)
		listenErr := http.ListenAndServeTLS(addr, c.CertFile, c.KeyFile, mux)
		logger.Error("server shut down", "err", listenErr)
	}
}
