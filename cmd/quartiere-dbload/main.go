// quartiere-dbload copies the merged neighbourhoods into a Postgres table, one
// row per feature, with the geometry stored as GeoJSON.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/kevinburke/quartiere"
	_ "github.com/lib/pq"
	"github.com/paulmach/orb/geojson"
)

const createTable = `
CREATE TABLE IF NOT EXISTS neighbourhoods (
  id serial PRIMARY KEY,
  region text,
  municipality text,
  population double precision,
  area double precision,
  zone text,
  properties jsonb NOT NULL,
  geometry jsonb NOT NULL
)
`

const insertNeighbourhood = `
INSERT INTO neighbourhoods (
  region,
  municipality,
  population,
  area,
  zone,
  properties,
  geometry
) VALUES (
  case when $1 = '' then null else $1 end,
  case when $2 = '' then null else $2 end,
  $3,
  $4,
  case when $5 = '' then null else $5 end,
  $6,
  $7
)
`

type row struct {
	Region       string
	Municipality string
	Population   float64
	Area         float64
	Zone         string
	Properties   []byte
	Geometry     []byte
}

func newRow(n *quartiere.Neighbourhood) (*row, error) {
	props := n.Properties
	if props == nil {
		props = geojson.Properties{}
	}
	pb, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	gb, err := json.Marshal(geojson.NewGeometry(n.Geometry))
	if err != nil {
		return nil, err
	}
	return &row{
		Region:       n.Region,
		Municipality: n.Municipality,
		Population:   n.Population,
		Area:         n.Area,
		Zone:         string(n.Zone),
		Properties:   pb,
		Geometry:     gb,
	}, nil
}

func run(dsn, path string, truncate bool) error {
	fc, err := quartiere.LoadFile(path)
	if err != nil {
		return err
	}
	ns, err := quartiere.Neighbourhoods(fc)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec(createTable); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if truncate {
		if _, err := tx.Exec("TRUNCATE neighbourhoods"); err != nil {
			return err
		}
	}
	stmt, err := tx.Prepare(insertNeighbourhood)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, n := range ns {
		if n.Geometry == nil {
			continue
		}
		r, err := newRow(n)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		_, err = stmt.Exec(
			r.Region,
			r.Municipality,
			r.Population,
			r.Area,
			r.Zone,
			string(r.Properties),
			string(r.Geometry),
		)
		if err != nil {
			return fmt.Errorf("insert failed %d (%s): %s", i, r.Municipality, err)
		}
		if i > 0 && i%1000 == 0 {
			fmt.Printf("Added %d neighbourhoods\n", i)
		}
	}
	return tx.Commit()
}

func main() {
	dsn := flag.String("db", "postgres://localhost/quartiere?sslmode=disable", "Postgres connection string")
	in := flag.String("data", "public/data.json", "Merged GeoJSON file")
	truncate := flag.Bool("truncate", false, "Empty the table before loading")
	flag.Parse()
	if err := run(*dsn, *in, *truncate); err != nil {
		log.Fatal(err)
	}
}
