package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/naviat-dev/scone"
)

func convertScenery(cCtx *cli.Context) error {
	opts := scone.ConvertOptions{
		InputUri:  cCtx.String("input-uri"),
		OutputUri: cCtx.String("output-uri"),
		ConfigUri: cCtx.String("config-uri"),
		AssetRoot: cCtx.String("asset-root"),
		EmitGltf:  cCtx.Bool("gltf") || !cCtx.Bool("ac3d"),
		EmitAc3d:  cCtx.Bool("ac3d"),
		Workers:   cCtx.Int("workers"),
	}

	if terrainBase := cCtx.String("terrain-base-url"); terrainBase != "" {
		opts.Terrain = scone.NewDefaultTerrainService(scone.NewHttpTerrainProvider(terrainBase))
	}

	log.Println("scone: converting", opts.InputUri, "->", opts.OutputUri)
	if err := scone.ConvertScenery(opts); err != nil {
		return err
	}
	log.Println("scone: finished")
	return nil
}

func probeScenery(cCtx *cli.Context) error {
	bgl, err := scone.OpenBGL(cCtx.String("bgl-uri"), cCtx.String("config-uri"))
	if err != nil {
		return err
	}
	defer bgl.Close()

	result, err := bgl.Walk(scone.NullTerrainService{})
	if err != nil {
		return err
	}

	fmt.Printf("library placements: %d\n", len(result.LibraryPlacements))
	fmt.Printf("sim objects:        %d\n", len(result.SimObjects))
	fmt.Printf("airports:           %d\n", len(result.Airports))
	fmt.Printf("model records:      %d\n", len(result.ModelRecords))
	for recType, count := range result.Stats.RecordsSeen {
		fmt.Printf("  record 0x%04x: %d\n", uint32(recType), count)
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:  "scone",
		Usage: "convert MSFS BGL scenery packages into a FlightGear tile tree",
		Commands: []*cli.Command{
			{
				Name:  "convert",
				Usage: "walk a directory of BGL files and emit a FlightGear scenery tree",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input-uri",
						Usage:    "URI or pathname to a directory containing BGL files.",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output-uri",
						Usage:    "URI or pathname of the output FlightGear scenery tree.",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "config-uri",
						Usage: "URI or pathname to a TileDB config file.",
					},
					&cli.StringFlag{
						Name:  "asset-root",
						Usage: "Directory to search for textures not bundled with their model.",
					},
					&cli.StringFlag{
						Name:  "terrain-base-url",
						Usage: "Base URL of the terrain elevation service used for AGL placements.",
					},
					&cli.BoolFlag{
						Name:  "gltf",
						Usage: "Emit glTF tile output (default true unless --ac3d is set alone).",
					},
					&cli.BoolFlag{
						Name:  "ac3d",
						Usage: "Emit AC3D tile output.",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Tile-assembly worker pool size (default 2*NumCPU).",
					},
				},
				Action: convertScenery,
			},
			{
				Name:  "probe",
				Usage: "walk a single BGL file and print what it contains",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "bgl-uri",
						Usage:    "URI or pathname to a BGL file.",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "config-uri",
						Usage: "URI or pathname to a TileDB config file.",
					},
				},
				Action: probeScenery,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
