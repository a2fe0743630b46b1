package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/eightbitatr/atrfs"
	"github.com/eightbitatr/atrfs/container"
	"github.com/eightbitatr/atrfs/detect"
	"github.com/eightbitatr/atrfs/diaginfo"
	"github.com/eightbitatr/atrfs/dosfamily"
	"github.com/eightbitatr/atrfs/sparta"
)

func main() {
	app := cli.App{
		Usage: "Inspect and format Atari 8-bit .atr disk images",
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Detect an image's format and print the root directory's diagnostic info",
				ArgsUsage: "IMAGE_FILE",
				Action:    infoCommand,
			},
			{
				Name:      "format",
				Usage:     "Create a new blank image in the given format",
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "fstype", Required: true, Usage: "dos1, dos2s, dos2d, dos25, mydos, litedos, or sparta"},
					&cli.UintFlag{Name: "sectors", Value: 720, Usage: "total sector count"},
					&cli.UintFlag{Name: "sector-size", Value: 128, Usage: "128, 256, or 512"},
					&cli.UintFlag{Name: "cluster-size", Value: 1, Usage: "LiteDOS cluster size in sectors"},
					&cli.StringFlag{Name: "label", Value: "", Usage: "Sparta volume label"},
				},
				Action: formatCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func infoCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("usage: atrtool info IMAGE_FILE", 1)
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	cont, err := container.Open(f)
	if err != nil {
		return cli.Exit(err, 1)
	}

	engine, err := detect.Detect(cont)
	if err != nil {
		return cli.Exit(fmt.Sprintf("could not identify format: %s", err), 1)
	}

	text, derr := diaginfo.Generate(engine, "/", nil)
	if derr != nil {
		return cli.Exit(derr, 1)
	}
	fmt.Print(text)
	return nil
}

func formatCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("usage: atrtool format --fstype=TYPE IMAGE_FILE", 1)
	}

	sectorCount := uint16(c.Uint("sectors"))
	sectorSize := uint16(c.Uint("sector-size"))
	clusterSize := uint16(c.Uint("cluster-size"))

	cont, err := container.Create(uint(sectorCount), uint(sectorSize))
	if err != nil {
		return cli.Exit(err, 1)
	}

	var derr *atrfs.DriverError
	switch c.String("fstype") {
	case "dos1":
		derr = dosfamily.Format(cont, dosfamily.DOS1(sectorCount, sectorSize))
	case "dos2s":
		derr = dosfamily.Format(cont, dosfamily.DOS2s(sectorCount, sectorSize))
	case "dos2d":
		derr = dosfamily.Format(cont, dosfamily.DOS2d(sectorCount, sectorSize))
	case "dos25":
		derr = dosfamily.Format(cont, dosfamily.DOS25(sectorCount, sectorSize))
	case "mydos":
		derr = dosfamily.Format(cont, dosfamily.MyDOS(sectorCount, sectorSize))
	case "litedos":
		derr = dosfamily.Format(cont, dosfamily.LiteDOS(sectorCount, sectorSize, clusterSize, 361))
	case "sparta":
		derr = sparta.Format(cont, c.String("label"), sparta.RevisionSD20)
	default:
		return cli.Exit(fmt.Sprintf("unrecognized fstype %q", c.String("fstype")), 1)
	}
	if derr != nil {
		return cli.Exit(derr, 1)
	}

	out, err := os.Create(c.Args().First())
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer out.Close()
	if _, err := cont.WriteTo(out); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}
