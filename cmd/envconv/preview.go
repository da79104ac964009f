package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"envcube/libio"
)

var faceSuffixes = [6]string{"_px", "_nx", "_py", "_ny", "_pz", "_nz"}

type previewArgs struct {
	commonArgs
	gamma    float64
	scale    float64
	reinhard bool
}

func createPreviewCommand() *command {

	args := previewArgs{
		commonArgs: commonArgs{
			ext: ".png",
		},
		gamma:    2.2,
		scale:    1.0,
		reinhard: false,
	}

	flags := flag.NewFlagSet("preview", flag.ExitOnError)

	registerCommonFlags(flags, &args.commonArgs)

	flags.Float64Var(&args.gamma, "gamma", args.gamma, "gamma correction value")
	flags.Float64Var(&args.scale, "scale", args.scale, "brightness scale factor")
	flags.BoolVar(&args.reinhard, "reinhard", args.reinhard, "apply reinhard tonemapping")

	return &command{
		Name: "preview",
		Help: "render cube dumps to six png faces",
		Run: func(self *command) {
			if self.Flags.NArg() < 1 {
				printCommandUsage(self, " file-glob...")
			}
			setCommonArgs(&args.commonArgs)

			runPreview(args, gatherInputFiles(self.Flags.Args()))
		},
		Flags: flags,
	}
}

func runPreview(args previewArgs, inputFiles []string) {
	success := 0
	start := time.Now()
	for i, p := range inputFiles {
		if !cargs.quiet {
			fmt.Printf("Processing file %d/%d %q ...\n", i+1, len(inputFiles), filepath.ToSlash(filepath.Clean(p)))
		}
		err := previewFile(args, p)
		softerr(err)
		if err == nil {
			success++
		}
	}
	if !cargs.quiet {
		took := float32(time.Since(start).Milliseconds()) / 1000
		fmt.Printf("Rendered %d/%d files in %.3f seconds\n", success, len(inputFiles), took)
	}
}

func previewFile(args previewArgs, p string) error {
	inFile, err := os.Open(p)
	if err != nil {
		return err
	}
	defer close(inFile)

	cube, err := libio.DecodeCube(inFile)
	if err != nil {
		return err
	}

	if !cargs.quiet {
		fmt.Printf("Converting to 6 %dx%d png ...\n", cube.Size, cube.Size)
	}

	base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	for i := range cube.Faces {
		outFilename := filepath.Join(cargs.out, base+faceSuffixes[i]+cargs.suffix+cargs.ext)
		if err := writeFacePng(args, outFilename, cube.Face(i)); err != nil {
			return err
		}
	}

	return nil
}

func writeFacePng(args previewArgs, outFilename string, face *libio.FloatImage) error {
	if args.reinhard {
		face = libio.NewFloatImage(append([]float32(nil), face.Pix...), face.Channels, face.Width, face.Height)
		for i := range face.Pix {
			face.Pix[i] = face.Pix[i] / (1 + face.Pix[i])
		}
	}
	rgba := face.ToIntImage(float32(args.gamma), float32(args.scale)).ToRGBA()

	if !cargs.quiet {
		fmt.Printf("Writing %q ...\n", filepath.ToSlash(filepath.Clean(outFilename)))
	}

	outFile, err := os.OpenFile(outFilename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer close(outFile)

	return png.Encode(outFile, rgba)
}
