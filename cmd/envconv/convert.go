package main

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"envcube/envmap"
	"envcube/libgfx"
	"envcube/libio"
	"envcube/shader"
)

type convertArgs struct {
	commonArgs
	sizeImplArgs
	projection projection
}

func createConvertCommand() *command {

	args := convertArgs{
		commonArgs: commonArgs{
			ext: ".envcube",
		},
		sizeImplArgs: sizeImplArgs{
			impl: implGl,
			size: size{
				unit:    unitPercent,
				percent: 25,
			},
		},
	}

	flags := flag.NewFlagSet("convert", flag.ExitOnError)

	registerCommonFlags(flags, &args.commonArgs)
	registerSizeImplFlag(flags, &args.sizeImplArgs)
	flags.Var(&args.projection, "projection", "the panorama projection; auto, equirectangular or angular")
	flags.Var(&args.projection, "p", "shorthand for projection")

	return &command{
		Name: "convert",
		Help: "convert radiance hdr panoramas to cube dumps",
		Run: func(self *command) {
			if self.Flags.NArg() < 1 {
				printCommandUsage(self, " file-glob...")
			}
			setCommonArgs(&args.commonArgs)

			runConvert(args, gatherInputFiles(self.Flags.Args()))
		},
		Flags: flags,
	}
}

func runConvert(args convertArgs, inputFiles []string) {
	log := logger()
	dev, release := openDevice(args.impl, log)
	defer release()
	programs := shader.NewRepository(dev, shader.RepositoryOptions{Logger: log})
	defer programs.Release()

	ext := cargs.suffix + cargs.ext
	success := 0
	start := time.Now()
	for i, p := range inputFiles {
		if !cargs.quiet {
			fmt.Printf("Processing file %d/%d %q ...\n", i+1, len(inputFiles), filepath.ToSlash(filepath.Clean(p)))
		}
		err := convertFile(args, p, ext, dev, programs, log)
		softerr(err)
		if err == nil {
			success++
		}
	}
	if !cargs.quiet {
		took := float32(time.Since(start).Milliseconds()) / 1000
		fmt.Printf("Converted %d/%d files in %.3f seconds\n", success, len(inputFiles), took)
	}
}

func convertFile(args convertArgs, p string, ext string, dev libgfx.Device, programs *shader.Repository, log *slog.Logger) error {
	fetcher := libio.NewDownloader(os.DirFS(filepath.Dir(p)), libio.DownloaderOptions{Logger: log})
	defer fetcher.Close()
	name := filepath.Base(p)

	data := fetcher.Load(name, libio.KindBinary)
	if data == nil {
		return fmt.Errorf("cannot read %s", p)
	}
	width, _, err := libio.DecodeHdrConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}

	size := args.size.Calc(width)
	if size <= 0 {
		return fmt.Errorf("invalid cubemap size %d", size)
	}
	if !cargs.quiet {
		fmt.Printf("Converting to %dx%dx6 cubemap ...\n", size, size)
	}

	env := envmap.New(dev, fetcher, programs, envmap.PanoramaSource{
		Path:       name,
		Projection: args.projection.Projection,
	}, envmap.Options{Size: size, Logger: log})
	defer env.Release()
	if !env.IsLoaded() {
		return fmt.Errorf("conversion of %s failed", p)
	}

	cube, err := env.Snapshot()
	if err != nil {
		return err
	}
	return writeCube(outputPath(p, ext), cube)
}

func writeCube(outFilename string, cube *libio.Cube) error {
	compression := libio.CubeCompressionNone
	if cargs.compress {
		compression = libio.CubeCompressionLz4
	}

	if !cargs.quiet {
		fmt.Printf("Writing %q ...\n", filepath.ToSlash(filepath.Clean(outFilename)))
	}

	outFile, err := os.OpenFile(outFilename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer close(outFile)

	err = libio.EncodeCube(outFile, cube, compression)
	if err != nil {
		outFile.Close()
		os.Remove(outFilename)
		return err
	}
	return nil
}
